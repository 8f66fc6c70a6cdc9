// Package scorer wraps the pre-trained episode classifier. The model is opaque to the rest
// of the service, it is loaded once at startup and queried concurrently with feature
// matrices in features.Columns order.
package scorer

import (
	"context"
	"fmt"
	"time"

	"github.com/umputun/bangers/pkg/domain"
)

// Probabilities are class probabilities of a single row, keyed by class label
type Probabilities map[string]float64

// Info describes loaded model
type Info struct {
	Backend  string   `json:"backend"`
	Name     string   `json:"name"`
	Version  string   `json:"version,omitempty"`
	Classes  []string `json:"classes"`
	Features []string `json:"features,omitempty"`
}

// Scorer scores a dense feature matrix, one Probabilities per row.
// Implementations are read-only after load and safe for concurrent use.
type Scorer interface {
	Predict(ctx context.Context, matrix [][]float64) ([]Probabilities, error)
	Info() Info
}

// backends
const (
	BackendArtifact = "artifact"
	BackendKServe   = "kserve"
)

// Params defines which model to load
type Params struct {
	Backend string // BackendArtifact (default) or BackendKServe
	Path    string // artifact file, for BackendArtifact
	KServe  KServeParams
}

// Load makes a scorer for the configured backend. Any failure is wrapped with
// domain.ErrModelLoad and should stop the process.
func Load(ctx context.Context, p Params) (Scorer, error) {
	switch p.Backend {
	case "", BackendArtifact:
		a, err := LoadArtifact(p.Path)
		if err != nil {
			return nil, err
		}
		return a, nil
	case BackendKServe:
		ks, err := NewKServe(p.KServe)
		if err != nil {
			return nil, err
		}
		readyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := ks.Ready(readyCtx); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrModelLoad, err)
		}
		return ks, nil
	default:
		return nil, fmt.Errorf("%w: unknown model backend %q", domain.ErrModelLoad, p.Backend)
	}
}
