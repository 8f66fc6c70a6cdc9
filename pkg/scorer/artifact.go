package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/umputun/bangers/pkg/domain"
	"github.com/umputun/bangers/pkg/features"
)

// artifact model types
const (
	ModelLogistic = "logistic"
	ModelGBDT     = "gbdt"
)

// Artifact is a binary classifier exported to JSON, either a logistic regression or a
// gradient-boosted tree ensemble with logistic link. The second class is the positive one.
type Artifact struct {
	Name     string      `json:"name"`
	Version  string      `json:"version"`
	Type     string      `json:"type"`
	Features []string    `json:"features"`
	Classes  []string    `json:"classes"`
	Logistic *LinearSpec `json:"logistic,omitempty"`
	GBDT     *GBDTSpec   `json:"gbdt,omitempty"`
}

// LinearSpec holds logistic regression parameters, coefficients are positional
type LinearSpec struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// GBDTSpec holds a tree ensemble, margin is BaseScore plus the sum of tree leaves
type GBDTSpec struct {
	BaseScore float64 `json:"base_score"`
	Trees     []Tree  `json:"trees"`
}

// Tree is a flat list of nodes, the root is nodes[0]
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is either a split or a leaf. Split sends a row to Left if row[Feature] < Threshold.
type Node struct {
	Feature   int      `json:"feature"`
	Threshold float64  `json:"threshold"`
	Left      int      `json:"left"`
	Right     int      `json:"right"`
	Leaf      *float64 `json:"leaf,omitempty"`
}

// LoadArtifact reads and validates model artifact. The artifact must declare exactly
// the feature columns produced by features.Engineer, in the same order.
func LoadArtifact(path string) (*Artifact, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: model path is not set", domain.ErrModelLoad)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrModelLoad, path, err)
	}

	var a Artifact
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrModelLoad, path, err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrModelLoad, path, err)
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if err := CheckFeatures(a.Features); err != nil {
		return err
	}
	if len(a.Classes) != 2 || a.Classes[0] == a.Classes[1] {
		return fmt.Errorf("binary classifier needs two distinct classes, got %v", a.Classes)
	}

	switch a.Type {
	case ModelLogistic:
		if a.Logistic == nil {
			return errors.New("logistic parameters are missing")
		}
		if len(a.Logistic.Coefficients) != len(a.Features) {
			return fmt.Errorf("expected %d coefficients, got %d", len(a.Features), len(a.Logistic.Coefficients))
		}
	case ModelGBDT:
		if a.GBDT == nil || len(a.GBDT.Trees) == 0 {
			return errors.New("gbdt trees are missing")
		}
		for i, tree := range a.GBDT.Trees {
			if err := tree.validate(len(a.Features)); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unknown model type %q", a.Type)
	}
	return nil
}

// validate checks node references, children must come after their parent so evaluation
// always terminates
func (t Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf != nil {
			if math.IsNaN(*n.Leaf) || math.IsInf(*n.Leaf, 0) {
				return fmt.Errorf("node %d: leaf is not finite", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: bad children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

// CheckFeatures verifies declared model inputs match features.Columns exactly
func CheckFeatures(declared []string) error {
	expected := features.Names()
	if slices.Equal(declared, expected) {
		return nil
	}
	if len(declared) != len(expected) {
		return fmt.Errorf("model expects %d features, pipeline produces %d", len(declared), len(expected))
	}
	for i := range expected {
		if declared[i] != expected[i] {
			return fmt.Errorf("feature %d is %q in model, %q in pipeline", i, declared[i], expected[i])
		}
	}
	return nil
}

// Predict scores each row. An empty matrix returns empty result without evaluating the model.
func (a *Artifact) Predict(ctx context.Context, matrix [][]float64) ([]Probabilities, error) {
	if len(matrix) == 0 {
		return []Probabilities{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := make([]Probabilities, len(matrix))
	for i, row := range matrix {
		if len(row) != len(a.Features) {
			return nil, fmt.Errorf("row %d has %d values, model expects %d", i, len(row), len(a.Features))
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("row %d, feature %s is not finite", i, a.Features[j])
			}
		}
		p := sigmoid(a.margin(row))
		res[i] = Probabilities{a.Classes[0]: 1 - p, a.Classes[1]: p}
	}
	return res, nil
}

// Info returns model description
func (a *Artifact) Info() Info {
	return Info{
		Backend:  BackendArtifact,
		Name:     a.Name,
		Version:  a.Version,
		Classes:  slices.Clone(a.Classes),
		Features: slices.Clone(a.Features),
	}
}

func (a *Artifact) margin(row []float64) float64 {
	if a.Type == ModelLogistic {
		z := a.Logistic.Intercept
		for i, c := range a.Logistic.Coefficients {
			z += c * row[i]
		}
		return z
	}

	z := a.GBDT.BaseScore
	for _, tree := range a.GBDT.Trees {
		z += tree.eval(row)
	}
	return z
}

func (t Tree) eval(row []float64) float64 {
	idx := 0
	for {
		n := t.Nodes[idx]
		if n.Leaf != nil {
			return *n.Leaf
		}
		if row[n.Feature] < n.Threshold {
			idx = n.Left
		} else {
			idx = n.Right
		}
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
