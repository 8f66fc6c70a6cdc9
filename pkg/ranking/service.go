// Package ranking runs the prediction pipeline: fetch recent episodes, build features,
// score them and order by banger probability.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/umputun/bangers/pkg/domain"
	"github.com/umputun/bangers/pkg/scorer"
)

//go:generate moq -out mocks/fetcher.go -pkg mocks -skip-ensure -fmt goimports . Fetcher
//go:generate moq -out mocks/scorer.go -pkg mocks -skip-ensure -fmt goimports . Scorer

// Fetcher returns recent episodes of the feed, in feed order
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]domain.RawEpisode, error)
}

// Engineer turns raw episodes into feature rows, returning episodes it can't use separately
type Engineer interface {
	Transform(episodes []domain.RawEpisode) (res []domain.Episode, dropped []domain.RawEpisode)
}

// Scorer returns class probabilities for each row of the matrix
type Scorer interface {
	Predict(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error)
}

// Service orchestrates fetch, feature engineering and scoring
type Service struct {
	Params
	fetcher  Fetcher
	engineer Engineer
	scorer   Scorer
}

// Params defines service settings
type Params struct {
	PositiveClass string // probability key of the "banger" class, defaults to "yes"
}

// Recent is the feature engineering outcome for the current feed window
type Recent struct {
	Episodes []domain.Episode
	Dropped  []domain.RawEpisode
}

// NewService makes ranking service
func NewService(fetcher Fetcher, engineer Engineer, sc Scorer, params Params) *Service {
	if params.PositiveClass == "" {
		params.PositiveClass = "yes"
	}
	return &Service{Params: params, fetcher: fetcher, engineer: engineer, scorer: sc}
}

// Run fetches the feed and returns recent episodes ordered by probability, highest first.
// Ties keep feed order. Errors of fetcher are returned as is, scorer failures are
// wrapped with domain.ErrInference.
func (s *Service) Run(ctx context.Context, feedURL string) ([]domain.PredictionResult, error) {
	recent, err := s.Recent(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	if len(recent.Episodes) == 0 {
		log.Printf("[INFO] no recent episodes to score")
		return []domain.PredictionResult{}, nil
	}

	matrix := make([][]float64, len(recent.Episodes))
	for i := range recent.Episodes {
		matrix[i] = recent.Episodes[i].Features[:]
	}

	probs, err := s.predict(ctx, matrix)
	if err != nil {
		return nil, err
	}
	if len(probs) != len(recent.Episodes) {
		return nil, fmt.Errorf("%w: %d predictions for %d episodes", domain.ErrInference, len(probs), len(recent.Episodes))
	}

	res := make([]domain.PredictionResult, len(recent.Episodes))
	for i, ep := range recent.Episodes {
		p, ok := probs[i][s.PositiveClass]
		if !ok {
			return nil, fmt.Errorf("%w: no %q class in prediction %d", domain.ErrInference, s.PositiveClass, i)
		}
		res[i] = domain.PredictionResult{Title: ep.Title, Published: ep.Published, Probability: p}
	}

	sort.SliceStable(res, func(i, j int) bool { return res[i].Probability > res[j].Probability })
	log.Printf("[INFO] scored %d episodes", len(res))
	return res, nil
}

// Recent fetches the feed and builds feature rows without scoring
func (s *Service) Recent(ctx context.Context, feedURL string) (Recent, error) {
	raw, err := s.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return Recent{}, err
	}
	episodes, dropped := s.engineer.Transform(raw)
	return Recent{Episodes: episodes, Dropped: dropped}, nil
}

// predict calls scorer, converting errors and panics of the backend to domain.ErrInference
func (s *Service) predict(ctx context.Context, matrix [][]float64) (probs []scorer.Probabilities, err error) {
	defer func() {
		if r := recover(); r != nil {
			probs, err = nil, fmt.Errorf("%w: scorer panic: %v", domain.ErrInference, r)
		}
	}()

	probs, err = s.scorer.Predict(ctx, matrix)
	if err != nil {
		if errors.Is(err, domain.ErrInference) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrInference, err)
	}
	return probs, nil
}
