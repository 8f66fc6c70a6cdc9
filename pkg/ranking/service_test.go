package ranking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/bangers/pkg/domain"
	"github.com/umputun/bangers/pkg/features"
	"github.com/umputun/bangers/pkg/ranking/mocks"
	"github.com/umputun/bangers/pkg/scorer"
)

var published = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

func fetcherOf(episodes ...domain.RawEpisode) *mocks.FetcherMock {
	return &mocks.FetcherMock{FetchFunc: func(ctx context.Context, feedURL string) ([]domain.RawEpisode, error) {
		return episodes, nil
	}}
}

// durationScorer gives each row probability of duration/10000, so results can be matched to inputs
func durationScorer() *mocks.ScorerMock {
	return &mocks.ScorerMock{PredictFunc: func(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error) {
		res := make([]scorer.Probabilities, len(matrix))
		for i, row := range matrix {
			p := row[domain.FeatDurationSeconds] / 10000
			res[i] = scorer.Probabilities{"no": 1 - p, "yes": p}
		}
		return res, nil
	}}
}

func TestService_Run(t *testing.T) {
	fetcher := fetcherOf(
		domain.RawEpisode{Title: "short", Published: published, Duration: "1000"},
		domain.RawEpisode{Title: "bad duration", Published: published, Duration: "12:00"},
		domain.RawEpisode{Title: "long", Published: published.Add(time.Hour), Duration: "5000"},
		domain.RawEpisode{Title: "no duration", Published: published},
		domain.RawEpisode{Title: "middle", Published: published.Add(2 * time.Hour), Duration: "3000"},
	)
	sc := durationScorer()
	svc := NewService(fetcher, features.NewEngineer(), sc, Params{})

	res, err := svc.Run(context.Background(), "http://example.com/feed.rss")
	require.NoError(t, err)

	require.Len(t, fetcher.FetchCalls(), 1)
	assert.Equal(t, "http://example.com/feed.rss", fetcher.FetchCalls()[0].FeedURL)
	require.Len(t, sc.PredictCalls(), 1)
	assert.Len(t, sc.PredictCalls()[0].Matrix, 3, "dropped rows never reach the scorer")

	require.Len(t, res, 3)
	assert.Equal(t, "long", res[0].Title)
	assert.InDelta(t, 0.5, res[0].Probability, 1e-9)
	assert.Equal(t, published.Add(time.Hour), res[0].Published)
	assert.Equal(t, "middle", res[1].Title)
	assert.InDelta(t, 0.3, res[1].Probability, 1e-9)
	assert.Equal(t, "short", res[2].Title)
	assert.InDelta(t, 0.1, res[2].Probability, 1e-9)
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Probability, res[i].Probability)
	}
}

func TestService_RunStableTies(t *testing.T) {
	var episodes []domain.RawEpisode
	for i := range 10 {
		episodes = append(episodes, domain.RawEpisode{Title: fmt.Sprintf("ep %d", i), Published: published, Duration: "2000"})
	}
	episodes = append(episodes, domain.RawEpisode{Title: "winner", Published: published, Duration: "4000"})

	svc := NewService(fetcherOf(episodes...), features.NewEngineer(), durationScorer(), Params{})
	res, err := svc.Run(context.Background(), "http://example.com/feed.rss")
	require.NoError(t, err)
	require.Len(t, res, 11)
	assert.Equal(t, "winner", res[0].Title)
	for i := range 10 {
		assert.Equal(t, fmt.Sprintf("ep %d", i), res[i+1].Title, "ties keep feed order")
	}
}

func TestService_RunNothingToScore(t *testing.T) {
	sc := durationScorer()
	tests := []struct {
		name    string
		fetcher *mocks.FetcherMock
	}{
		{name: "no recent episodes", fetcher: fetcherOf()},
		{name: "all dropped", fetcher: fetcherOf(domain.RawEpisode{Title: "x", Published: published, Duration: "n/a"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewService(tt.fetcher, features.NewEngineer(), sc, Params{}).Run(context.Background(), "http://example.com")
			require.NoError(t, err)
			assert.NotNil(t, res)
			assert.Empty(t, res)
		})
	}
	assert.Empty(t, sc.PredictCalls(), "scorer is not called without rows")
}

func TestService_RunFetchErrors(t *testing.T) {
	for _, fetchErr := range []error{
		fmt.Errorf("%w: unexpected status 503 Service Unavailable", domain.ErrFeedUnavailable),
		fmt.Errorf("%w: no channel element", domain.ErrFeedParse),
		fmt.Errorf("%w: feed url is not set", domain.ErrConfiguration),
	} {
		t.Run(fetchErr.Error(), func(t *testing.T) {
			fetcher := &mocks.FetcherMock{FetchFunc: func(ctx context.Context, feedURL string) ([]domain.RawEpisode, error) {
				return nil, fetchErr
			}}
			sc := durationScorer()
			res, err := NewService(fetcher, features.NewEngineer(), sc, Params{}).Run(context.Background(), "http://example.com")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, fetchErr, err, "fetch errors are not rewrapped")
			assert.False(t, errors.Is(err, domain.ErrInference))
			assert.Empty(t, sc.PredictCalls())
		})
	}
}

func TestService_RunInferenceErrors(t *testing.T) {
	fetcher := fetcherOf(domain.RawEpisode{Title: "x", Published: published, Duration: "100"})

	tests := []struct {
		name    string
		predict func(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error)
		errMsg  string
	}{
		{
			name: "backend error",
			predict: func(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error) {
				return nil, errors.New("shape mismatch")
			},
			errMsg: "shape mismatch",
		},
		{
			name: "backend panic",
			predict: func(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error) {
				panic("index out of range")
			},
			errMsg: "scorer panic: index out of range",
		},
		{
			name: "no positive class",
			predict: func(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error) {
				return []scorer.Probabilities{{"0": 0.4, "1": 0.6}}, nil
			},
			errMsg: `no "yes" class in prediction 0`,
		},
		{
			name: "wrong number of predictions",
			predict: func(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error) {
				return []scorer.Probabilities{}, nil
			},
			errMsg: "0 predictions for 1 episodes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := &mocks.ScorerMock{PredictFunc: tt.predict}
			res, err := NewService(fetcher, features.NewEngineer(), sc, Params{}).Run(context.Background(), "http://example.com")
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, domain.ErrInference)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestService_RunCustomPositiveClass(t *testing.T) {
	sc := &mocks.ScorerMock{PredictFunc: func(ctx context.Context, matrix [][]float64) ([]scorer.Probabilities, error) {
		return []scorer.Probabilities{{"regular": 0.25, "banger": 0.75}}, nil
	}}
	fetcher := fetcherOf(domain.RawEpisode{Title: "x", Published: published, Duration: "100"})
	res, err := NewService(fetcher, features.NewEngineer(), sc, Params{PositiveClass: "banger"}).Run(context.Background(), "u")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.InDelta(t, 0.75, res[0].Probability, 1e-9)
}

func TestService_RunWithArtifact(t *testing.T) {
	model, err := scorer.LoadArtifact("../scorer/testdata/gbdt.json")
	require.NoError(t, err)

	fetcher := fetcherOf(
		domain.RawEpisode{Title: "The Daily Duncs", Published: published, Duration: "900"},
		domain.RawEpisode{Title: "Game 7 Reaction", Published: published, Duration: "2400"},
		domain.RawEpisode{Title: "Mock Draft 2.0", Published: published, Duration: "3000"},
	)
	svc := NewService(fetcher, features.NewEngineer(), model, Params{})

	first, err := svc.Run(context.Background(), "http://example.com")
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "Game 7 Reaction", first[0].Title)
	assert.Equal(t, "The Daily Duncs", first[2].Title)

	second, err := svc.Run(context.Background(), "http://example.com")
	require.NoError(t, err)
	assert.Equal(t, first, second, "same feed and model give the same ranking")
}

func TestService_Recent(t *testing.T) {
	fetcher := fetcherOf(
		domain.RawEpisode{Title: "ok", Published: published, Duration: "100"},
		domain.RawEpisode{Title: "bad", Published: published, Duration: "1:40"},
	)
	sc := durationScorer()
	recent, err := NewService(fetcher, features.NewEngineer(), sc, Params{}).Recent(context.Background(), "u")
	require.NoError(t, err)
	require.Len(t, recent.Episodes, 1)
	assert.Equal(t, "ok", recent.Episodes[0].Title)
	require.Len(t, recent.Dropped, 1)
	assert.Equal(t, "bad", recent.Dropped[0].Title)
	assert.Empty(t, sc.PredictCalls())
}
