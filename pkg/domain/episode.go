package domain

import "time"

// RawEpisode is a single feed item as read from the podcast RSS feed
type RawEpisode struct {
	Title       string
	Description string    // may carry html, may be empty
	Published   time.Time // keeps the offset from the feed
	Duration    string    // raw itunes:duration text, empty if absent
}

// feature column positions, in the order the model was trained with
const (
	FeatPlayoffGame = iota
	FeatHollingerDuncan
	FeatDailyDunc
	FeatMockEpisode
	FeatAwardsEpisode
	FeatYear
	FeatMonth
	FeatWeekday
	FeatHour
	FeatLongerThirtyMinutes
	FeatDurationSeconds
	FeatCeltics

	FeatureCount
)

// FeatureVector is the positional model input for one episode
type FeatureVector [FeatureCount]float64

// Episode binds episode metadata and its feature row together, so filtering can't
// misalign the two
type Episode struct {
	RawEpisode
	DurationSeconds float64
	Features        FeatureVector
}

// PredictionResult is a scored episode
type PredictionResult struct {
	Title       string
	Published   time.Time
	Probability float64 // positive ("banger") class probability in [0,1]
}
