// Package features turns raw feed episodes into positional model input rows.
// The transformation and the column order are the contract the model was trained
// against, any change here silently changes predictions.
package features

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/umputun/bangers/pkg/domain"
)

// Columns are the model input names in positional order
var Columns = [domain.FeatureCount]string{
	domain.FeatPlayoffGame:         "about_playoff_game",
	domain.FeatHollingerDuncan:     "is_hollinger_duncan",
	domain.FeatDailyDunc:           "is_daily_dunc",
	domain.FeatMockEpisode:         "is_mock_episode",
	domain.FeatAwardsEpisode:       "is_awards_episode",
	domain.FeatYear:                "year",
	domain.FeatMonth:               "month",
	domain.FeatWeekday:             "weekday",
	domain.FeatHour:                "hour",
	domain.FeatLongerThirtyMinutes: "longer_than_thirty_minutes",
	domain.FeatDurationSeconds:     "duration_seconds",
	domain.FeatCeltics:             "description_contains_celtics",
}

// Names returns column names as a slice
func Names() []string {
	res := make([]string, len(Columns))
	copy(res, Columns[:])
	return res
}

// thirtyMinutes is the threshold of longer_than_thirty_minutes, in seconds
const thirtyMinutes = 1800

var playoffGameRe = regexp.MustCompile(`Game [1-7]`)

// title indicators, case-sensitive and matched anywhere in the title
var titleMarkers = []struct {
	col    int
	marker string
}{
	{col: domain.FeatHollingerDuncan, marker: "H&D"},
	{col: domain.FeatDailyDunc, marker: "Daily Duncs"},
	{col: domain.FeatMockEpisode, marker: "Mock"},
	{col: domain.FeatAwardsEpisode, marker: "Awards"},
	{col: domain.FeatCeltics, marker: "Celtics"},
}

// Engineer converts raw episodes to feature rows
type Engineer struct{}

// NewEngineer makes feature engineer
func NewEngineer() *Engineer {
	return &Engineer{}
}

// Transform returns episodes paired with their feature rows, in input order. Episodes
// without publish time or with a duration that is not a finite non-negative number
// are returned in dropped, the model was trained on fully populated rows only.
func (e *Engineer) Transform(episodes []domain.RawEpisode) (res []domain.Episode, dropped []domain.RawEpisode) {
	res = make([]domain.Episode, 0, len(episodes))
	for _, ep := range episodes {
		row, ok := e.row(ep)
		if !ok {
			dropped = append(dropped, ep)
			continue
		}
		res = append(res, row)
	}
	if len(dropped) > 0 {
		log.Printf("[DEBUG] dropped %d of %d episodes with incomplete features", len(dropped), len(episodes))
	}
	return res, dropped
}

func (e *Engineer) row(ep domain.RawEpisode) (domain.Episode, bool) {
	if ep.Published.IsZero() {
		return domain.Episode{}, false
	}
	duration, ok := ParseDuration(ep.Duration)
	if !ok {
		return domain.Episode{}, false
	}

	var fv domain.FeatureVector
	fv[domain.FeatPlayoffGame] = flag(playoffGameRe.MatchString(ep.Title))
	for _, m := range titleMarkers {
		fv[m.col] = flag(strings.Contains(ep.Title, m.marker))
	}

	ts := ep.Published.UTC()
	fv[domain.FeatYear] = float64(ts.Year())
	fv[domain.FeatMonth] = float64(ts.Month())
	fv[domain.FeatWeekday] = float64(isoWeekday(ts))
	fv[domain.FeatHour] = float64(ts.Hour())

	fv[domain.FeatLongerThirtyMinutes] = flag(duration > thirtyMinutes)
	fv[domain.FeatDurationSeconds] = duration

	return domain.Episode{RawEpisode: ep, DurationSeconds: duration, Features: fv}, true
}

// ParseDuration reads itunes:duration as plain seconds with float32 precision.
// Clock formats like "01:02:03", empty, negative and non-finite values are rejected.
func ParseDuration(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xX") { // no hex floats
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// isoWeekday returns 1 for Monday through 7 for Sunday
func isoWeekday(t time.Time) int {
	if wd := t.Weekday(); wd != time.Sunday {
		return int(wd)
	}
	return 7
}

func flag(v bool) float64 {
	if v {
		return 1
	}
	return 0
}
