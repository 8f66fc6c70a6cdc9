package server

import (
	"errors"
	"html"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/microcosm-cc/bluemonday"

	"github.com/umputun/bangers/pkg/domain"
	"github.com/umputun/bangers/pkg/feed"
	"github.com/umputun/bangers/pkg/features"
	"github.com/umputun/bangers/pkg/scorer"
)

// dateLayout keeps the feed's own utc offset, unlike time.RFC3339 which turns +00:00 into Z
const dateLayout = "2006-01-02T15:04:05-07:00"

// stripTags is safe for concurrent use
var stripTags = bluemonday.StrictPolicy()

// predictionResponse is a single ranked episode of /predict
type predictionResponse struct {
	Episode     string  `json:"episode"`
	Probability float64 `json:"probability"`
	Date        string  `json:"date"`
}

// episodeResponse is a single recent episode of /api/v1/episodes
type episodeResponse struct {
	Title           string             `json:"title"`
	Date            string             `json:"date"`
	Duration        string             `json:"duration"`
	DurationSeconds float64            `json:"duration_seconds"`
	Description     string             `json:"description"`
	Features        map[string]float64 `json:"features"`
}

type episodesResponse struct {
	Episodes []episodeResponse `json:"episodes"`
	Dropped  int               `json:"dropped"`
}

type statusResponse struct {
	Status  string      `json:"status"`
	Version string      `json:"version"`
	Model   scorer.Info `json:"model"`
	Columns []string    `json:"columns"`
	Time    time.Time   `json:"time"`
}

// healthHandler reports the process is up, the model is loaded before the server starts
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

// predictHandler ranks recent episodes of the configured feed
func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	results, err := s.ranker.Run(r.Context(), s.config.GetFeedURL())
	if err != nil {
		sendError(w, r, err)
		return
	}

	resp := make([]predictionResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, predictionResponse{
			Episode:     res.Title,
			Probability: roundProbability(res.Probability),
			Date:        res.Published.Format(dateLayout),
		})
	}
	RenderJSON(w, r, http.StatusOK, resp)
}

// episodesHandler shows recent episodes with their feature rows, without scoring
func (s *Server) episodesHandler(w http.ResponseWriter, r *http.Request) {
	recent, err := s.ranker.Recent(r.Context(), s.config.GetFeedURL())
	if err != nil {
		sendError(w, r, err)
		return
	}

	resp := episodesResponse{Episodes: make([]episodeResponse, 0, len(recent.Episodes)), Dropped: len(recent.Dropped)}
	for _, ep := range recent.Episodes {
		feats := make(map[string]float64, domain.FeatureCount)
		for i, col := range features.Columns {
			feats[col] = ep.Features[i]
		}
		resp.Episodes = append(resp.Episodes, episodeResponse{
			Title:           ep.Title,
			Date:            ep.Published.Format(dateLayout),
			Duration:        ep.Duration,
			DurationSeconds: ep.DurationSeconds,
			Description:     plainText(ep.Description),
			Features:        feats,
		})
	}
	RenderJSON(w, r, http.StatusOK, resp)
}

// statusHandler returns server status and loaded model details
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, http.StatusOK, statusResponse{
		Status:  "ok",
		Version: s.version,
		Model:   s.model.Info(),
		Columns: features.Names(),
		Time:    time.Now().UTC(),
	})
}

// rssHandler serves ranked episodes as RSS feed
func (s *Server) rssHandler(w http.ResponseWriter, r *http.Request) {
	results, err := s.ranker.Run(r.Context(), s.config.GetFeedURL())
	if err != nil {
		sendError(w, r, err)
		return
	}

	rss, err := feed.NewGenerator(s.config.GetBaseURL(), "").GenerateRSS(results)
	if err != nil {
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusInternalServerError, err, "failed to generate rss")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	if _, err := w.Write([]byte(rss)); err != nil {
		log.Printf("[ERROR] failed to write RSS response: %v", err)
	}
}

// sendError logs the cause and responds with a short message, feed problems are upstream failures
func sendError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrFeedUnavailable):
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusBadGateway, err, "feed unavailable")
	case errors.Is(err, domain.ErrFeedParse):
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusBadGateway, err, "can't parse feed")
	case errors.Is(err, domain.ErrInference):
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusInternalServerError, err, "prediction failed")
	default:
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusInternalServerError, err, "internal error")
	}
}

// roundProbability rounds to 2 decimals, ties to even
func roundProbability(p float64) float64 {
	return math.RoundToEven(p*100) / 100
}

// plainText strips html markup of the feed description
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripTags.Sanitize(s)))
}
