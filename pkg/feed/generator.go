package feed

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/umputun/bangers/pkg/domain"
)

// Generator creates RSS feeds from ranked predictions
type Generator struct {
	baseURL string
	title   string
}

// NewGenerator creates a new feed generator
func NewGenerator(baseURL, title string) *Generator {
	if title == "" {
		title = "Bangers"
	}
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		title:   title,
	}
}

// GenerateRSS creates an RSS 2.0 feed from ranked predictions, keeping their order
func (g *Generator) GenerateRSS(results []domain.PredictionResult) (string, error) {
	rssItems := make([]*RSSItem, 0, len(results))
	for i, res := range results {
		rssItems = append(rssItems, g.convertToRSSItem(i+1, res))
	}

	feed := &RSS{
		Version: "2.0",
		Atom:    "http://www.w3.org/2005/Atom",
		Channel: &RSSChannel{
			Title:         g.title,
			Link:          g.baseURL + "/",
			Description:   "Recent episodes ranked by predicted banger probability",
			AtomLink:      &AtomLink{Href: g.baseURL + "/rss", Rel: "self", Type: "application/rss+xml"},
			LastBuildDate: time.Now().Format(time.RFC1123Z),
			Items:         rssItems,
		},
	}

	output, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal RSS: %w", err)
	}

	return xml.Header + string(output), nil
}

// convertToRSSItem converts a ranked prediction to an RSS item
func (g *Generator) convertToRSSItem(rank int, res domain.PredictionResult) *RSSItem {
	return &RSSItem{
		Title:       fmt.Sprintf("[%.2f] %s", res.Probability, res.Title),
		GUID:        fmt.Sprintf("%d-%s", res.Published.Unix(), res.Title),
		Description: fmt.Sprintf("Rank %d, banger probability %.0f%%", rank, res.Probability*100),
		PubDate:     res.Published.Format(time.RFC1123Z),
	}
}
