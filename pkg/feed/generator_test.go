package feed

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/bangers/pkg/domain"
)

func TestGenerator_GenerateRSS(t *testing.T) {
	generator := NewGenerator("https://example.com/", "")

	pubTime := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	results := []domain.PredictionResult{
		{Title: "Game 7 Reaction", Published: pubTime, Probability: 0.874},
		{Title: "Daily Duncs", Published: pubTime.Add(time.Hour), Probability: 0.1},
	}

	rss, err := generator.GenerateRSS(results)
	require.NoError(t, err)

	assert.Contains(t, rss, `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, rss, `<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	assert.Contains(t, rss, `<title>Bangers</title>`)
	assert.Contains(t, rss, `<link>https://example.com/</link>`)
	assert.Contains(t, rss, `<title>[0.87] Game 7 Reaction</title>`)
	assert.Contains(t, rss, `<pubDate>Sat, 01 Jun 2024 20:00:00 +0000</pubDate>`)
	assert.Contains(t, rss, `Rank 1, banger probability 87%`)

	var doc RSS
	require.NoError(t, xml.Unmarshal([]byte(rss[len(xml.Header):]), &doc))
	require.NotNil(t, doc.Channel)
	require.Len(t, doc.Channel.Items, 2)
	assert.Equal(t, "[0.10] Daily Duncs", doc.Channel.Items[1].Title, "order is kept")
	assert.Contains(t, rss, `href="https://example.com/rss"`)
}

func TestGenerator_GenerateRSSEmpty(t *testing.T) {
	rss, err := NewGenerator("https://example.com", "Custom").GenerateRSS(nil)
	require.NoError(t, err)
	assert.Contains(t, rss, `<title>Custom</title>`)
	assert.NotContains(t, rss, "<item>")
}
