package feed

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"

	"github.com/umputun/bangers/pkg/domain"
)

// Lookback is the trailing window of episodes considered for scoring. It is the window
// the model was trained on and is not adjustable per request.
const Lookback = 7 * 24 * time.Hour

// UnknownTitle is used for items without a title
const UnknownTitle = "Unknown Title"

// pubDate layouts, RFC-822 style date with numeric zone, "+0000", "+00:00" or "Z"
const (
	pubDateLayout      = "Mon, _2 Jan 2006 15:04:05 -0700"
	pubDateColonLayout = "Mon, _2 Jan 2006 15:04:05 Z07:00"
)

const maxFeedSize = 32 * 1024 * 1024

// ClientParams defines feed client settings
type ClientParams struct {
	Timeout    time.Duration // per attempt, defaults to 10s
	UserAgent  string        // defaults to DefaultUserAgent
	Retries    int           // extra attempts on transient failures
	RetryDelay time.Duration // initial backoff delay, defaults to 500ms
}

// Client fetches the podcast feed and returns recent episodes
type Client struct {
	client     *http.Client
	userAgent  string
	retries    int
	retryDelay time.Duration
	now        func() time.Time
}

// NewClient makes feed client
func NewClient(params ClientParams) *Client {
	if params.Timeout <= 0 {
		params.Timeout = 10 * time.Second
	}
	if params.UserAgent == "" {
		params.UserAgent = DefaultUserAgent
	}
	if params.RetryDelay <= 0 {
		params.RetryDelay = 500 * time.Millisecond
	}
	if params.Retries < 0 {
		params.Retries = 0
	}
	return &Client{
		client: &http.Client{
			Timeout: params.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:  params.UserAgent,
		retries:    params.Retries,
		retryDelay: params.RetryDelay,
		now:        time.Now,
	}
}

// Fetch retrieves the feed and returns episodes published within Lookback, in feed order.
// Items with missing or unparsable pubDate are skipped.
func (c *Client) Fetch(ctx context.Context, feedURL string) ([]domain.RawEpisode, error) {
	if strings.TrimSpace(feedURL) == "" {
		return nil, fmt.Errorf("%w: feed url is not set", domain.ErrConfiguration)
	}

	body, err := c.fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	channel, err := decode(body)
	if err != nil {
		return nil, err
	}

	cutoff := c.now().UTC().Add(-Lookback)
	episodes := make([]domain.RawEpisode, 0, len(channel.Items))
	skipped := 0
	for i, item := range channel.Items {
		ep, ok := toEpisode(item)
		if !ok {
			log.Printf("[DEBUG] skip item #%d, no valid pubDate", i)
			skipped++
			continue
		}
		if !ep.Published.After(cutoff) {
			continue
		}
		episodes = append(episodes, ep)
	}

	title, _ := plain(channel.Title)
	log.Printf("[INFO] feed %q has %d items, %d recent, %d without valid date", title, len(channel.Items), len(episodes), skipped)
	return episodes, nil
}

// fetch gets the feed body, retrying transport errors and 5xx responses
func (c *Client) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	var body []byte
	var permanent error
	retrier := repeater.NewBackoff(c.retries+1, c.retryDelay, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		data, retry, err := c.get(ctx, feedURL)
		if err == nil {
			body = data
			return nil
		}
		if !retry || ctx.Err() != nil {
			permanent = err
			return nil // stop retrying
		}
		log.Printf("[WARN] feed fetch failed, %v", err)
		return err
	})
	if permanent != nil {
		return nil, permanent
	}
	if err != nil {
		if !errors.Is(err, domain.ErrFeedUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
		}
		return nil, err
	}
	return body, nil
}

// get makes a single request, returns body and whether a failure is worth retrying
func (c *Client) get(ctx context.Context, feedURL string) (data []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, http.NoBody)
	if err != nil {
		return nil, false, fmt.Errorf("%w: make request: %w", domain.ErrFeedUnavailable, err)
	}
	addBrowserHeaders(req, c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retry = resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests
		return nil, retry, fmt.Errorf("%w: unexpected status %s", domain.ErrFeedUnavailable, resp.Status)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %w", domain.ErrFeedUnavailable, err)
	}
	return data, false, nil
}

// decode checks the document is an RSS feed and returns its channel. Feed type detection
// only names the rejected format in the error, strict decode below enforces the rss root.
func decode(body []byte) (*feedChannel, error) {
	switch gofeed.DetectFeedType(bytes.NewReader(body)) {
	case gofeed.FeedTypeRSS:
	case gofeed.FeedTypeAtom:
		return nil, fmt.Errorf("%w: atom feeds are not supported", domain.ErrFeedParse)
	case gofeed.FeedTypeJSON:
		return nil, fmt.Errorf("%w: json feeds are not supported", domain.ErrFeedParse)
	default:
		return nil, fmt.Errorf("%w: not an rss document", domain.ErrFeedParse)
	}

	var doc feedDocument
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedParse, err)
	}
	if doc.Channel == nil {
		return nil, fmt.Errorf("%w: no channel element", domain.ErrFeedParse)
	}

	// only whitespace, comments and processing instructions may follow the root element
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: after document element: %w", domain.ErrFeedParse, err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: junk after document element", domain.ErrFeedParse)
			}
		default:
			return nil, fmt.Errorf("%w: junk after document element", domain.ErrFeedParse)
		}
	}
	return doc.Channel, nil
}

// toEpisode converts feed item, returns false if the item has no parsable pubDate
func toEpisode(item feedItem) (domain.RawEpisode, bool) {
	pubDate, ok := plain(item.PubDate)
	if !ok {
		return domain.RawEpisode{}, false
	}
	published, err := parsePubDate(pubDate)
	if err != nil {
		return domain.RawEpisode{}, false
	}

	title, ok := plain(item.Title)
	if !ok || title == "" {
		title = UnknownTitle
	}
	description, _ := plain(item.Description)
	duration, _ := first(item.Duration)

	return domain.RawEpisode{
		Title:       title,
		Description: description,
		Published:   published,
		Duration:    duration,
	}, true
}

// parsePubDate accepts numeric zones only, named zones like GMT are rejected
func parsePubDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse(pubDateLayout, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(pubDateColonLayout, s)
}
