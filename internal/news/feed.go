package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════════
// NEWS FEED - Finnhub general-category market news
// ═══════════════════════════════════════════════════════════════════════════════

const feedTimeout = 30 * time.Second

// FeedItem is one article as returned by the feed.
type FeedItem struct {
	ID       int64  `json:"id"`
	Headline string `json:"headline"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
	Datetime int64  `json:"datetime"` // unix seconds
}

// ExternalID is the provider-scoped unique id used for deduplication.
func (i FeedItem) ExternalID() string {
	return fmt.Sprintf("finnhub:%d", i.ID)
}

// PublishedAt converts the feed timestamp.
func (i FeedItem) PublishedAt() time.Time {
	return time.Unix(i.Datetime, 0).UTC()
}

type Feed struct {
	httpClient *http.Client
	apiKey     string
	maxItems   int
}

// NewFeed builds the feed client. maxItems caps one fetch.
func NewFeed(apiKey string, maxItems int) *Feed {
	return &Feed{
		httpClient: &http.Client{Timeout: feedTimeout},
		apiKey:     apiKey,
		maxItems:   maxItems,
	}
}

// Latest fetches the newest general-market articles, capped at maxItems.
func (f *Feed) Latest(ctx context.Context) ([]FeedItem, error) {
	u := fmt.Sprintf("https://finnhub.io/api/v1/news?category=general&token=%s",
		url.QueryEscape(f.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed status %d", resp.StatusCode)
	}

	var items []FeedItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("news feed decode failed: %w", err)
	}

	if len(items) > f.maxItems {
		items = items[:f.maxItems]
	}
	return items, nil
}
