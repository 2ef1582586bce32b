// Package aggregator is the consumer-side client of the dashboard API.
//
// It fetches all six category endpoints in parallel, tolerates individual
// category failures by substituting empty lists, and unions the per-category
// "data as of" timestamps into one aggregate timestamp by taking the maximum.
// The terminal monitor builds on it.
package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/slippax/lotus-ge/internal/summaries"
)

// CategoryData is one category's fetched result
type CategoryData struct {
	Category    summaries.Category
	Items       []map[string]interface{}
	DataUpdated string // ISO-8601; empty when the server reported null
	Cached      bool
	Err         error // non-nil when the request failed; Items is empty then
}

// Aggregate is the combined result of one full fetch pass
type Aggregate struct {
	Results     map[summaries.Category]CategoryData
	DataUpdated string // Maximum of the per-category timestamps
	FetchedAt   time.Time
}

// Client fetches opportunity data from a running dashboard server
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates an aggregator client for the given server base URL
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "aggregator").Logger(),
	}
}

// envelope mirrors the server's uniform response shape
type envelope struct {
	Success     bool                     `json:"success"`
	Data        []map[string]interface{} `json:"data"`
	DataUpdated *string                  `json:"dataUpdated"`
	Cached      bool                     `json:"cached"`
	Count       int                      `json:"count"`
	Error       string                   `json:"error"`
}

// FetchAll requests every category in parallel and waits for all of them.
// A failed category degrades to an empty list instead of aborting the batch.
func (c *Client) FetchAll(ctx context.Context) Aggregate {
	results := make(map[summaries.Category]CategoryData, len(summaries.Categories()))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, category := range summaries.Categories() {
		wg.Add(1)
		go func(cat summaries.Category) {
			defer wg.Done()
			data := c.fetchCategory(ctx, cat)
			mu.Lock()
			results[cat] = data
			mu.Unlock()
		}(category)
	}
	wg.Wait()

	return Aggregate{
		Results:     results,
		DataUpdated: maxUpdated(results),
		FetchedAt:   time.Now(),
	}
}

// FetchCategory requests a single category
func (c *Client) FetchCategory(ctx context.Context, category summaries.Category) CategoryData {
	return c.fetchCategory(ctx, category)
}

func (c *Client) fetchCategory(ctx context.Context, category summaries.Category) CategoryData {
	data := CategoryData{
		Category: category,
		Items:    []map[string]interface{}{},
	}

	url := fmt.Sprintf("%s/api/%s", c.baseURL, category)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		data.Err = fmt.Errorf("failed to create request for %s: %w", category, err)
		return data
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("category", string(category)).Msg("Category fetch failed")
		data.Err = fmt.Errorf("request for %s failed: %w", category, err)
		return data
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		data.Err = fmt.Errorf("failed to read %s response: %w", category, err)
		return data
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		data.Err = fmt.Errorf("failed to parse %s response: %w", category, err)
		return data
	}

	if !env.Success {
		data.Err = fmt.Errorf("server error for %s: %s", category, env.Error)
		return data
	}

	data.Items = normalizeItems(category, env.Data)
	data.Cached = env.Cached
	if env.DataUpdated != nil {
		data.DataUpdated = *env.DataUpdated
	}

	return data
}

// maxUpdated unions per-category timestamps by taking the maximum
func maxUpdated(results map[summaries.Category]CategoryData) string {
	var maxStr string
	var maxTime time.Time

	for _, data := range results {
		if data.DataUpdated == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, data.DataUpdated)
		if err != nil {
			continue
		}
		if maxStr == "" || parsed.After(maxTime) {
			maxStr = data.DataUpdated
			maxTime = parsed
		}
	}

	return maxStr
}
