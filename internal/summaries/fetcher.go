package summaries

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Document is one category's summary document as published by the pipeline
type Document struct {
	Updated     string      `json:"updated"` // ISO-8601; empty when upstream reported none
	Items       []RawRecord `json:"items"`
	Methodology string      `json:"methodology,omitempty"`
}

// FetcherConfig holds fetcher configuration
type FetcherConfig struct {
	Repo    string // "owner/repo" of the data repository
	Branch  string
	Token   string // Optional GitHub token for the contents API
	Timeout time.Duration

	// Base URL overrides for tests; production values used when empty
	APIBaseURL string
	RawBaseURL string
}

// Fetcher resolves summary documents from a two-tier remote source.
//
// The primary tier is the GitHub contents API, which serves fresh content but
// is rate limited. The secondary tier is the raw flat-file host, unauthenticated
// and heavily CDN-cached, busted with a timestamp query parameter. A category
// whose document cannot be retrieved from either tier yields an empty document,
// never an error: "no data available" is not a failure.
type Fetcher struct {
	repo       string
	branch     string
	token      string
	apiBaseURL string
	rawBaseURL string
	httpClient *http.Client
	log        zerolog.Logger
	now        func() time.Time
}

// NewFetcher creates a new summary document fetcher
func NewFetcher(cfg FetcherConfig, log zerolog.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = "https://api.github.com"
	}
	rawBase := cfg.RawBaseURL
	if rawBase == "" {
		rawBase = "https://raw.githubusercontent.com"
	}

	return &Fetcher{
		repo:       cfg.Repo,
		branch:     cfg.Branch,
		token:      cfg.Token,
		apiBaseURL: apiBase,
		rawBaseURL: rawBase,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "summary_fetcher").Logger(),
		now:        time.Now,
	}
}

// Fetch retrieves the summary document for a category.
//
// The only error ever returned is the caller's own context cancellation; all
// upstream failures (both tiers down, non-2xx statuses, malformed bodies)
// collapse to an empty document.
func (f *Fetcher) Fetch(ctx context.Context, category Category) (Document, error) {
	doc, err := f.fetchPrimary(ctx, category)
	if err == nil {
		return doc, nil
	}

	f.log.Warn().
		Err(err).
		Str("category", string(category)).
		Msg("Primary source failed, falling back to raw endpoint")

	doc, err = f.fetchSecondary(ctx, category)
	if err == nil {
		return doc, nil
	}

	f.log.Warn().
		Err(err).
		Str("category", string(category)).
		Msg("Secondary source failed, returning empty document")

	if ctx.Err() != nil {
		return Document{}, ctx.Err()
	}

	return Document{Items: []RawRecord{}}, nil
}

// fetchPrimary requests the document through the GitHub contents API
func (f *Fetcher) fetchPrimary(ctx context.Context, category Category) (Document, error) {
	url := fmt.Sprintf("%s/repos/%s/contents/data/summaries/%s?ref=%s",
		f.apiBaseURL, f.repo, category.RemoteFile(), f.branch)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create primary request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.raw")
	req.Header.Set("Cache-Control", "no-cache")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	return f.doRequest(req, "primary")
}

// fetchSecondary requests the document from the raw flat-file host,
// appending a timestamp to defeat CDN caching
func (f *Fetcher) fetchSecondary(ctx context.Context, category Category) (Document, error) {
	url := fmt.Sprintf("%s/%s/%s/data/summaries/%s?t=%d",
		f.rawBaseURL, f.repo, f.branch, category.RemoteFile(), f.now().UnixMilli())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create secondary request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	return f.doRequest(req, "secondary")
}

// doRequest executes a request and decodes the summary document body
func (f *Fetcher) doRequest(req *http.Request, tier string) (Document, error) {
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("%s request failed: %w", tier, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return Document{}, fmt.Errorf("%s returned status %d", tier, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read %s body: %w", tier, err)
	}

	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse %s body: %w", tier, err)
	}

	if doc.Items == nil {
		doc.Items = []RawRecord{}
	}

	return doc, nil
}
