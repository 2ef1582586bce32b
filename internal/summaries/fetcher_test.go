package summaries

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, primary, secondary http.HandlerFunc) *Fetcher {
	t.Helper()

	var apiURL, rawURL string
	if primary != nil {
		apiServer := httptest.NewServer(primary)
		t.Cleanup(apiServer.Close)
		apiURL = apiServer.URL
	} else {
		apiURL = "http://127.0.0.1:1" // nothing listening
	}
	if secondary != nil {
		rawServer := httptest.NewServer(secondary)
		t.Cleanup(rawServer.Close)
		rawURL = rawServer.URL
	} else {
		rawURL = "http://127.0.0.1:1"
	}

	return NewFetcher(FetcherConfig{
		Repo:       "slippax/lotus-ge-data",
		Branch:     "main",
		Timeout:    2 * time.Second,
		APIBaseURL: apiURL,
		RawBaseURL: rawURL,
	}, zerolog.New(nil).Level(zerolog.Disabled))
}

func TestFetchPrimarySuccess(t *testing.T) {
	var gotAccept, gotPath string
	primary := func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		gotPath = r.URL.Path
		w.Write([]byte(`{"updated":"2026-08-23T10:00:00Z","items":[{"ItemName":"Rune axe"}]}`))
	}

	f := newTestFetcher(t, primary, nil)
	doc, err := f.Fetch(context.Background(), CategoryAlchemyFloors)
	require.NoError(t, err)

	assert.Equal(t, "application/vnd.github.raw", gotAccept)
	assert.Equal(t, "/repos/slippax/lotus-ge-data/contents/data/summaries/alchemy-floors.json", gotPath)
	assert.Equal(t, "2026-08-23T10:00:00Z", doc.Updated)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "Rune axe", doc.Items[0]["ItemName"])
}

func TestFetchFallsBackOnRateLimit(t *testing.T) {
	primary := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}
	secondary := func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("t")) // cache buster
		w.Write([]byte(`{"updated":"2026-08-23T10:05:00Z","items":[{"ItemName":"Yew logs"}]}`))
	}

	f := newTestFetcher(t, primary, secondary)
	doc, err := f.Fetch(context.Background(), CategoryDipDetection)
	require.NoError(t, err)

	// Secondary document served transparently, no trace of the 403
	assert.Equal(t, "2026-08-23T10:05:00Z", doc.Updated)
	require.Len(t, doc.Items, 1)
}

func TestFetchFallsBackOnMalformedBody(t *testing.T) {
	primary := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"updated": not json`))
	}
	secondary := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}

	f := newTestFetcher(t, primary, secondary)
	doc, err := f.Fetch(context.Background(), CategoryConfluence)
	require.NoError(t, err)
	assert.Empty(t, doc.Items)
	assert.NotNil(t, doc.Items)
}

func TestFetchNeverThrows(t *testing.T) {
	// Both tiers unreachable: empty document, no error
	f := newTestFetcher(t, nil, nil)
	doc, err := f.Fetch(context.Background(), CategoryVolumeProfile)
	require.NoError(t, err)

	assert.NotNil(t, doc.Items)
	assert.Empty(t, doc.Items)
	assert.Empty(t, doc.Updated)
}

func TestFetchBothTiersFailWithStatus(t *testing.T) {
	fail := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}

	f := newTestFetcher(t, fail, fail)
	doc, err := f.Fetch(context.Background(), CategoryRecipeArbitrage)
	require.NoError(t, err)
	assert.Empty(t, doc.Items)
}

func TestFetchNullUpdated(t *testing.T) {
	primary := func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"updated":null,"items":[]}`))
	}

	f := newTestFetcher(t, primary, nil)
	doc, err := f.Fetch(context.Background(), CategoryVolatilityBreakout)
	require.NoError(t, err)
	assert.Empty(t, doc.Updated)
	assert.NotNil(t, doc.Items)
}

func TestFetchCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(t, nil, nil)
	_, err := f.Fetch(ctx, CategoryAlchemyFloors)
	assert.Error(t, err)
}

func TestFetchSendsAuthorizationWhenConfigured(t *testing.T) {
	var gotAuth string
	apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"items":[]}`))
	}))
	t.Cleanup(apiServer.Close)

	f := NewFetcher(FetcherConfig{
		Repo:       "slippax/lotus-ge-data",
		Branch:     "main",
		Token:      "ghp_test",
		APIBaseURL: apiServer.URL,
		RawBaseURL: "http://127.0.0.1:1",
	}, zerolog.New(nil).Level(zerolog.Disabled))

	_, err := f.Fetch(context.Background(), CategoryAlchemyFloors)
	require.NoError(t, err)
	assert.Equal(t, "Bearer ghp_test", gotAuth)
}
