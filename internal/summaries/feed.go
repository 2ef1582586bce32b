package summaries

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/slippax/lotus-ge/internal/events"
)

// DefaultTTL is the freshness window for cached summary results
const DefaultTTL = 5 * time.Second

// Entry is one category's cached result. Entries are replaced wholesale on
// refresh, never partially mutated.
type Entry struct {
	Opportunities []interface{}
	FetchedAt     time.Time
	SourceUpdated string // ISO-8601 from upstream; empty when it reported none
}

// Result is what callers receive from a feed
type Result struct {
	Opportunities []interface{}
	FetchedAt     time.Time
	SourceUpdated string
	Cached        bool
}

// FetchFunc retrieves a category's summary document
type FetchFunc func(ctx context.Context, category Category) (Document, error)

// FeedConfig holds feed construction parameters
type FeedConfig struct {
	Category Category
	Fetch    FetchFunc
	TTL      time.Duration    // DefaultTTL when zero
	Now      func() time.Time // injectable clock for tests
	Bus      *events.Bus      // optional
	Store    *SnapshotStore   // optional
}

// Feed serves one category's normalized opportunities from a short-lived
// in-memory cache, refreshing from the two-tier source on expiry.
//
// Concurrent readers share one refresh: a singleflight group collapses
// simultaneous misses into a single upstream fetch, so within a fresh window
// every caller observes the same entry and no duplicate fetch is issued.
type Feed struct {
	category  Category
	fetch     FetchFunc
	normalize NormalizeFunc
	ttl       time.Duration
	now       func() time.Time
	bus       *events.Bus
	store     *SnapshotStore
	log       zerolog.Logger

	mu    sync.RWMutex
	entry *Entry
	group singleflight.Group
}

// NewFeed creates a feed for one category
func NewFeed(cfg FeedConfig, log zerolog.Logger) *Feed {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Feed{
		category:  cfg.Category,
		fetch:     cfg.Fetch,
		normalize: normalizers[cfg.Category],
		ttl:       ttl,
		now:       now,
		bus:       cfg.Bus,
		store:     cfg.Store,
		log:       log.With().Str("component", "feed").Str("category", string(cfg.Category)).Logger(),
	}
}

// Category returns the category this feed serves
func (f *Feed) Category() Category {
	return f.category
}

// Get returns the cached entry when fresh, refreshing otherwise.
// On an unexpected refresh error the previous entry is left untouched, so
// stale data survives transient faults.
func (f *Feed) Get(ctx context.Context) (Result, error) {
	if res, ok := f.cached(); ok {
		return res, nil
	}

	v, err, _ := f.group.Do(string(f.category), func() (interface{}, error) {
		// Another caller may have refreshed while we waited on the group
		if res, ok := f.cached(); ok {
			return res, nil
		}
		return f.refresh(ctx)
	})
	if err != nil {
		return Result{}, err
	}

	return v.(Result), nil
}

// Refresh unconditionally fetches, normalizes and replaces the cache entry
func (f *Feed) Refresh(ctx context.Context) (Result, error) {
	v, err, _ := f.group.Do(string(f.category)+":force", func() (interface{}, error) {
		return f.refresh(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// cached returns the current entry if it is within the freshness window
func (f *Feed) cached() (Result, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.entry == nil {
		return Result{}, false
	}
	if f.now().Sub(f.entry.FetchedAt) >= f.ttl {
		return Result{}, false
	}

	return Result{
		Opportunities: f.entry.Opportunities,
		FetchedAt:     f.entry.FetchedAt,
		SourceUpdated: f.entry.SourceUpdated,
		Cached:        true,
	}, true
}

func (f *Feed) refresh(ctx context.Context) (Result, error) {
	doc, err := f.fetch(ctx, f.category)
	if err != nil {
		f.log.Error().Err(err).Msg("Refresh failed, keeping previous entry")
		return Result{}, err
	}

	opportunities := f.normalize(doc.Items)

	// The upstream document's own timestamp anchors the freshness window when
	// present, so all consumers agree on "data as of".
	fetchedAt := f.now()
	if doc.Updated != "" {
		if parsed, perr := time.Parse(time.RFC3339, doc.Updated); perr == nil {
			fetchedAt = parsed
		}
	}

	entry := &Entry{
		Opportunities: opportunities,
		FetchedAt:     fetchedAt,
		SourceUpdated: doc.Updated,
	}

	f.mu.Lock()
	f.entry = entry
	f.mu.Unlock()

	if f.store != nil && len(doc.Items) > 0 {
		if serr := f.store.Save(ctx, f.category, doc, fetchedAt); serr != nil {
			f.log.Warn().Err(serr).Msg("Failed to persist snapshot")
		}
	}

	if f.bus != nil {
		f.bus.Emit(events.SummaryRefreshed, "summaries", map[string]interface{}{
			"category": string(f.category),
			"count":    len(opportunities),
			"updated":  doc.Updated,
		})
	}

	f.log.Debug().
		Int("count", len(opportunities)).
		Str("updated", doc.Updated).
		Msg("Feed refreshed")

	return Result{
		Opportunities: entry.Opportunities,
		FetchedAt:     entry.FetchedAt,
		SourceUpdated: entry.SourceUpdated,
		Cached:        false,
	}, nil
}

// Prime seeds the cache entry from a stored snapshot without contacting the
// source. Used at startup so a cold process can serve the last known data.
func (f *Feed) Prime(doc Document, fetchedAt time.Time) {
	opportunities := f.normalize(doc.Items)

	f.mu.Lock()
	defer f.mu.Unlock()

	// Never clobber a live entry with an old snapshot
	if f.entry != nil {
		return
	}

	f.entry = &Entry{
		Opportunities: opportunities,
		FetchedAt:     fetchedAt,
		SourceUpdated: doc.Updated,
	}
}

// Age returns how old the current entry is, and whether one exists
func (f *Feed) Age() (time.Duration, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.entry == nil {
		return 0, false
	}
	return f.now().Sub(f.entry.FetchedAt), true
}
