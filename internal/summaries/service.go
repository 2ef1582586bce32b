package summaries

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/slippax/lotus-ge/internal/events"
)

// ServiceConfig holds service construction parameters
type ServiceConfig struct {
	Fetch FetchFunc
	TTL   time.Duration
	Now   func() time.Time
	Bus   *events.Bus
	Store *SnapshotStore
}

// Service owns one feed per category. It is constructed once at startup and
// handed to the HTTP layer, keeping cache lifecycle explicit rather than
// hidden in package-level state.
type Service struct {
	feeds map[Category]*Feed
	log   zerolog.Logger
}

// NewService builds feeds for every category
func NewService(cfg ServiceConfig, log zerolog.Logger) *Service {
	svc := &Service{
		feeds: make(map[Category]*Feed, len(Categories())),
		log:   log.With().Str("component", "summaries").Logger(),
	}

	for _, category := range Categories() {
		svc.feeds[category] = NewFeed(FeedConfig{
			Category: category,
			Fetch:    cfg.Fetch,
			TTL:      cfg.TTL,
			Now:      cfg.Now,
			Bus:      cfg.Bus,
			Store:    cfg.Store,
		}, log)
	}

	return svc
}

// Get serves one category, from cache when fresh
func (s *Service) Get(ctx context.Context, category Category) (Result, error) {
	feed, ok := s.feeds[category]
	if !ok {
		return Result{}, fmt.Errorf("unknown category: %s", category)
	}
	return feed.Get(ctx)
}

// Feed returns the feed for a category
func (s *Service) Feed(category Category) (*Feed, bool) {
	feed, ok := s.feeds[category]
	return feed, ok
}

// WarmAll refreshes every feed concurrently. Failures are per-category and
// logged; one broken category never blocks the others.
func (s *Service) WarmAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, category := range Categories() {
		wg.Add(1)
		go func(c Category) {
			defer wg.Done()
			if _, err := s.feeds[c].Refresh(ctx); err != nil {
				s.log.Warn().Err(err).Str("category", string(c)).Msg("Warm refresh failed")
			}
		}(category)
	}
	wg.Wait()
}

// PrimeFromSnapshots seeds feeds from the snapshot store so a cold process
// has data to serve before its first live fetch
func (s *Service) PrimeFromSnapshots(ctx context.Context, store *SnapshotStore) {
	if store == nil {
		return
	}

	for _, category := range Categories() {
		snapshot, err := store.Load(ctx, category)
		if err != nil {
			s.log.Warn().Err(err).Str("category", string(category)).Msg("Failed to load snapshot")
			continue
		}
		if snapshot == nil {
			continue
		}
		s.feeds[category].Prime(snapshot.Document, snapshot.FetchedAt)
		s.log.Info().
			Str("category", string(category)).
			Time("fetched_at", snapshot.FetchedAt).
			Msg("Primed feed from snapshot")
	}
}

// Ages reports per-category cache entry ages for the status endpoint
func (s *Service) Ages() map[Category]time.Duration {
	ages := make(map[Category]time.Duration)
	for category, feed := range s.feeds {
		if age, ok := feed.Age(); ok {
			ages[category] = age
		}
	}
	return ages
}
