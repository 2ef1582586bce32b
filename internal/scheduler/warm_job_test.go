package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slippax/lotus-ge/internal/events"
	"github.com/slippax/lotus-ge/internal/summaries"
)

func TestWarmJobRefreshesAllFeeds(t *testing.T) {
	var fetches int64
	svc := summaries.NewService(summaries.ServiceConfig{
		Fetch: func(ctx context.Context, cat summaries.Category) (summaries.Document, error) {
			atomic.AddInt64(&fetches, 1)
			return summaries.Document{Items: []summaries.RawRecord{}}, nil
		},
		TTL: 5 * time.Second,
	}, zerolog.New(nil).Level(zerolog.Disabled))

	bus := events.NewBus(zerolog.New(nil).Level(zerolog.Disabled))
	warmed := make(chan struct{}, 1)
	bus.Subscribe(events.CacheWarmed, func(e *events.Event) {
		warmed <- struct{}{}
	})

	job := NewWarmJob(svc, bus, time.Second)
	assert.Equal(t, "cache_warm", job.Name())
	require.NoError(t, job.Run())

	assert.Equal(t, int64(len(summaries.Categories())), atomic.LoadInt64(&fetches))

	select {
	case <-warmed:
	default:
		t.Fatal("expected cache warmed event")
	}
}
