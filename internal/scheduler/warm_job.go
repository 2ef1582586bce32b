package scheduler

import (
	"context"
	"time"

	"github.com/slippax/lotus-ge/internal/events"
	"github.com/slippax/lotus-ge/internal/summaries"
)

// WarmJob refreshes every summary feed so the first request after an idle
// period is served warm, and keeps the snapshot store current.
type WarmJob struct {
	summaries *summaries.Service
	bus       *events.Bus
	timeout   time.Duration
}

// NewWarmJob creates a cache warm job
func NewWarmJob(svc *summaries.Service, bus *events.Bus, timeout time.Duration) *WarmJob {
	if timeout == 0 {
		timeout = time.Minute
	}
	return &WarmJob{summaries: svc, bus: bus, timeout: timeout}
}

// Name implements Job
func (j *WarmJob) Name() string {
	return "cache_warm"
}

// Run implements Job
func (j *WarmJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.summaries.WarmAll(ctx)

	if j.bus != nil {
		j.bus.Emit(events.CacheWarmed, "scheduler", map[string]interface{}{
			"categories": len(summaries.Categories()),
		})
	}

	return nil
}
