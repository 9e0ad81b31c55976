package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/finbase/stock-ingestor/pkg/metrics"
)

// Throttle enforces a minimum delay between consecutive provider calls.
// One shared instance covers all symbols of a run. The gate is rechecked
// after every sleep, so even with concurrent callers only one is released
// per interval.
type Throttle struct {
	interval time.Duration

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	last time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		interval: interval,
		now:      time.Now,
		sleep:    sleepFor,
	}
}

// Wait blocks until at least the configured interval has elapsed since the
// last release, then records a new release and returns. An interval of zero
// never delays. The only error is context cancellation.
func (t *Throttle) Wait(ctx context.Context) error {
	if t.interval <= 0 {
		return nil
	}

	for {
		t.mu.Lock()
		wait := t.interval - t.now().Sub(t.last)
		if wait <= 0 {
			t.last = t.now()
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		metrics.ThrottleWait.Observe(wait.Seconds())
		if err := t.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
