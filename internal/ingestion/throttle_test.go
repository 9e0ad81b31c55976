package ingestion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the throttle deterministically: sleeps advance the clock
// instead of blocking.
type fakeClock struct {
	now    time.Time
	slept  []time.Duration
	ctxErr error
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if c.ctxErr != nil {
		return c.ctxErr
	}
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
	return nil
}

func newTestThrottle(interval time.Duration, clock *fakeClock) *Throttle {
	throttle := NewThrottle(interval)
	throttle.now = clock.Now
	throttle.sleep = clock.Sleep
	return throttle
}

func TestThrottleSpacing(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(2*time.Second, clock)
	ctx := context.Background()

	// First call: no prior release recorded, but the zero last time is far
	// in the past, so no delay.
	require.NoError(t, throttle.Wait(ctx))
	firstRelease := clock.now

	require.NoError(t, throttle.Wait(ctx))
	secondRelease := clock.now

	assert.GreaterOrEqual(t, secondRelease.Sub(firstRelease), 2*time.Second)
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 2*time.Second, clock.slept[0])
}

func TestThrottlePartialElapse(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(10*time.Second, clock)
	ctx := context.Background()

	require.NoError(t, throttle.Wait(ctx))

	// Some of the interval has already passed by the next call.
	clock.now = clock.now.Add(4 * time.Second)

	require.NoError(t, throttle.Wait(ctx))
	require.Len(t, clock.slept, 1)
	assert.Equal(t, 6*time.Second, clock.slept[0])
}

func TestThrottleDisabled(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(0, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, throttle.Wait(ctx))
	}

	assert.Empty(t, clock.slept)
}

func TestThrottleSingleReleasePerInterval(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(2*time.Second, clock)
	ctx := context.Background()

	require.NoError(t, throttle.Wait(ctx))

	// Simulate a second waiter grabbing the slot while this one sleeps:
	// the release time moves forward during the first sleep, so the gate
	// must be rechecked and a full extra interval waited.
	stolen := false
	throttle.sleep = func(ctx context.Context, d time.Duration) error {
		clock.slept = append(clock.slept, d)
		clock.now = clock.now.Add(d)
		if !stolen {
			stolen = true
			throttle.last = clock.now
		}
		return nil
	}

	require.NoError(t, throttle.Wait(ctx))

	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.slept)
}

func TestThrottleContextCanceled(t *testing.T) {
	clock := newFakeClock()
	throttle := newTestThrottle(time.Second, clock)
	ctx := context.Background()

	require.NoError(t, throttle.Wait(ctx))

	clock.ctxErr = context.Canceled
	assert.ErrorIs(t, throttle.Wait(ctx), context.Canceled)
}
