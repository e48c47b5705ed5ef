package pace_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/marquee/internal/pace"
)

// fakeClock records requested sleeps and advances time by them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func TestJitter_Draw(t *testing.T) {
	t.Parallel()

	j := pace.Jitter{Min: 2 * time.Second, Max: 5 * time.Second}
	for range 200 {
		d := j.Draw()
		assert.GreaterOrEqual(t, d, j.Min)
		assert.LessOrEqual(t, d, j.Max)
	}

	assert.Equal(t, time.Second, pace.Jitter{Min: time.Second, Max: time.Second}.Draw())
	assert.Equal(t, time.Duration(0), pace.Jitter{}.Draw())
}

func TestPacer_Wait(t *testing.T) {
	t.Parallel()

	t.Run("first request to a host is immediate", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(0, 0)}
		p := pace.New(pace.Jitter{Min: 6 * time.Second, Max: 6 * time.Second}, pace.WithClock(clock.Now, clock.Sleep))

		require.NoError(t, p.Wait(context.Background(), "https://a.example/films/1"))
		assert.Equal(t, []time.Duration{0}, clock.sleeps)
	})

	t.Run("consecutive requests to one host are spaced", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(0, 0)}
		p := pace.New(pace.Jitter{Min: 6 * time.Second, Max: 6 * time.Second}, pace.WithClock(clock.Now, clock.Sleep))

		ctx := context.Background()
		require.NoError(t, p.Wait(ctx, "https://a.example/films/1"))
		require.NoError(t, p.Wait(ctx, "https://a.example/films/2"))
		require.NoError(t, p.Wait(ctx, "https://a.example/films/3"))

		assert.Equal(t, []time.Duration{0, 6 * time.Second, 6 * time.Second}, clock.sleeps)
	})

	t.Run("hosts are paced independently", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(0, 0)}
		p := pace.New(pace.Jitter{Min: 6 * time.Second, Max: 6 * time.Second}, pace.WithClock(clock.Now, clock.Sleep))

		ctx := context.Background()
		require.NoError(t, p.Wait(ctx, "https://a.example/1"))
		require.NoError(t, p.Wait(ctx, "https://b.example/1"))

		assert.Equal(t, []time.Duration{0, 0}, clock.sleeps)
	})

	t.Run("elapsed time counts toward the gap", func(t *testing.T) {
		t.Parallel()

		clock := &fakeClock{now: time.Unix(0, 0)}
		p := pace.New(pace.Jitter{Min: 6 * time.Second, Max: 6 * time.Second}, pace.WithClock(clock.Now, clock.Sleep))

		ctx := context.Background()
		require.NoError(t, p.Wait(ctx, "https://a.example/1"))
		clock.now = clock.now.Add(4 * time.Second)
		require.NoError(t, p.Wait(ctx, "https://a.example/2"))

		assert.Equal(t, []time.Duration{0, 2 * time.Second}, clock.sleeps)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		t.Parallel()

		p := pace.New(pace.Jitter{Min: time.Hour, Max: time.Hour})
		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, p.Wait(ctx, "https://a.example/1"))
		cancel()
		assert.ErrorIs(t, p.Wait(ctx, "https://a.example/2"), context.Canceled)
	})
}

func TestSleep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pace.Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, pace.Sleep(context.Background(), time.Millisecond))
}
