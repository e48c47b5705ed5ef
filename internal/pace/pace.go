// Package pace spaces out requests to the same origin: a token bucket per host
// plus a randomized think-time between consecutive requests.
package pace

import (
	"context"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Waiter blocks until a request to rawURL may be sent.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Jitter is an inclusive range random delays are drawn from.
type Jitter struct {
	Min time.Duration
	Max time.Duration
}

// Draw returns a uniformly random duration in [Min, Max].
func (j Jitter) Draw() time.Duration {
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + rand.N(j.Max-j.Min+1)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Waiter = (*Pacer)(nil)

// Pacer enforces per-host pacing. It is safe for concurrent use; workers
// hitting the same host are spaced out relative to each other.
type Pacer struct {
	think Jitter
	rps   float64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	next     map[string]time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithRate caps requests per second per host. Zero disables the cap.
func WithRate(rps float64) Option {
	return func(p *Pacer) {
		p.rps = rps
	}
}

// WithClock replaces the time source and sleeper, for tests.
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pacer) {
		p.now = now
		p.sleep = sleep
	}
}

// New creates a Pacer with think-time drawn from think.
func New(think Jitter, opts ...Option) *Pacer {
	p := &Pacer{
		think:    think,
		limiters: make(map[string]*rate.Limiter),
		next:     make(map[string]time.Time),
		now:      time.Now,
		sleep:    Sleep,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait blocks until the host of rawURL may be requested again. The first
// request to a host is never delayed by think-time.
func (p *Pacer) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)

	p.mu.Lock()
	now := p.now()
	at, seen := p.next[host]
	if !seen || at.Before(now) {
		at = now
	}
	p.next[host] = at.Add(p.think.Draw())
	limiter := p.limiter(host)
	p.mu.Unlock()

	if err := p.sleep(ctx, at.Sub(now)); err != nil {
		return err
	}
	if limiter != nil {
		return limiter.Wait(ctx)
	}
	return nil
}

// limiter returns the host's token bucket. Must be called with mu held.
func (p *Pacer) limiter(host string) *rate.Limiter {
	if p.rps <= 0 {
		return nil
	}
	l, ok := p.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(p.rps), 1)
		p.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

// Nop never waits.
type Nop struct{}

func (Nop) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}
