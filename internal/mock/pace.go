package mock

import (
	"context"

	"github.com/stupside/marquee/internal/pace"
)

var _ pace.Waiter = (*Waiter)(nil)

// Waiter is a mock implementation of pace.Waiter.
type Waiter struct {
	WaitFn func(ctx context.Context, rawURL string) error
}

func (w *Waiter) Wait(ctx context.Context, rawURL string) error {
	if w.WaitFn == nil {
		return nil
	}
	return w.WaitFn(ctx, rawURL)
}
