package static

import (
	"context"

	"github.com/stupside/marquee/internal/page"
)

var _ page.Factory = Factory(nil)

// Factory opens a new static Session per call with the same options.
type Factory []Option

func (f Factory) Open(_ context.Context) (page.Session, error) {
	return New(f...), nil
}
