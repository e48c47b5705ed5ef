package browser

import (
	"context"

	"github.com/stupside/marquee/internal/app"
	"github.com/stupside/marquee/internal/page"
)

var _ page.Factory = Factory{}

// Factory starts a fresh browser for every session.
type Factory struct {
	Config app.BrowserConfig
}

func (f Factory) Open(ctx context.Context) (page.Session, error) {
	return New(ctx, f.Config)
}
