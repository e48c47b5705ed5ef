// Package page defines the navigable document abstraction the crawler and the
// probes drive. Implementations live in browser (headless Chrome) and static
// (plain HTTP + goquery).
package page

import (
	"context"
	"errors"
	"time"

	"github.com/stupside/marquee/internal/film"
)

var (
	ErrNavigation  = errors.New("navigation failed")
	ErrTimeout     = errors.New("timed out")
	ErrInteraction = errors.New("interaction failed")
	ErrUnsupported = errors.New("unsupported by session")
	// ErrNotFound reports a wait for an element that cannot appear later.
	ErrNotFound = errors.New("element not in document")
)

// WaitUntil selects the load milestone Navigate waits for.
type WaitUntil string

const (
	WaitLoad        WaitUntil = "load"
	WaitDOMReady    WaitUntil = "domcontentloaded"
	WaitNetworkIdle WaitUntil = "networkidle"
)

// Element is an opaque handle to a node of the current document. Handles are
// only valid until the next navigation of the session that produced them.
type Element interface {
	// Description is a short human-readable label used in logs.
	Description() string
}

// Session is a single navigable page. A Session is not safe for concurrent
// use; each worker owns its own.
type Session interface {
	// Navigate loads url. Failures wrap ErrNavigation or ErrTimeout.
	Navigate(ctx context.Context, url string, waitUntil WaitUntil) error

	// Find returns the first element matching loc without waiting.
	Find(ctx context.Context, loc film.Locator) (Element, bool, error)

	// FindAll returns every element matching loc without waiting.
	FindAll(ctx context.Context, loc film.Locator) ([]Element, error)

	// Click activates el. Failures wrap ErrInteraction.
	Click(ctx context.Context, el Element) error

	// WaitFor blocks at most timeout for an element matching any of locs and
	// returns the first one to appear. Expiry wraps ErrTimeout.
	WaitFor(ctx context.Context, timeout time.Duration, locs ...film.Locator) (Element, error)

	// Attribute reads an attribute of el.
	Attribute(ctx context.Context, el Element, name string) (string, bool, error)

	// Text returns the visible text of el.
	Text(ctx context.Context, el Element) (string, error)

	// HTML returns the current document markup.
	HTML(ctx context.Context) (string, error)

	// URL returns the address of the current document.
	URL() string

	Close() error
}

// Factory opens new sessions. Opening is the only fatal failure of a run.
type Factory interface {
	Open(ctx context.Context) (Session, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (Session, error)

func (f FactoryFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}
