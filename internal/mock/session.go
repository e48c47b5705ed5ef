// Package mock provides function-field test doubles for the interfaces in
// page, probe and pace.
package mock

import (
	"context"
	"time"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/page"
)

var (
	_ page.Session = (*Session)(nil)
	_ page.Element = Element("")
)

// Element is a mock page.Element identified by its label.
type Element string

func (e Element) Description() string {
	return string(e)
}

// Session is a mock implementation of page.Session. Nil functions fall back
// to an empty page: nothing found, every wait times out.
type Session struct {
	NavigateFn  func(ctx context.Context, url string, waitUntil page.WaitUntil) error
	FindFn      func(ctx context.Context, loc film.Locator) (page.Element, bool, error)
	FindAllFn   func(ctx context.Context, loc film.Locator) ([]page.Element, error)
	ClickFn     func(ctx context.Context, el page.Element) error
	WaitForFn   func(ctx context.Context, timeout time.Duration, locs ...film.Locator) (page.Element, error)
	AttributeFn func(ctx context.Context, el page.Element, name string) (string, bool, error)
	TextFn      func(ctx context.Context, el page.Element) (string, error)
	HTMLFn      func(ctx context.Context) (string, error)
	CloseFn     func() error

	CurrentURL string
}

func (s *Session) Navigate(ctx context.Context, url string, waitUntil page.WaitUntil) error {
	s.CurrentURL = url
	if s.NavigateFn == nil {
		return nil
	}
	return s.NavigateFn(ctx, url, waitUntil)
}

func (s *Session) Find(ctx context.Context, loc film.Locator) (page.Element, bool, error) {
	if s.FindFn == nil {
		return nil, false, nil
	}
	return s.FindFn(ctx, loc)
}

func (s *Session) FindAll(ctx context.Context, loc film.Locator) ([]page.Element, error) {
	if s.FindAllFn == nil {
		return nil, nil
	}
	return s.FindAllFn(ctx, loc)
}

func (s *Session) Click(ctx context.Context, el page.Element) error {
	if s.ClickFn == nil {
		return nil
	}
	return s.ClickFn(ctx, el)
}

func (s *Session) WaitFor(ctx context.Context, timeout time.Duration, locs ...film.Locator) (page.Element, error) {
	if s.WaitForFn == nil {
		return nil, page.ErrTimeout
	}
	return s.WaitForFn(ctx, timeout, locs...)
}

func (s *Session) Attribute(ctx context.Context, el page.Element, name string) (string, bool, error) {
	if s.AttributeFn == nil {
		return "", false, nil
	}
	return s.AttributeFn(ctx, el, name)
}

func (s *Session) Text(ctx context.Context, el page.Element) (string, error) {
	if s.TextFn == nil {
		return "", nil
	}
	return s.TextFn(ctx, el)
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	if s.HTMLFn == nil {
		return "", nil
	}
	return s.HTMLFn(ctx)
}

func (s *Session) URL() string {
	return s.CurrentURL
}

func (s *Session) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
