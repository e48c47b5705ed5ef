// Package static implements page.Session over plain HTTP and goquery, for
// catalogs whose players are already present in server-rendered markup.
package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/page"
)

// DefaultTimeout bounds each HTTP request.
const DefaultTimeout = 15 * time.Second

var _ page.Session = (*Session)(nil)

var errNoDocument = errors.New("no document loaded")

// Session is a page.Session that never executes JavaScript. Clicks are no-ops
// and waits succeed only if the element is already in the markup.
type Session struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	proxy     *url.URL

	doc *goquery.Document
	raw string
	loc *url.URL
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.timeout = d
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(s *Session) {
		s.userAgent = ua
	}
}

// WithProxy routes requests through proxy.
func WithProxy(proxy *url.URL) Option {
	return func(s *Session) {
		s.proxy = proxy
	}
}

// New creates a Session.
func New(opts ...Option) *Session {
	s := &Session{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(s)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if s.proxy != nil {
		transport.Proxy = http.ProxyURL(s.proxy)
	}
	s.client = &http.Client{Timeout: s.timeout, Transport: transport}
	return s
}

// Navigate fetches rawURL and parses the response. waitUntil is ignored:
// the document is complete once the body has been read.
func (s *Session) Navigate(ctx context.Context, rawURL string, _ page.WaitUntil) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", page.ErrNavigation, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: loading %s: %w", page.ErrNavigation, rawURL, page.ErrTimeout)
		}
		return fmt.Errorf("%w: loading %s: %v", page.ErrNavigation, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: HTTP %d for %s", page.ErrNavigation, resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %v", page.ErrNavigation, rawURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("%w: parsing %s: %v", page.ErrNavigation, rawURL, err)
	}

	s.doc = doc
	s.raw = string(body)
	s.loc = resp.Request.URL
	return nil
}

func (s *Session) Find(ctx context.Context, loc film.Locator) (page.Element, bool, error) {
	els, err := s.FindAll(ctx, loc)
	if err != nil || len(els) == 0 {
		return nil, false, err
	}
	return els[0], true, nil
}

func (s *Session) FindAll(_ context.Context, loc film.Locator) ([]page.Element, error) {
	sel, err := s.match(loc)
	if err != nil {
		return nil, err
	}
	els := make([]page.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		els = append(els, element{sel: node, desc: loc.String()})
	})
	return els, nil
}

// Click is a no-op: static markup has nothing to reveal.
func (s *Session) Click(_ context.Context, el page.Element) error {
	if _, ok := el.(element); !ok {
		return fmt.Errorf("%w: foreign element %T", page.ErrInteraction, el)
	}
	return nil
}

// WaitFor checks the document once; nothing can appear later.
func (s *Session) WaitFor(ctx context.Context, _ time.Duration, locs ...film.Locator) (page.Element, error) {
	for _, loc := range locs {
		el, ok, err := s.Find(ctx, loc)
		if err != nil {
			return nil, err
		}
		if ok {
			return el, nil
		}
	}
	return nil, fmt.Errorf("waiting for %v: %w", locs, page.ErrNotFound)
}

func (s *Session) Attribute(_ context.Context, el page.Element, name string) (string, bool, error) {
	e, ok := el.(element)
	if !ok {
		return "", false, fmt.Errorf("%w: foreign element %T", page.ErrInteraction, el)
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (s *Session) Text(_ context.Context, el page.Element) (string, error) {
	e, ok := el.(element)
	if !ok {
		return "", fmt.Errorf("%w: foreign element %T", page.ErrInteraction, el)
	}
	return strings.TrimSpace(e.sel.Text()), nil
}

func (s *Session) HTML(_ context.Context) (string, error) {
	if s.doc == nil {
		return "", fmt.Errorf("%w: %w", page.ErrInteraction, errNoDocument)
	}
	return s.raw, nil
}

func (s *Session) URL() string {
	if s.loc == nil {
		return ""
	}
	return s.loc.String()
}

// Close releases idle connections.
func (s *Session) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Session) match(loc film.Locator) (*goquery.Selection, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("%w: %w", page.ErrInteraction, errNoDocument)
	}
	switch loc.Strategy {
	case film.ByCSS, "":
		return s.doc.Find(loc.Value), nil
	case film.ByText:
		want := strings.TrimSpace(loc.Value)
		return s.doc.Find("body *").FilterFunction(func(_ int, sel *goquery.Selection) bool {
			return ownText(sel) == want
		}), nil
	default:
		return nil, fmt.Errorf("locator strategy %q: %w", loc.Strategy, page.ErrUnsupported)
	}
}

// ownText joins the element's direct text children, ignoring descendants.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return strings.TrimSpace(b.String())
}

type element struct {
	sel  *goquery.Selection
	desc string
}

func (e element) Description() string {
	return e.desc
}
