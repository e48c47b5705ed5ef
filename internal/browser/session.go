// Package browser implements page.Session on headless Chrome through
// chromedp. Each Session owns its own browser process.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/stupside/marquee/internal/app"
	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/pace"
	"github.com/stupside/marquee/internal/page"
)

// pollInterval is how often WaitFor re-queries the document.
const pollInterval = 250 * time.Millisecond

var _ page.Session = (*Session)(nil)

type element struct {
	node *cdp.Node
	desc string
}

func (e *element) Description() string {
	return e.desc
}

// Session drives one Chrome tab.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	idleWait time.Duration
	url      string
}

// New starts Chrome with cfg and returns a session on a blank tab.
func New(ctx context.Context, cfg app.BrowserConfig) (*Session, error) {
	profile := NewProfile(cfg.UserAgent)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(cfg, profile)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	// The first Run creates the target. It must not run on a child context:
	// cancelling that child would close the tab.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(taskCtx,
			network.Enable(),
			network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": profile.AcceptLanguage}),
			cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorDeny),
		)
	}()

	var err error
	select {
	case err = <-started:
	case <-time.After(cfg.Timeout):
		err = fmt.Errorf("browser start timed out after %s", cfg.Timeout)
	}
	if err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	slog.DebugContext(ctx, "browser started", "user_agent", profile.UserAgent, "proxy", cfg.Proxy)

	return &Session{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		idleWait:    cfg.IdleWait,
	}, nil
}

// allocatorOpts returns the exec-allocator options for cfg and profile.
func allocatorOpts(cfg app.BrowserConfig, profile *Profile) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.ExecPath(cfg.ChromePath),

		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),

		chromedp.WindowSize(profile.ScreenWidth, profile.ScreenHeight),

		chromedp.UserAgent(profile.UserAgent),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.NoImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	return opts
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(s.ctx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func wrap(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", page.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", page.ErrInteraction, err)
}

func (s *Session) Navigate(ctx context.Context, url string, waitUntil page.WaitUntil) error {
	var location string
	err := s.run(ctx, chromedp.Navigate(url), chromedp.Location(&location))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w: %w", page.ErrNavigation, page.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", page.ErrNavigation, err)
	}
	s.url = location

	if waitUntil == page.WaitNetworkIdle && s.idleWait > 0 {
		if err := pace.Sleep(ctx, s.idleWait); err != nil {
			return fmt.Errorf("%w: %w: %w", page.ErrNavigation, page.ErrTimeout, err)
		}
	}

	snapshot(s.ctx, filepath.Join(snapshotRoot, sanitize(url)), "loaded")
	return nil
}

func (s *Session) query(ctx context.Context, loc film.Locator) ([]*cdp.Node, error) {
	var (
		sel string
		by  chromedp.QueryOption
	)
	switch loc.Strategy {
	case film.ByCSS, "":
		sel, by = loc.Value, chromedp.ByQueryAll
	case film.ByText:
		sel, by = textXPath(loc.Value), chromedp.BySearch
	case film.ByXPath:
		sel, by = loc.Value, chromedp.BySearch
	default:
		return nil, fmt.Errorf("%w: strategy %q", page.ErrUnsupported, loc.Strategy)
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, wrap(fmt.Errorf("querying %s: %w", loc, err))
	}
	return nodes, nil
}

func (s *Session) Find(ctx context.Context, loc film.Locator) (page.Element, bool, error) {
	nodes, err := s.query(ctx, loc)
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return &element{node: nodes[0], desc: loc.String()}, true, nil
}

func (s *Session) FindAll(ctx context.Context, loc film.Locator) ([]page.Element, error) {
	nodes, err := s.query(ctx, loc)
	if err != nil {
		return nil, err
	}
	els := make([]page.Element, len(nodes))
	for i, n := range nodes {
		els[i] = &element{node: n, desc: loc.String() + "#" + strconv.Itoa(i)}
	}
	return els, nil
}

func (s *Session) Click(ctx context.Context, el page.Element) error {
	e, err := asElement(el)
	if err != nil {
		return err
	}
	if err := s.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		return wrap(fmt.Errorf("clicking %s: %w", e.desc, err))
	}
	return nil
}

func (s *Session) WaitFor(ctx context.Context, timeout time.Duration, locs ...film.Locator) (page.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		for _, loc := range locs {
			el, ok, err := s.Find(ctx, loc)
			if err != nil {
				return nil, err
			}
			if ok {
				return el, nil
			}
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: waiting %s for %s", page.ErrTimeout, timeout, describe(locs))
		}
		if err := pace.Sleep(ctx, min(pollInterval, time.Until(deadline))); err != nil {
			return nil, fmt.Errorf("%w: %w", page.ErrTimeout, err)
		}
	}
}

func (s *Session) Attribute(ctx context.Context, el page.Element, name string) (string, bool, error) {
	e, err := asElement(el)
	if err != nil {
		return "", false, err
	}
	var (
		value string
		ok    bool
	)
	if err := s.run(ctx, chromedp.AttributeValue([]cdp.NodeID{e.node.NodeID}, name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false, wrap(fmt.Errorf("reading %s of %s: %w", name, e.desc, err))
	}
	return value, ok, nil
}

func (s *Session) Text(ctx context.Context, el page.Element) (string, error) {
	e, err := asElement(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := s.run(ctx, chromedp.TextContent([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return "", wrap(fmt.Errorf("reading text of %s: %w", e.desc, err))
	}
	return text, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", wrap(fmt.Errorf("reading document: %w", err))
	}
	return html, nil
}

func (s *Session) URL() string {
	return s.url
}

// Close tears down the tab and the browser process.
func (s *Session) Close() error {
	s.cancel()
	s.allocCancel()
	return nil
}

func asElement(el page.Element) (*element, error) {
	e, ok := el.(*element)
	if !ok || e == nil || e.node == nil {
		return nil, fmt.Errorf("%w: foreign element %v", page.ErrInteraction, el)
	}
	return e, nil
}

// textXPath matches elements whose own text, whitespace-normalized, equals
// text.
func textXPath(text string) string {
	return "//*[normalize-space(text())=" + xpathLiteral(strings.TrimSpace(text)) + "]"
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	for i, p := range parts {
		parts[i] = `"` + p + `"`
	}
	return "concat(" + strings.Join(parts, `,'"',`) + ")"
}

func describe(locs []film.Locator) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}
