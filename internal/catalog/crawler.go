// Package catalog collects title links from listing pages.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/pace"
	"github.com/stupside/marquee/internal/page"
)

var ErrRelativeListing = errors.New("listing URL must be absolute")

// DefaultTitleAttributes are read, in order, before falling back to the
// card's visible text.
var DefaultTitleAttributes = []string{"title", "alt"}

// Crawler turns listing pages into film links.
type Crawler struct {
	// Pacer is waited on before every navigation. Nil disables pacing.
	Pacer     pace.Waiter
	WaitUntil page.WaitUntil
}

// Crawl loads listingURL and returns one link per distinct card, in page
// order. An empty listing is logged and is not an error.
func (c *Crawler) Crawl(ctx context.Context, sess page.Session, listingURL string, card film.Locator, titleAttrs []string) ([]film.Link, error) {
	if !film.IsAbsoluteURL(listingURL) {
		return nil, fmt.Errorf("%w: %q", ErrRelativeListing, listingURL)
	}

	if c.Pacer != nil {
		if err := c.Pacer.Wait(ctx, listingURL); err != nil {
			return nil, err
		}
	}

	slog.InfoContext(ctx, "crawling listing", "url", listingURL)
	if err := sess.Navigate(ctx, listingURL, c.waitUntil()); err != nil {
		return nil, fmt.Errorf("loading listing %s: %w", listingURL, err)
	}

	cards, err := sess.FindAll(ctx, card)
	if err != nil {
		return nil, fmt.Errorf("finding cards %s: %w", card, err)
	}

	base, err := url.Parse(sess.URL())
	if err != nil || base.Host == "" {
		base, _ = url.Parse(listingURL)
	}
	if len(titleAttrs) == 0 {
		titleAttrs = DefaultTitleAttributes
	}

	var links []film.Link
	seen := make(map[string]struct{})
	for _, el := range cards {
		link, ok := c.readCard(ctx, sess, el, base, titleAttrs)
		if !ok {
			continue
		}
		if _, dup := seen[link.URL]; dup {
			continue
		}
		seen[link.URL] = struct{}{}
		links = append(links, link)
	}

	if len(links) == 0 {
		slog.WarnContext(ctx, "listing has no usable cards", "url", listingURL, "card", card.String(), "matched", len(cards))
		return nil, nil
	}
	slog.InfoContext(ctx, "listing crawled", "url", listingURL, "links", len(links))
	return links, nil
}

// CrawlAll crawls every listing in order and merges the links, keeping the
// first occurrence of each URL. A failing listing is skipped; the joined
// errors are returned alongside whatever was collected.
func (c *Crawler) CrawlAll(ctx context.Context, sess page.Session, listings []string, card film.Locator, titleAttrs []string) ([]film.Link, error) {
	var (
		links []film.Link
		errs  []error
	)
	seen := make(map[string]struct{})
	for _, listing := range listings {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		found, err := c.Crawl(ctx, sess, listing, card, titleAttrs)
		if err != nil {
			slog.WarnContext(ctx, "listing failed", "url", listing, "error", err)
			errs = append(errs, err)
			continue
		}
		for _, l := range found {
			if _, dup := seen[l.URL]; dup {
				continue
			}
			seen[l.URL] = struct{}{}
			links = append(links, l)
		}
	}
	return links, errors.Join(errs...)
}

func (c *Crawler) waitUntil() page.WaitUntil {
	if c.WaitUntil == "" {
		return page.WaitDOMReady
	}
	return c.WaitUntil
}

func (c *Crawler) readCard(ctx context.Context, sess page.Session, el page.Element, base *url.URL, titleAttrs []string) (film.Link, bool) {
	href, ok, err := sess.Attribute(ctx, el, "href")
	if err != nil || !ok {
		slog.DebugContext(ctx, "card without href", "card", el.Description(), "error", err)
		return film.Link{}, false
	}
	target, ok := Normalize(base, href)
	if !ok {
		slog.DebugContext(ctx, "card href dropped", "href", href)
		return film.Link{}, false
	}

	title := readTitle(ctx, sess, el, titleAttrs)
	if title == "" {
		slog.DebugContext(ctx, "card without title", "url", target)
		return film.Link{}, false
	}
	return film.Link{Title: title, URL: target}, true
}

func readTitle(ctx context.Context, sess page.Session, el page.Element, attrs []string) string {
	for _, name := range attrs {
		v, ok, err := sess.Attribute(ctx, el, name)
		if err == nil && ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	text, err := sess.Text(ctx, el)
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(text), " ")
}

// Normalize resolves href against base and strips its fragment. Non-HTTP
// schemes and unparsable references are rejected.
func Normalize(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return "", false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := ref
	if base != nil {
		resolved = base.ResolveReference(ref)
	}
	resolved.Fragment = ""
	resolved.RawFragment = ""

	out := resolved.String()
	if !film.IsAbsoluteURL(out) {
		return "", false
	}
	return out, true
}
