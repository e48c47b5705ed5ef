// Package harvest runs one or more sites: crawl the listings, resolve every
// link on a pool of page sessions, deduplicate and write the catalog.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stupside/marquee/internal/dedupe"
	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/page"
)

// Crawler lists the links of a site.
type Crawler interface {
	CrawlAll(ctx context.Context, sess page.Session, listings []string, card film.Locator, titleAttrs []string) ([]film.Link, error)
}

// Resolver resolves one detail page.
type Resolver interface {
	Resolve(ctx context.Context, sess page.Session, link film.Link) (film.Resolved, bool)
}

// Sink stores the final catalog.
type Sink interface {
	Write(films []film.Resolved) error
}

// Site describes where a site's catalog is listed.
type Site struct {
	Name       string
	Listings   []string
	Card       film.Locator
	TitleAttrs []string
	// Resolver resolves the site's detail pages. Nil uses the Harvester's.
	Resolver Resolver
}

// Summary reports the counts of a finished run.
type Summary struct {
	RunID    string
	Sites    int
	Links    int
	Resolved int
	Unique   int
	Written  bool
	Elapsed  time.Duration
}

// Harvester wires the stages of a run together.
type Harvester struct {
	Sessions page.Factory
	Crawler  Crawler
	Resolver Resolver
	Sink     Sink
	// Workers bounds how many detail pages are resolved at once. Each worker
	// owns one session.
	Workers int
}

// Links opens a session and crawls site's listings. Listing failures are
// logged; only a session that cannot be opened is an error.
func (h *Harvester) Links(ctx context.Context, site Site) ([]film.Link, error) {
	sess, err := h.Sessions.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	defer sess.Close()

	links, err := h.Crawler.CrawlAll(ctx, sess, site.Listings, site.Card, site.TitleAttrs)
	if err != nil {
		slog.WarnContext(ctx, "some listings failed", "site", site.Name, "error", err)
	}
	return links, nil
}

// Run harvests sites in order into a single catalog, deduplicated across
// sites. A session failure while crawling the first site writes nothing.
// Any later failure stops the remaining sites, and whatever was resolved is
// still written.
func (h *Harvester) Run(ctx context.Context, sites ...Site) (Summary, error) {
	start := time.Now()
	sum := Summary{RunID: uuid.NewString()}
	log := slog.With("run", sum.RunID)

	log.InfoContext(ctx, "run started", "sites", len(sites), "workers", h.workers())

	var resolved []film.Resolved
	var runErr error
	for i, site := range sites {
		links, err := h.Links(ctx, site)
		if err != nil {
			if i == 0 {
				return sum, fmt.Errorf("site %s: %w", site.Name, err)
			}
			runErr = fmt.Errorf("site %s: %w", site.Name, err)
			break
		}
		sum.Links += len(links)
		log.InfoContext(ctx, "catalog crawled", "site", site.Name, "links", len(links))

		films, err := h.resolveAll(ctx, h.resolver(site), links)
		resolved = append(resolved, films...)
		sum.Sites++
		if err != nil {
			runErr = fmt.Errorf("site %s: %w", site.Name, err)
			break
		}
	}
	sum.Resolved = len(resolved)

	films := dedupe.Films(resolved)
	sum.Unique = len(films)

	writeErr := h.Sink.Write(films)
	if writeErr != nil {
		writeErr = fmt.Errorf("writing catalog: %w", writeErr)
	} else {
		sum.Written = true
	}
	sum.Elapsed = time.Since(start)

	log.InfoContext(ctx, "run finished",
		"sites", sum.Sites,
		"links", sum.Links,
		"resolved", sum.Resolved,
		"unique", sum.Unique,
		"written", sum.Written,
		"elapsed", sum.Elapsed.Round(time.Millisecond),
	)

	return sum, errors.Join(runErr, writeErr)
}

// ResolveAll resolves links concurrently and returns the resolved films in
// link order.
func (h *Harvester) ResolveAll(ctx context.Context, links []film.Link) ([]film.Resolved, error) {
	return h.resolveAll(ctx, h.Resolver, links)
}

func (h *Harvester) resolveAll(ctx context.Context, r Resolver, links []film.Link) ([]film.Resolved, error) {
	workers := h.workers()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	pool := make(chan page.Session, workers)
	results := make([]*film.Resolved, len(links))

	for i, link := range links {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			sess, err := h.acquire(gctx, pool)
			if err != nil {
				return err
			}
			defer func() { pool <- sess }()

			if res, ok := r.Resolve(gctx, sess, link); ok {
				results[i] = &res
			}
			return nil
		})
	}

	err := g.Wait()
	close(pool)
	for sess := range pool {
		if cerr := sess.Close(); cerr != nil {
			slog.DebugContext(ctx, "closing session", "error", cerr)
		}
	}

	out := make([]film.Resolved, 0, len(links))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, err
}

// acquire reuses an idle session or opens a new one. SetLimit keeps the
// number of live sessions at or below the worker count.
func (h *Harvester) acquire(ctx context.Context, pool chan page.Session) (page.Session, error) {
	select {
	case sess := <-pool:
		return sess, nil
	default:
	}
	sess, err := h.Sessions.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}
	return sess, nil
}

func (h *Harvester) resolver(site Site) Resolver {
	if site.Resolver != nil {
		return site.Resolver
	}
	return h.Resolver
}

func (h *Harvester) workers() int {
	return max(h.Workers, 1)
}
