package harvest_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/harvest"
	"github.com/stupside/marquee/internal/mock"
	"github.com/stupside/marquee/internal/page"
)

type crawlerFunc func(ctx context.Context, sess page.Session, listings []string, card film.Locator, titleAttrs []string) ([]film.Link, error)

func (f crawlerFunc) CrawlAll(ctx context.Context, sess page.Session, listings []string, card film.Locator, titleAttrs []string) ([]film.Link, error) {
	return f(ctx, sess, listings, card, titleAttrs)
}

type resolverFunc func(ctx context.Context, sess page.Session, link film.Link) (film.Resolved, bool)

func (f resolverFunc) Resolve(ctx context.Context, sess page.Session, link film.Link) (film.Resolved, bool) {
	return f(ctx, sess, link)
}

type memorySink struct {
	mu     sync.Mutex
	films  []film.Resolved
	writes int
	err    error
}

func (s *memorySink) Write(films []film.Resolved) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.films = films
	return s.err
}

type sessionCounter struct {
	opened atomic.Int32
	closed atomic.Int32
	fail   func(n int32) error
}

func (c *sessionCounter) factory() page.Factory {
	return page.FactoryFunc(func(context.Context) (page.Session, error) {
		n := c.opened.Add(1)
		if c.fail != nil {
			if err := c.fail(n); err != nil {
				return nil, err
			}
		}
		return &mock.Session{CloseFn: func() error {
			c.closed.Add(1)
			return nil
		}}, nil
	})
}

func links(n int) []film.Link {
	out := make([]film.Link, n)
	for i := range out {
		out[i] = film.Link{Title: fmt.Sprintf("Film %d", i), URL: fmt.Sprintf("https://catalog.example/film/%d.html", i)}
	}
	return out
}

func staticCrawler(ls []film.Link, err error) harvest.Crawler {
	return crawlerFunc(func(context.Context, page.Session, []string, film.Locator, []string) ([]film.Link, error) {
		return ls, err
	})
}

// byIndex resolves film i to media i%mod, skipping odd links when skipOdd.
func byIndex(mod int, skipOdd bool) harvest.Resolver {
	return resolverFunc(func(_ context.Context, _ page.Session, link film.Link) (film.Resolved, bool) {
		var i int
		_, _ = fmt.Sscanf(link.Title, "Film %d", &i)
		if skipOdd && i%2 == 1 {
			return film.Resolved{}, false
		}
		u := fmt.Sprintf("https://h.example/%d.mp4", i%mod)
		return film.Resolved{
			Title:      link.Title,
			MediaURL:   u,
			Source:     "VIDZY",
			Alternates: film.Alternates{{Source: "VIDZY", URL: u}},
		}, true
	})
}

var site = harvest.Site{Name: "demo", Listings: []string{"https://catalog.example/films"}}

func titles(films []film.Resolved) []string {
	out := make([]string, len(films))
	for i, f := range films {
		out[i] = f.Title
	}
	return out
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("resolves in link order and dedupes", func(t *testing.T) {
		t.Parallel()

		var sessions sessionCounter
		out := &memorySink{}
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  staticCrawler(links(6), nil),
			Resolver: byIndex(4, false),
			Sink:     out,
			Workers:  3,
		}

		sum, err := h.Run(context.Background(), site)
		require.NoError(t, err)

		assert.Equal(t, []string{"Film 0", "Film 1", "Film 2", "Film 3"}, titles(out.films))
		assert.Equal(t, 6, sum.Links)
		assert.Equal(t, 6, sum.Resolved)
		assert.Equal(t, 4, sum.Unique)
		assert.True(t, sum.Written)
		assert.NotEmpty(t, sum.RunID)
		assert.LessOrEqual(t, sessions.opened.Load(), int32(4), "one crawl session plus at most one per worker")
		assert.Equal(t, sessions.opened.Load(), sessions.closed.Load())
	})

	t.Run("unresolved links are skipped", func(t *testing.T) {
		t.Parallel()

		var sessions sessionCounter
		out := &memorySink{}
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  staticCrawler(links(5), nil),
			Resolver: byIndex(100, true),
			Sink:     out,
		}

		sum, err := h.Run(context.Background(), site)
		require.NoError(t, err)
		assert.Equal(t, []string{"Film 0", "Film 2", "Film 4"}, titles(out.films))
		assert.Equal(t, 3, sum.Resolved)
	})

	t.Run("empty catalog still writes", func(t *testing.T) {
		t.Parallel()

		var sessions sessionCounter
		out := &memorySink{}
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  staticCrawler(nil, errors.New("listing 404")),
			Resolver: byIndex(1, false),
			Sink:     out,
		}

		sum, err := h.Run(context.Background(), site)
		require.NoError(t, err)
		assert.Equal(t, 1, out.writes)
		assert.Empty(t, out.films)
		assert.Zero(t, sum.Links)
	})

	t.Run("crawl session failure is fatal", func(t *testing.T) {
		t.Parallel()

		sessions := sessionCounter{fail: func(int32) error { return errors.New("chrome not found") }}
		out := &memorySink{}
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  staticCrawler(links(2), nil),
			Resolver: byIndex(1, false),
			Sink:     out,
		}

		_, err := h.Run(context.Background(), site)
		assert.ErrorContains(t, err, "chrome not found")
		assert.Zero(t, out.writes)
	})

	t.Run("single worker reuses its session", func(t *testing.T) {
		t.Parallel()

		var sessions sessionCounter
		out := &memorySink{}
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  staticCrawler(links(4), nil),
			Resolver: byIndex(100, false),
			Sink:     out,
			Workers:  1,
		}

		_, err := h.Run(context.Background(), site)
		require.NoError(t, err)
		assert.Len(t, out.films, 4)
		assert.EqualValues(t, 2, sessions.opened.Load())
	})

	t.Run("worker session failure still writes", func(t *testing.T) {
		t.Parallel()

		sessions := sessionCounter{fail: func(n int32) error {
			if n >= 2 {
				return errors.New("out of memory")
			}
			return nil
		}}
		out := &memorySink{}
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  staticCrawler(links(4), nil),
			Resolver: byIndex(100, false),
			Sink:     out,
			Workers:  2,
		}

		_, err := h.Run(context.Background(), site)
		assert.ErrorContains(t, err, "out of memory")
		assert.Equal(t, 1, out.writes)
	})

	t.Run("write failure is reported", func(t *testing.T) {
		t.Parallel()

		var sessions sessionCounter
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  staticCrawler(links(1), nil),
			Resolver: byIndex(1, false),
			Sink:     &memorySink{err: errors.New("disk full")},
		}

		sum, err := h.Run(context.Background(), site)
		assert.ErrorContains(t, err, "disk full")
		assert.False(t, sum.Written)
	})
}

// perListing crawls links(n) titled after the first listing of each site.
func perListing(n int) harvest.Crawler {
	return crawlerFunc(func(_ context.Context, _ page.Session, listings []string, _ film.Locator, _ []string) ([]film.Link, error) {
		out := links(n)
		for i := range out {
			out[i].URL = fmt.Sprintf("%s/%d.html", listings[0], i)
		}
		return out, nil
	})
}

func TestRunSites(t *testing.T) {
	t.Parallel()

	mirror := harvest.Site{Name: "mirror", Listings: []string{"https://mirror.example/films"}}
	moviebox := harvest.Site{Name: "moviebox", Listings: []string{"https://moviebox.example/films"}}

	t.Run("concatenates in site order and writes once", func(t *testing.T) {
		t.Parallel()

		var sessions sessionCounter
		out := &memorySink{}
		second := moviebox
		second.Resolver = resolverFunc(func(_ context.Context, _ page.Session, link film.Link) (film.Resolved, bool) {
			if link.Title == "Film 0" {
				// Same media as mirror's Film 0.
				return film.Resolved{Title: "Film 0 (box)", MediaURL: "https://h.example/0.mp4", Source: "ARTPLAYER"}, true
			}
			u := "https://box.example/" + link.Title + ".mp4"
			return film.Resolved{Title: link.Title + " (box)", MediaURL: u, Source: "ARTPLAYER"}, true
		})
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  perListing(2),
			Resolver: byIndex(100, false),
			Sink:     out,
			Workers:  2,
		}

		sum, err := h.Run(context.Background(), mirror, second)
		require.NoError(t, err)

		assert.Equal(t, 1, out.writes)
		assert.Equal(t, []string{"Film 0", "Film 1", "Film 1 (box)"}, titles(out.films))
		assert.Equal(t, 2, sum.Sites)
		assert.Equal(t, 4, sum.Links)
		assert.Equal(t, 4, sum.Resolved)
		assert.Equal(t, 3, sum.Unique)
		assert.Equal(t, sessions.opened.Load(), sessions.closed.Load())
	})

	t.Run("later site failure keeps earlier films", func(t *testing.T) {
		t.Parallel()

		sessions := sessionCounter{fail: func(n int32) error {
			if n >= 3 {
				return errors.New("browser crashed")
			}
			return nil
		}}
		out := &memorySink{}
		h := harvest.Harvester{
			Sessions: sessions.factory(),
			Crawler:  perListing(2),
			Resolver: byIndex(100, false),
			Sink:     out,
			Workers:  1,
		}

		sum, err := h.Run(context.Background(), mirror, moviebox)
		assert.ErrorContains(t, err, "site moviebox")
		assert.ErrorContains(t, err, "browser crashed")
		assert.Equal(t, 1, out.writes)
		assert.Equal(t, []string{"Film 0", "Film 1"}, titles(out.films))
		assert.Equal(t, 1, sum.Sites)
		assert.True(t, sum.Written)
	})
}

func TestResolveAllOpenFailure(t *testing.T) {
	t.Parallel()

	sessions := sessionCounter{fail: func(int32) error { return errors.New("no browser") }}
	h := harvest.Harvester{
		Sessions: sessions.factory(),
		Resolver: byIndex(100, false),
		Workers:  2,
	}

	films, err := h.ResolveAll(context.Background(), links(3))
	assert.ErrorContains(t, err, "no browser")
	assert.Empty(t, films)
}

func TestResolveAllCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var resolved atomic.Int32
	var sessions sessionCounter
	h := harvest.Harvester{
		Sessions: sessions.factory(),
		Resolver: resolverFunc(func(context.Context, page.Session, film.Link) (film.Resolved, bool) {
			resolved.Add(1)
			return film.Resolved{}, false
		}),
	}

	films, err := h.ResolveAll(ctx, links(3))
	require.NoError(t, err)
	assert.Empty(t, films)
	assert.Zero(t, resolved.Load())
}
