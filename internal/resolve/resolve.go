// Package resolve drives the probes over a detail page and settles on one
// canonical media address, retrying the whole page when sources break.
package resolve

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/pace"
	"github.com/stupside/marquee/internal/page"
	"github.com/stupside/marquee/internal/probe"
)

// Mode selects whether a pass stops at the first found source.
type Mode string

const (
	// ModeFirst stops probing at the first found source.
	ModeFirst Mode = "first"
	// ModeExhaustive probes every source and keeps all of them as alternates.
	ModeExhaustive Mode = "exhaustive"
)

// Policy governs page-level retries.
type Policy struct {
	// MaxAttempts is the total number of passes, including the first.
	MaxAttempts int
	// Backoff is slept between passes.
	Backoff pace.Jitter
	// RetryNavigation allows another pass after the page failed to load.
	RetryNavigation bool
}

// Resolver resolves detail pages. The zero value of optional fields disables
// the matching behaviour (no pacing, no page deadline, no settle delay).
type Resolver struct {
	Probers     []probe.Prober
	Policy      Policy
	Mode        Mode
	Timing      probe.Timing
	PageTimeout time.Duration
	WaitUntil   page.WaitUntil
	Settle      pace.Jitter
	Pacer       pace.Waiter

	// Sleep replaces pace.Sleep, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Resolve visits link until a pass finds a source, every source is absent,
// or the attempts run out. The bool is false when no record is produced.
func (r *Resolver) Resolve(ctx context.Context, sess page.Session, link film.Link) (film.Resolved, bool) {
	log := slog.With("url", link.URL, "title", link.Title)
	probers := r.ordered()
	attempts := max(r.Policy.MaxAttempts, 1)

	for n := 1; n <= attempts; n++ {
		if ctx.Err() != nil {
			return film.Resolved{}, false
		}

		att := r.pass(ctx, sess, link, probers, n)

		if res, ok := r.settle(att, link); ok {
			if !film.IsAbsoluteURL(res.MediaURL) {
				log.WarnContext(ctx, "dropping record with invalid media url", "source", res.Source, "media_url", res.MediaURL)
				return film.Resolved{}, false
			}
			log.InfoContext(ctx, "resolved", "source", res.Source, "media_url", res.MediaURL, "alternates", len(res.Alternates), "attempt", n)
			return res, true
		}

		if !att.HasFailure() {
			log.WarnContext(ctx, "structural mismatch: no configured source on page", "sources", len(probers))
			return film.Resolved{}, false
		}
		if att.NavigationFailed() && !r.Policy.RetryNavigation {
			log.WarnContext(ctx, "page failed to load", "attempt", n, "error", firstError(att))
			return film.Resolved{}, false
		}

		if n < attempts {
			wait := r.Policy.Backoff.Draw()
			log.InfoContext(ctx, "retrying page", "attempt", n, "backoff", wait, "error", firstError(att))
			if err := r.sleep(ctx, wait); err != nil {
				return film.Resolved{}, false
			}
		}
	}

	log.WarnContext(ctx, "giving up on page", "attempts", attempts)
	return film.Resolved{}, false
}

func (r *Resolver) pass(ctx context.Context, sess page.Session, link film.Link, probers []probe.Prober, n int) film.Attempt {
	att := film.Attempt{Number: n}

	if r.Pacer != nil {
		if err := r.Pacer.Wait(ctx, link.URL); err != nil {
			return failAll(att, probers, page.Classify(err), err)
		}
	}

	pageCtx := ctx
	if r.PageTimeout > 0 {
		var cancel context.CancelFunc
		pageCtx, cancel = context.WithTimeout(ctx, r.PageTimeout)
		defer cancel()
	}

	slog.DebugContext(ctx, "loading detail page", "url", link.URL, "attempt", n)
	if err := sess.Navigate(pageCtx, link.URL, r.waitUntil()); err != nil {
		reason := film.ReasonNavigation
		if page.Classify(err) == film.ReasonTimeout {
			reason = film.ReasonTimeout
		}
		return failAll(att, probers, reason, fmt.Errorf("loading %s: %w", link.URL, err))
	}
	_ = r.sleep(pageCtx, r.Settle.Draw())

	// Media URL -> source that reported it first in this pass.
	found := make(map[string]string)
	for _, p := range probers {
		name := p.Descriptor().Name
		if err := pageCtx.Err(); err != nil {
			att.Outcomes = append(att.Outcomes, film.Failed(name, film.ReasonTimeout, err))
			continue
		}

		out := probe.Run(pageCtx, p, sess, r.Timing)
		if out.Status == film.StatusFound {
			// A player left over from an earlier source still shows its URL.
			if prev, dup := found[out.MediaURL]; dup {
				slog.DebugContext(ctx, "surface already seen", "url", link.URL, "source", name, "seen_under", prev)
				out = film.NotPresent(name)
			} else {
				found[out.MediaURL] = name
			}
		}
		att.Outcomes = append(att.Outcomes, out)
		if out.Status == film.StatusFailed {
			slog.DebugContext(ctx, "source failed", "url", link.URL, "source", name, "reason", out.Reason, "error", out.Err)
		}
		if out.Status == film.StatusFound && r.Mode != ModeExhaustive {
			break
		}
	}
	return att
}

// settle picks the canonical result of a pass: the found source with the
// lowest priority value. Alternates follow priority order.
func (r *Resolver) settle(att film.Attempt, link film.Link) (film.Resolved, bool) {
	priority := make(map[string]int, len(r.Probers))
	for _, p := range r.Probers {
		d := p.Descriptor()
		if _, ok := priority[d.Name]; !ok {
			priority[d.Name] = d.Priority
		}
	}

	var found []film.Outcome
	for _, o := range att.Outcomes {
		if o.Status == film.StatusFound {
			found = append(found, o)
		}
	}
	if len(found) == 0 {
		return film.Resolved{}, false
	}
	slices.SortStableFunc(found, func(a, b film.Outcome) int {
		return cmp.Compare(priority[a.Source], priority[b.Source])
	})

	res := film.Resolved{
		Title:    link.Title,
		MediaURL: found[0].MediaURL,
		Source:   found[0].Source,
	}
	for _, o := range found {
		res.Alternates = res.Alternates.With(o.Source, o.MediaURL)
	}
	return res, true
}

func (r *Resolver) ordered() []probe.Prober {
	probers := slices.Clone(r.Probers)
	slices.SortStableFunc(probers, func(a, b probe.Prober) int {
		return cmp.Compare(a.Descriptor().Priority, b.Descriptor().Priority)
	})
	return probers
}

func (r *Resolver) waitUntil() page.WaitUntil {
	if r.WaitUntil == "" {
		return page.WaitDOMReady
	}
	return r.WaitUntil
}

func (r *Resolver) sleep(ctx context.Context, d time.Duration) error {
	if r.Sleep != nil {
		return r.Sleep(ctx, d)
	}
	return pace.Sleep(ctx, d)
}

func failAll(att film.Attempt, probers []probe.Prober, reason film.Reason, err error) film.Attempt {
	for _, p := range probers {
		att.Outcomes = append(att.Outcomes, film.Failed(p.Descriptor().Name, reason, err))
	}
	return att
}

func firstError(att film.Attempt) error {
	for _, o := range att.Outcomes {
		if o.Status == film.StatusFailed && o.Err != nil {
			return o.Err
		}
	}
	return nil
}
