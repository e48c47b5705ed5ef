// Package probe tries one player source on a detail page and turns whatever
// happens into a film.Outcome. Probes never return errors: absence, timeouts
// and broken interactions are all outcomes.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/pace"
	"github.com/stupside/marquee/internal/page"
)

// Timing bounds the waits of a single probe.
type Timing struct {
	// Reveal bounds each tab or reveal click.
	Reveal time.Duration
	// Player bounds the wait for a player surface.
	Player time.Duration
	// TabSettle and RevealSettle are pauses after a successful click.
	TabSettle    time.Duration
	RevealSettle time.Duration

	// Sleep replaces pace.Sleep, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (t Timing) pause(ctx context.Context, d time.Duration) {
	sleep := t.Sleep
	if sleep == nil {
		sleep = pace.Sleep
	}
	_ = sleep(ctx, d)
}

// Prober attempts one source on the page a session is currently showing.
// Probing the same source twice on one page is safe.
type Prober interface {
	Descriptor() film.SourceDescriptor
	Probe(ctx context.Context, sess page.Session, timing Timing) film.Outcome
}

// Run probes p and converts a panic escaping the session into an interaction
// failure.
func Run(ctx context.Context, p Prober, sess page.Session, timing Timing) (out film.Outcome) {
	name := p.Descriptor().Name
	defer func() {
		if r := recover(); r != nil {
			out = film.Failed(name, film.ReasonInteraction, fmt.Errorf("probe panicked: %v", r))
		}
	}()
	out = p.Probe(ctx, sess, timing)
	slog.DebugContext(ctx, "probe finished", "source", name, "status", out.Status.String(), "reason", out.Reason)
	return out
}

var (
	defaultFramePlayers = []film.Locator{
		film.CSS(film.RolePlayer, "iframe[src]"),
		film.CSS(film.RolePlayer, "video[src]"),
		film.CSS(film.RolePlayer, "video source[src]"),
	}
	defaultNativePlayers = []film.Locator{
		film.CSS(film.RolePlayer, "video[src]"),
		film.CSS(film.RolePlayer, "video source[src]"),
		film.CSS(film.RolePlayer, "iframe[src]"),
	}
)

func players(desc film.SourceDescriptor, fallback []film.Locator) []film.Locator {
	if len(desc.Player) > 0 {
		return desc.Player
	}
	return fallback
}

func attribute(desc film.SourceDescriptor) string {
	if desc.Attribute == "" {
		return "src"
	}
	return desc.Attribute
}

func fail(name string, err error) film.Outcome {
	return film.Failed(name, page.Classify(err), err)
}

// clickFirst clicks the first element matching any of locs within timeout.
// It reports whether an element was found.
func clickFirst(ctx context.Context, sess page.Session, locs []film.Locator, timeout time.Duration) (bool, error) {
	for _, loc := range locs {
		el, ok, err := sess.Find(ctx, loc)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}

		clickCtx, cancel := context.WithTimeout(ctx, timeout)
		err = sess.Click(clickCtx, el)
		cancel()
		if err != nil {
			return true, fmt.Errorf("clicking %s: %w", el.Description(), err)
		}
		return true, nil
	}
	return false, nil
}

// reveal triggers the first present reveal control. A missing control is
// fine (auto-playing sources) and a failed click is only logged: the player
// may still load.
func reveal(ctx context.Context, sess page.Session, desc film.SourceDescriptor, timing Timing) {
	if len(desc.Reveal) == 0 {
		return
	}
	clicked, err := clickFirst(ctx, sess, desc.Reveal, timing.Reveal)
	switch {
	case err != nil:
		slog.DebugContext(ctx, "reveal click failed", "source", desc.Name, "error", err)
	case clicked:
		slog.DebugContext(ctx, "reveal clicked", "source", desc.Name)
		timing.pause(ctx, timing.RevealSettle)
	}
}

// extract waits for a player surface and reads its media address.
func extract(ctx context.Context, sess page.Session, desc film.SourceDescriptor, locs []film.Locator, timing Timing) film.Outcome {
	el, err := sess.WaitFor(ctx, timing.Player, locs...)
	if errors.Is(err, page.ErrNotFound) {
		slog.DebugContext(ctx, "no player surface", "source", desc.Name)
		return film.NotPresent(desc.Name)
	}
	if err != nil {
		return fail(desc.Name, fmt.Errorf("waiting for player: %w", err))
	}

	src, _, err := sess.Attribute(ctx, el, attribute(desc))
	if err != nil {
		return fail(desc.Name, fmt.Errorf("reading player %s: %w", attribute(desc), err))
	}

	if !film.IsAbsoluteURL(src) {
		slog.DebugContext(ctx, "player address unusable", "source", desc.Name, "value", src)
		return film.NotPresent(desc.Name)
	}
	return film.Found(desc.Name, src)
}
