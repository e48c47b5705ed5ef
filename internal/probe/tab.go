package probe

import (
	"context"
	"log/slog"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/page"
)

// tabProber handles hosts behind a labelled tab: select the tab, press the
// play control if one is shown, then read the embedded player.
type tabProber struct {
	desc film.SourceDescriptor
}

func newTab(desc film.SourceDescriptor) Prober {
	if len(desc.Tab) == 0 {
		desc.Tab = []film.Locator{film.Text(film.RoleTab, desc.Name)}
	}
	return &tabProber{desc: desc}
}

func (p *tabProber) Descriptor() film.SourceDescriptor {
	return p.desc
}

func (p *tabProber) Probe(ctx context.Context, sess page.Session, timing Timing) film.Outcome {
	selected, err := clickFirst(ctx, sess, p.desc.Tab, timing.Reveal)
	if err != nil {
		return fail(p.desc.Name, err)
	}
	if !selected {
		return film.NotPresent(p.desc.Name)
	}
	slog.DebugContext(ctx, "tab selected", "source", p.desc.Name)
	timing.pause(ctx, timing.TabSettle)

	reveal(ctx, sess, p.desc, timing)

	return extract(ctx, sess, p.desc, players(p.desc, defaultFramePlayers), timing)
}
