package probe

import (
	"context"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/page"
)

// directProber handles pages that render their player without any tab,
// typically a native <video> element.
type directProber struct {
	desc film.SourceDescriptor
}

func newDirect(desc film.SourceDescriptor) Prober {
	return &directProber{desc: desc}
}

func (p *directProber) Descriptor() film.SourceDescriptor {
	return p.desc
}

func (p *directProber) Probe(ctx context.Context, sess page.Session, timing Timing) film.Outcome {
	reveal(ctx, sess, p.desc, timing)
	return extract(ctx, sess, p.desc, players(p.desc, defaultNativePlayers), timing)
}
