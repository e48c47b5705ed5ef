package probe

import (
	"context"
	"fmt"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/media"
	"github.com/stupside/marquee/internal/page"
)

// markupProber is the last-resort source: the first media file URL anywhere
// in the rendered markup.
type markupProber struct {
	desc film.SourceDescriptor
}

func newMarkup(desc film.SourceDescriptor) Prober {
	return &markupProber{desc: desc}
}

func (p *markupProber) Descriptor() film.SourceDescriptor {
	return p.desc
}

func (p *markupProber) Probe(ctx context.Context, sess page.Session, _ Timing) film.Outcome {
	html, err := sess.HTML(ctx)
	if err != nil {
		return fail(p.desc.Name, fmt.Errorf("reading markup: %w", err))
	}
	urls := media.ScanMarkup(html)
	if len(urls) == 0 {
		return film.NotPresent(p.desc.Name)
	}
	return film.Found(p.desc.Name, urls[0])
}
