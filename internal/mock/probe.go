package mock

import (
	"context"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/page"
	"github.com/stupside/marquee/internal/probe"
)

var _ probe.Prober = (*Prober)(nil)

// Prober is a mock implementation of probe.Prober. A nil ProbeFn reports the
// source as not present.
type Prober struct {
	Desc    film.SourceDescriptor
	ProbeFn func(ctx context.Context, sess page.Session, timing probe.Timing) film.Outcome
}

func (p *Prober) Descriptor() film.SourceDescriptor {
	return p.Desc
}

func (p *Prober) Probe(ctx context.Context, sess page.Session, timing probe.Timing) film.Outcome {
	if p.ProbeFn == nil {
		return film.NotPresent(p.Desc.Name)
	}
	return p.ProbeFn(ctx, sess, timing)
}
