package probe

import (
	"fmt"
	"maps"
	"slices"

	"github.com/stupside/marquee/internal/film"
)

// Constructor builds the prober variant for a source kind.
type Constructor func(desc film.SourceDescriptor) Prober

var constructors = map[string]Constructor{
	"tab":    newTab,
	"direct": newDirect,
	"json":   newJSON,
	"markup": newMarkup,
}

// New returns the prober for desc.Kind.
func New(desc film.SourceDescriptor) (Prober, error) {
	ctor, ok := constructors[desc.Kind]
	if !ok {
		return nil, fmt.Errorf("source %q: unknown kind %q", desc.Name, desc.Kind)
	}
	return ctor(desc), nil
}

// NewAll builds probers for descs ordered by ascending priority.
func NewAll(descs []film.SourceDescriptor) ([]Prober, error) {
	sorted := film.ByPriority(descs)
	probers := make([]Prober, 0, len(sorted))
	for _, d := range sorted {
		p, err := New(d)
		if err != nil {
			return nil, err
		}
		probers = append(probers, p)
	}
	return probers, nil
}

// Kinds returns all registered source kinds.
func Kinds() []string {
	return slices.Sorted(maps.Keys(constructors))
}
