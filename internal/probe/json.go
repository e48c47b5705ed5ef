package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/buger/jsonparser"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/media"
	"github.com/stupside/marquee/internal/page"
)

var (
	defaultDataLocators = []film.Locator{film.CSS(film.RoleData, "script#__NUXT_DATA__")}
	defaultDataKeys     = []string{"videoAddress", "url"}
)

var errStop = errors.New("stop")

// jsonProber reads the media address out of a JSON blob embedded in the page
// (Nuxt/Next hydration payloads). The first key accepts any absolute URL;
// later keys are fallbacks and only accept known media files.
type jsonProber struct {
	desc film.SourceDescriptor
}

func newJSON(desc film.SourceDescriptor) Prober {
	if len(desc.Player) == 0 {
		desc.Player = defaultDataLocators
	}
	if len(desc.Keys) == 0 {
		desc.Keys = defaultDataKeys
	}
	return &jsonProber{desc: desc}
}

func (p *jsonProber) Descriptor() film.SourceDescriptor {
	return p.desc
}

func (p *jsonProber) Probe(ctx context.Context, sess page.Session, _ Timing) film.Outcome {
	for _, loc := range p.desc.Player {
		el, ok, err := sess.Find(ctx, loc)
		if err != nil {
			return fail(p.desc.Name, err)
		}
		if !ok {
			continue
		}

		blob, err := sess.Text(ctx, el)
		if err != nil {
			return fail(p.desc.Name, fmt.Errorf("reading %s: %w", loc, err))
		}

		if u, ok := SearchJSON([]byte(blob), p.desc.Keys); ok {
			return film.Found(p.desc.Name, u)
		}
		slog.DebugContext(ctx, "no media address in data blob", "source", p.desc.Name, "locator", loc.String())
	}
	return film.NotPresent(p.desc.Name)
}

// SearchJSON walks data depth-first and returns the first usable string found
// under keys, trying keys in order. Numeric values are followed as indexes
// into a top-level array, which is how Nuxt payloads reference shared values.
func SearchJSON(data []byte, keys []string) (string, bool) {
	root, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return "", false
	}

	for i, key := range keys {
		accept := film.IsAbsoluteURL
		if i > 0 {
			accept = media.IsMediaURL
		}
		s := &jsonSearch{root: root, rootType: typ, key: key, accept: accept}
		if s.walk(root, typ) {
			return s.found, true
		}
	}
	return "", false
}

type jsonSearch struct {
	root     []byte
	rootType jsonparser.ValueType
	key      string
	accept   func(string) bool
	found    string
}

func (s *jsonSearch) walk(value []byte, typ jsonparser.ValueType) bool {
	switch typ {
	case jsonparser.Object:
		done := false
		_ = jsonparser.ObjectEach(value, func(k, v []byte, vt jsonparser.ValueType, _ int) error {
			if string(k) == s.key && s.take(v, vt) {
				done = true
				return errStop
			}
			if s.walk(v, vt) {
				done = true
				return errStop
			}
			return nil
		})
		return done

	case jsonparser.Array:
		done := false
		_, _ = jsonparser.ArrayEach(value, func(v []byte, vt jsonparser.ValueType, _ int, err error) {
			if done || err != nil {
				return
			}
			done = s.walk(v, vt)
		})
		return done
	}
	return false
}

// take accepts a candidate value for the searched key.
func (s *jsonSearch) take(v []byte, vt jsonparser.ValueType) bool {
	switch vt {
	case jsonparser.String:
		str, err := jsonparser.ParseString(v)
		if err != nil || !s.accept(str) {
			return false
		}
		s.found = str
		return true

	case jsonparser.Number:
		if s.rootType != jsonparser.Array {
			return false
		}
		idx, err := strconv.Atoi(string(v))
		if err != nil || idx < 0 {
			return false
		}
		ref, refType, _, err := jsonparser.Get(s.root, "["+strconv.Itoa(idx)+"]")
		if err != nil || refType != jsonparser.String {
			return false
		}
		return s.take(ref, refType)
	}
	return false
}
