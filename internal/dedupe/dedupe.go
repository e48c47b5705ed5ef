// Package dedupe collapses resolved films sharing a media address.
package dedupe

import "github.com/stupside/marquee/internal/film"

// Films returns films without repeated media URLs. The first film for each
// URL is kept and order is preserved, so applying Films twice changes nothing.
func Films(films []film.Resolved) []film.Resolved {
	if films == nil {
		return nil
	}
	out := make([]film.Resolved, 0, len(films))
	seen := make(map[string]struct{}, len(films))
	for _, f := range films {
		if _, dup := seen[f.MediaURL]; dup {
			continue
		}
		seen[f.MediaURL] = struct{}{}
		out = append(out, f)
	}
	return out
}
