// Package film holds the data model shared by the crawler, the probes and the
// resolver: catalog links, source descriptors, probe outcomes and resolved
// films.
package film

import (
	"cmp"
	"net/url"
	"slices"
)

// Link is a catalog entry pointing to a title's detail page. Its identity is URL.
type Link struct {
	Title string
	URL   string
}

// SourceDescriptor configures one player backend offered on detail pages.
type SourceDescriptor struct {
	Name      string
	Kind      string
	Priority  int
	Tab       []Locator
	Reveal    []Locator
	Player    []Locator
	Attribute string
	Keys      []string
}

// ByPriority returns a copy of descs sorted by ascending priority. Equal
// priorities keep their configured order.
func ByPriority(descs []SourceDescriptor) []SourceDescriptor {
	sorted := slices.Clone(descs)
	slices.SortStableFunc(sorted, func(a, b SourceDescriptor) int {
		return cmp.Compare(a.Priority, b.Priority)
	})
	return sorted
}

// Alternate is one source's media address found on a detail page.
type Alternate struct {
	Source string
	URL    string
}

// Alternates maps source names to media URLs in the order they were found.
type Alternates []Alternate

// Get returns the URL recorded for source.
func (a Alternates) Get(source string) (string, bool) {
	for _, alt := range a {
		if alt.Source == source {
			return alt.URL, true
		}
	}
	return "", false
}

// With returns a with source appended. An already recorded source keeps its
// first URL.
func (a Alternates) With(source, mediaURL string) Alternates {
	if _, ok := a.Get(source); ok {
		return a
	}
	return append(a, Alternate{Source: source, URL: mediaURL})
}

// Resolved is the canonical playable address of a title plus every alternate
// found on the same page. Alternates always contains Source -> MediaURL.
type Resolved struct {
	Title      string
	MediaURL   string
	Source     string
	Alternates Alternates
}

// IsAbsoluteURL reports whether raw is an absolute http(s) URL with a host.
func IsAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
