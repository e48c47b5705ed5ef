package film_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stupside/marquee/internal/film"
)

func TestByPriority(t *testing.T) {
	t.Parallel()

	descs := []film.SourceDescriptor{
		{Name: "VOE", Priority: 5},
		{Name: "PREMIUM", Priority: 1},
		{Name: "DOOD", Priority: 3},
		{Name: "FILMOON", Priority: 3},
	}

	sorted := film.ByPriority(descs)

	names := make([]string, len(sorted))
	for i, d := range sorted {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"PREMIUM", "DOOD", "FILMOON", "VOE"}, names)
	assert.Equal(t, "VOE", descs[0].Name, "input must not be reordered")
}

func TestAlternates(t *testing.T) {
	t.Parallel()

	var alts film.Alternates
	alts = alts.With("VIDZY", "https://h.example/v1.mp4")
	alts = alts.With("DOOD", "https://d.example/e/2")
	alts = alts.With("VIDZY", "https://other.example/x.mp4")

	assert.Len(t, alts, 2)
	got, ok := alts.Get("VIDZY")
	assert.True(t, ok)
	assert.Equal(t, "https://h.example/v1.mp4", got)

	_, ok = alts.Get("VOE")
	assert.False(t, ok)
}

func TestIsAbsoluteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want bool
	}{
		{"https://h.example/v1.mp4", true},
		{"http://h.example", true},
		{"//h.example/v1.mp4", false},
		{"/embed/42", false},
		{"about:blank", false},
		{"javascript:void(0)", false},
		{"", false},
		{"https://", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, film.IsAbsoluteURL(tt.raw), tt.raw)
	}
}

func TestAttempt(t *testing.T) {
	t.Parallel()

	pass := film.Attempt{Number: 1, Outcomes: []film.Outcome{
		film.NotPresent("PREMIUM"),
		film.Failed("VIDZY", film.ReasonTimeout, nil),
	}}
	assert.True(t, pass.HasFailure())
	assert.False(t, pass.NavigationFailed())

	nav := film.Attempt{Number: 1, Outcomes: []film.Outcome{
		film.Failed("", film.ReasonNavigation, nil),
	}}
	assert.True(t, nav.NavigationFailed())

	absent := film.Attempt{Number: 1, Outcomes: []film.Outcome{film.NotPresent("PREMIUM")}}
	assert.False(t, absent.HasFailure())
}
