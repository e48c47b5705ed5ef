package dedupe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stupside/marquee/internal/dedupe"
	"github.com/stupside/marquee/internal/film"
)

func TestFilms(t *testing.T) {
	t.Parallel()

	films := []film.Resolved{
		{Title: "Alpha", MediaURL: "https://h.example/v1.mp4", Source: "VIDZY"},
		{Title: "Beta", MediaURL: "https://h.example/v2.mp4", Source: "DOOD"},
		{Title: "Alpha (HD)", MediaURL: "https://h.example/v1.mp4", Source: "PREMIUM"},
		{Title: "Gamma", MediaURL: "https://h.example/v3.mp4", Source: "VOE"},
		{Title: "Beta", MediaURL: "https://h.example/v2.mp4", Source: "DOOD"},
	}

	t.Run("first occurrence wins", func(t *testing.T) {
		t.Parallel()

		got := dedupe.Films(films)

		titles := make([]string, len(got))
		for i, f := range got {
			titles[i] = f.Title
		}
		assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, titles)
		assert.Equal(t, "VIDZY", got[0].Source)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		once := dedupe.Films(films)
		assert.Equal(t, once, dedupe.Films(once))
	})

	t.Run("does not touch input", func(t *testing.T) {
		t.Parallel()

		dedupe.Films(films)
		assert.Len(t, films, 5)
		assert.Equal(t, "Alpha (HD)", films[2].Title)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, dedupe.Films(nil))
		assert.Empty(t, dedupe.Films([]film.Resolved{}))
	})
}
