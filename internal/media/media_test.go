package media_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/marquee/internal/media"
)

func TestDetectFromExtension(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://cdn.example/a/film.mp4":        media.MP4,
		"https://cdn.example/a/FILM.MKV":        media.MKV,
		"https://cdn.example/hls/master.m3u8?t": media.HLS,
		"https://cdn.example/embed/42":          "",
	}
	for raw, want := range tests {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, want, media.DetectFromExtension(u), raw)
	}
}

func TestIsMediaURL(t *testing.T) {
	t.Parallel()

	assert.True(t, media.IsMediaURL("https://cdn.example/film.mp4"))
	assert.False(t, media.IsMediaURL("/film.mp4"))
	assert.False(t, media.IsMediaURL("https://cdn.example/player"))
}

func TestScanMarkup(t *testing.T) {
	t.Parallel()

	markup := `<script>var cfg = {"file":"https:\/\/cdn.example\/v\/a.mp4","poster":"https://cdn.example/p.jpg"};</script>
<a href="https://cdn.example/v/a.mp4">again</a>
<source src='https://edge.example/hls/index.m3u8'>`

	assert.Equal(t, []string{
		"https://cdn.example/v/a.mp4",
		"https://edge.example/hls/index.m3u8",
	}, media.ScanMarkup(markup))

	assert.Empty(t, media.ScanMarkup("<p>no media here https://example.com/page</p>"))

	t.Run("attribute entities are decoded", func(t *testing.T) {
		t.Parallel()

		markup := `<video src="https://cdn.example/v/b.mp4?token=1&amp;exp=2"></video>`
		assert.Equal(t, []string{"https://cdn.example/v/b.mp4?token=1&exp=2"}, media.ScanMarkup(markup))
	})
}
