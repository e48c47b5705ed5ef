package sink_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupside/marquee/internal/film"
	"github.com/stupside/marquee/internal/sink"
)

var films = []film.Resolved{
	{
		Title:    "Amélie & Nino",
		MediaURL: "https://h.example/v1.mp4?a=1&b=2",
		Source:   "VIDZY",
		Alternates: film.Alternates{
			{Source: "VIDZY", URL: "https://h.example/v1.mp4?a=1&b=2"},
			{Source: "DOOD", URL: "https://d.example/e/<2>"},
		},
	},
}

func TestEncode(t *testing.T) {
	t.Parallel()

	data, err := sink.Encode(films)
	require.NoError(t, err)

	want := `[
  {
    "title": "Amélie & Nino",
    "video_url": "https://h.example/v1.mp4?a=1&b=2",
    "source": "VIDZY",
    "all_sources": {
      "VIDZY": "https://h.example/v1.mp4?a=1&b=2",
      "DOOD": "https://d.example/e/<2>"
    }
  }
]
`
	assert.Equal(t, want, string(data))
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	data, err := sink.Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestSourcesKeepOrder(t *testing.T) {
	t.Parallel()

	data, err := sink.Sources{
		{Source: "VOE", URL: "https://v.example/1"},
		{Source: "ARTPLAYER", URL: "https://a.example/2"},
		{Source: "DOOD", URL: "https://d.example/3"},
	}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"VOE":"https://v.example/1","ARTPLAYER":"https://a.example/2","DOOD":"https://d.example/3"}`, string(data))
}

func TestJSONWrite(t *testing.T) {
	t.Parallel()

	t.Run("replaces file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "films.json")
		require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

		s := sink.JSON{Path: path}
		require.NoError(t, s.Write(films))

		got, err := os.ReadFile(path)
		require.NoError(t, err)
		want, err := sink.Encode(films)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotContains(t, e.Name(), ".tmp")
		}
	})

	t.Run("refuses locked output", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "films.json")
		held := flock.New(path + ".lock")
		ok, err := held.TryLock()
		require.NoError(t, err)
		require.True(t, ok)
		t.Cleanup(func() { _ = held.Unlock() })

		s := sink.JSON{Path: path}
		assert.ErrorIs(t, s.Write(films), sink.ErrLocked)
	})

	t.Run("missing directory", func(t *testing.T) {
		t.Parallel()

		s := sink.JSON{Path: filepath.Join(t.TempDir(), "nope", "films.json")}
		assert.Error(t, s.Write(films))
	})
}
