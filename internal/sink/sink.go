// Package sink writes resolved films to disk as a JSON catalog.
package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/stupside/marquee/internal/film"
)

var ErrLocked = errors.New("output file is locked by another run")

// Record is one entry of the output catalog.
type Record struct {
	Title      string  `json:"title"`
	VideoURL   string  `json:"video_url"`
	Source     string  `json:"source"`
	AllSources Sources `json:"all_sources"`
}

// Sources serializes as a JSON object whose keys keep their insertion order.
type Sources film.Alternates

func (s Sources) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, alt := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, alt.Source); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeString(&buf, alt.URL); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1)
	return nil
}

// Records converts films to output records.
func Records(films []film.Resolved) []Record {
	out := make([]Record, 0, len(films))
	for _, f := range films {
		out = append(out, Record{
			Title:      f.Title,
			VideoURL:   f.MediaURL,
			Source:     f.Source,
			AllSources: Sources(f.Alternates),
		})
	}
	return out
}

// Encode renders films as the indented output document.
func Encode(films []film.Resolved) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Records(films)); err != nil {
		return nil, fmt.Errorf("encoding films: %w", err)
	}
	return buf.Bytes(), nil
}

// JSON writes the catalog to Path. Concurrent runs targeting the same file
// are refused rather than interleaved.
type JSON struct {
	Path string
}

// Write replaces the file at Path with films. The file is either the previous
// content or the complete new catalog, never a partial write.
func (s *JSON) Write(films []film.Resolved) error {
	data, err := Encode(films)
	if err != nil {
		return err
	}

	lock := flock.New(s.Path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.Path)
	}
	defer func() { _ = lock.Unlock() }()

	return writeFileAtomic(s.Path, data, 0o644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".marquee-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
