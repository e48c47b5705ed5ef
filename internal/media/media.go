// Package media recognizes playable media addresses.
package media

import (
	"html"
	"net/url"
	"path"
	"regexp"
	"strings"
)

const (
	MP4  = "video/mp4"
	MKV  = "video/x-matroska"
	WebM = "video/webm"
	AVI  = "video/x-msvideo"
	MOV  = "video/quicktime"
	HLS  = "application/x-mpegURL"
	DASH = "application/dash+xml"
)

var extensionMap = map[string]string{
	".mp4":  MP4,
	".m4v":  MP4,
	".mkv":  MKV,
	".webm": WebM,
	".avi":  AVI,
	".mov":  MOV,
	".m3u8": HLS,
	".mpd":  DASH,
}

// absoluteURLPattern matches quoted-or-bare absolute http(s) URLs in markup.
var absoluteURLPattern = regexp.MustCompile(`https?://[^\s"'<>\\]+`)

// DetectFromExtension returns a content type based on the URL's file extension,
// or empty string if unrecognized.
func DetectFromExtension(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	return extensionMap[ext]
}

// IsMediaURL reports whether raw is an absolute URL whose path ends in a known
// media extension.
func IsMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return DetectFromExtension(u) != ""
}

// ScanMarkup returns the absolute media URLs found in markup, in document
// order and without duplicates. Escaped slashes from inline JSON and HTML
// entities are undone.
func ScanMarkup(markup string) []string {
	markup = strings.ReplaceAll(markup, `\/`, `/`)

	var out []string
	seen := make(map[string]struct{})
	for _, m := range absoluteURLPattern.FindAllString(markup, -1) {
		m = strings.TrimRight(html.UnescapeString(m), ".,;)")
		if !IsMediaURL(m) {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
