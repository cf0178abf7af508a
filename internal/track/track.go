// Package track holds the reference to a playable YouTube video.
package track

import (
	"net/url"
	"strings"
)

// IDLength is the length of every YouTube video ID.
const IDLength = 11

// Track references a single video. It is a value type and is never mutated
// after creation.
type Track struct {
	VideoID string `json:"videoId"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

// New builds a Track for id, deriving the canonical watch URL.
func New(id, title string) Track {
	return Track{VideoID: id, Title: title, URL: WatchURL(id)}
}

// ValidID reports whether id has the shape of a YouTube video ID.
func ValidID(id string) bool {
	return len(id) == IDLength
}

// WatchURL returns the canonical watch URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// IsYouTubeURL reports whether s parses as a URL on a YouTube host.
func IsYouTubeURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return isYouTubeHost(u.Hostname())
}

func isYouTubeHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be":
		return true
	}
	return false
}

// ExtractVideoID pulls the video ID out of a YouTube URL. It understands
// watch URLs, youtu.be short links, shorts and embed paths. The second
// return value is false when no valid ID is present.
func ExtractVideoID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || !isYouTubeHost(u.Hostname()) {
		return "", false
	}

	var id string
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	path := strings.Trim(u.Path, "/")
	switch {
	case host == "youtu.be":
		id, _, _ = strings.Cut(path, "/")
	case u.Query().Has("v"):
		id = u.Query().Get("v")
	case strings.HasPrefix(path, "shorts/"), strings.HasPrefix(path, "embed/"), strings.HasPrefix(path, "live/"):
		_, rest, _ := strings.Cut(path, "/")
		id, _, _ = strings.Cut(rest, "/")
	}

	if !ValidID(id) {
		return "", false
	}
	return id, true
}
