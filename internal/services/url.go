package services

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/models"
)

// youtubeMarkers are the URL fragments accepted as a YouTube source
var youtubeMarkers = []string{
	"youtube.com/watch",
	"youtu.be/",
	"youtube.com/embed/",
	"youtube.com/v/",
	"youtube.com/shorts/",
	"m.youtube.com/watch",
	"youtube.com/playlist",
}

var youtubePrefixes = []string{
	"https://youtube.com/",
	"http://youtube.com/",
	"https://youtu.be/",
	"http://youtu.be/",
}

// IsYouTubeURL reports whether raw looks like a YouTube video or playlist URL
func IsYouTubeURL(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	for _, marker := range youtubeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	for _, prefix := range youtubePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// IsPlaylistURL reports whether raw carries a list= parameter on a watch or playlist page
func IsPlaylistURL(raw string) bool {
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "list=") &&
		(strings.Contains(lower, "youtube.com/watch") || strings.Contains(lower, "youtube.com/playlist"))
}

// Classify validates raw and decides once whether it is a single video or a playlist
func Classify(raw string) (models.SourceKind, error) {
	if !IsYouTubeURL(raw) {
		return models.SourceSingle, apperrors.NewInvalidURLError(raw)
	}
	if IsPlaylistURL(raw) {
		return models.SourcePlaylist, nil
	}
	return models.SourceSingle, nil
}

// ExtractVideoID returns the video identifier of raw, or "" when none is present.
// It understands ?v=, youtu.be/<id>, /embed/<id>, /v/<id> and /shorts/<id>.
func ExtractVideoID(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if v := u.Query().Get("v"); v != "" {
		return v
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if strings.EqualFold(u.Hostname(), "youtu.be") {
		return segments[0]
	}
	for i, segment := range segments {
		switch segment {
		case "embed", "v", "shorts":
			if i+1 < len(segments) {
				return segments[i+1]
			}
		}
	}
	return ""
}

// SanitizeFilename replaces characters that are invalid in file names on
// Windows, macOS or Linux, and strips trailing dots and spaces.
func SanitizeFilename(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*', 0:
			return '_'
		}
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)
	return strings.TrimRight(strings.TrimSpace(mapped), ". ")
}

// outputName picks the file stem for an item: sanitized title, then id, then "video"
func outputName(title, id string) string {
	if name := SanitizeFilename(title); name != "" {
		return name
	}
	if name := SanitizeFilename(id); name != "" {
		return name
	}
	return "video"
}

// entryURL returns the watch URL of a flat-playlist entry
func entryURL(entry models.PlaylistEntry) string {
	if strings.HasPrefix(entry.URL, "http://") || strings.HasPrefix(entry.URL, "https://") {
		return entry.URL
	}
	return "https://www.youtube.com/watch?v=" + entry.ID
}
