package testutil

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Float64Ptr returns a pointer to v, for optional durations
func Float64Ptr(v float64) *float64 {
	return &v
}

// PlaylistEntryOptions describes one line of `yt-dlp --flat-playlist --dump-json` output
type PlaylistEntryOptions struct {
	ID       string
	Title    string   // omitted from the JSON when empty
	URL      string   // defaults to the watch URL of ID
	Duration *float64 // omitted when nil
}

// GeneratePlaylistJSON renders one JSON object per line, the way the fetcher enumerates playlists
func GeneratePlaylistJSON(entries []PlaylistEntryOptions) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		obj := map[string]any{"id": e.ID}
		if e.Title != "" {
			obj["title"] = e.Title
		}
		url := e.URL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + e.ID
		}
		obj["url"] = url
		if e.Duration != nil {
			obj["duration"] = *e.Duration
		}
		data, _ := json.Marshal(obj)
		lines[i] = string(data)
	}
	return strings.Join(lines, "\n")
}

// GenerateVideoJSON renders the subset of `yt-dlp --dump-json` the engine reads
func GenerateVideoJSON(id, title string, duration float64) string {
	data, _ := json.Marshal(map[string]any{"id": id, "title": title, "duration": duration})
	return string(data)
}

// TransferLineOptions describes the stderr of one fetcher transfer
type TransferLineOptions struct {
	ID                string
	Percents          []float64 // one [download] line per value
	AlreadyDownloaded bool      // emit the "has already been downloaded" marker instead of percentages
}

// GenerateTransferLines renders the progress lines yt-dlp prints with --newline for one item
func GenerateTransferLines(opts TransferLineOptions) []string {
	lines := []string{
		fmt.Sprintf("[youtube] %s: Downloading webpage", opts.ID),
	}
	if opts.AlreadyDownloaded {
		return append(lines, fmt.Sprintf("[download] /tmp/%s.webm has already been downloaded", opts.ID))
	}
	lines = append(lines, fmt.Sprintf("[download] Destination: /tmp/%s.webm", opts.ID))
	for _, pct := range opts.Percents {
		if pct >= 100 {
			lines = append(lines, "[download] 100% of 3.10MiB in 00:00:02")
			continue
		}
		lines = append(lines, fmt.Sprintf("[download] %5.1f%% of 3.10MiB at 1.00MiB/s ETA 00:03", pct))
	}
	return append(lines,
		fmt.Sprintf("[ExtractAudio] Destination: /tmp/%s.mp3", opts.ID),
		fmt.Sprintf("Deleting original file /tmp/%s.webm (pass -k to keep)", opts.ID),
	)
}
