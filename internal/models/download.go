package models

// DownloadRequest is the caller-supplied input of one orchestration call
type DownloadRequest struct {
	URL         string `json:"url"`
	OutputDir   string `json:"outputDir"`
	BitrateKbps int    `json:"bitrateKbps"` // 0 selects the configured default
}

// SourceKind is the result of URL classification
type SourceKind int

const (
	SourceSingle SourceKind = iota
	SourcePlaylist
)

// String returns the string representation of the source kind
func (k SourceKind) String() string {
	if k == SourcePlaylist {
		return "playlist"
	}
	return "single"
}

// MarshalText encodes the kind as "single" or "playlist"
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes "single" or "playlist"
func (k *SourceKind) UnmarshalText(text []byte) error {
	if string(text) == "playlist" {
		*k = SourcePlaylist
	} else {
		*k = SourceSingle
	}
	return nil
}

// DownloadItemResult describes one produced (or already present) MP3 file
type DownloadItemResult struct {
	OutputPath      string   `json:"outputPath"`
	Title           string   `json:"title,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	FileSizeBytes   *int64   `json:"fileSizeBytes,omitempty"`
	Skipped         bool     `json:"skipped,omitempty"` // the file existed before the request
}

// PlaylistItemFailure records an item whose transfer failed without aborting the playlist
type PlaylistItemFailure struct {
	Index int    `json:"index"` // 1-based position in the playlist
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// PlaylistResult is the outcome of a playlist download.
// TotalItems is fixed at enumeration time, Items only holds items that succeeded.
type PlaylistResult struct {
	OutputDir  string                `json:"outputDir"`
	TotalItems int                   `json:"totalItems"`
	Items      []DownloadItemResult  `json:"items"`
	Failed     []PlaylistItemFailure `json:"failed,omitempty"`
}

// DownloadResponse is the tagged result of one orchestration call.
// Exactly one of Single or Playlist is set, according to Kind.
type DownloadResponse struct {
	Kind     SourceKind          `json:"kind"`
	Single   *DownloadItemResult `json:"single,omitempty"`
	Playlist *PlaylistResult     `json:"playlist,omitempty"`
}

// ProgressRecord is a snapshot of a running request's progress.
// Fractions are percentages in [0, 100].
type ProgressRecord struct {
	RequestID       string  `json:"requestId,omitempty"`
	OverallFraction float64 `json:"overallFraction"`
	CurrentItem     int     `json:"currentItem,omitempty"` // 1-based, 0 when unknown
	TotalItems      int     `json:"totalItems,omitempty"`
	ItemFraction    float64 `json:"itemFraction"`
	Phase           Phase   `json:"phase"`
	CurrentTitle    string  `json:"currentTitle,omitempty"`
}

// DownloadEvent is one element of a request's live event stream.
// Progress events precede exactly one Result event.
type DownloadEvent struct {
	RequestID string            `json:"requestId"`
	Progress  *ProgressRecord   `json:"progress,omitempty"`
	Result    *DownloadResponse `json:"result,omitempty"`
}

// VideoMetadata is the subset of the fetcher's --dump-json output the engine uses
type VideoMetadata struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// PlaylistEntry is one line of the fetcher's --flat-playlist output
type PlaylistEntry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title,omitempty"`
	URL      string   `json:"url,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// ConvertRequest asks the converter to transcode a local file to MP3
type ConvertRequest struct {
	InputPath   string `json:"inputPath"`
	OutputPath  string `json:"outputPath,omitempty"` // defaults to the input path with an .mp3 extension
	BitrateKbps int    `json:"bitrateKbps"`
}
