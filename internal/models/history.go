package models

// HistoryEntry records one completed download
type HistoryEntry struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	OutputPath      string   `json:"outputPath"`
	BitrateKbps     int      `json:"bitrateKbps"`
	Timestamp       string   `json:"timestamp"` // RFC 3339
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
}

// Preferences are the user's remembered choices.
// Nil fields are left untouched when saving.
type Preferences struct {
	OutputDir   *string `json:"outputDir,omitempty"`
	BitrateKbps *int    `json:"bitrateKbps,omitempty"`
	LastURL     *string `json:"lastUrl,omitempty"`
}
