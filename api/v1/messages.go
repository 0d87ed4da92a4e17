// Package v1 holds the wire messages and service definition of tubemp3.v1.DownloaderService.
// Messages are plain structs encoded with the json codec registered by this package.
package v1

// DownloadRequest asks the service to fetch a video or playlist as MP3
type DownloadRequest struct {
	Url         string `json:"url"`
	OutputDir   string `json:"output_dir,omitempty"`
	BitrateKbps int32  `json:"bitrate_kbps,omitempty"`
}

// Progress mirrors one progress record of a running request
type Progress struct {
	RequestId       string  `json:"request_id"`
	OverallFraction float64 `json:"overall_fraction"`
	CurrentItem     int32   `json:"current_item,omitempty"`
	TotalItems      int32   `json:"total_items,omitempty"`
	ItemFraction    float64 `json:"item_fraction"`
	Phase           string  `json:"phase"`
	CurrentTitle    string  `json:"current_title,omitempty"`
}

// Item is one produced MP3 file
type Item struct {
	OutputPath      string   `json:"output_path"`
	Title           string   `json:"title,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	FileSizeBytes   *int64   `json:"file_size_bytes,omitempty"`
	Skipped         bool     `json:"skipped,omitempty"`
}

// ItemFailure is a playlist item that failed without stopping the playlist
type ItemFailure struct {
	Index int32  `json:"index"`
	Title string `json:"title,omitempty"`
	Url   string `json:"url"`
	Error string `json:"error"`
}

// Playlist is the outcome of a playlist request
type Playlist struct {
	OutputDir  string         `json:"output_dir"`
	TotalItems int32          `json:"total_items"`
	Items      []*Item        `json:"items"`
	Failed     []*ItemFailure `json:"failed,omitempty"`
}

// DownloadResult is "single" with Single set or "playlist" with Playlist set
type DownloadResult struct {
	Kind     string    `json:"kind"`
	Single   *Item     `json:"single,omitempty"`
	Playlist *Playlist `json:"playlist,omitempty"`
}

// DownloadEvent carries either a progress update or the final result
type DownloadEvent struct {
	RequestId string          `json:"request_id"`
	Progress  *Progress       `json:"progress,omitempty"`
	Result    *DownloadResult `json:"result,omitempty"`
}

type ConvertRequest struct {
	InputPath   string `json:"input_path"`
	OutputPath  string `json:"output_path,omitempty"`
	BitrateKbps int32  `json:"bitrate_kbps,omitempty"`
}

type ConvertEvent struct {
	Progress *Progress `json:"progress,omitempty"`
	Result   *Item     `json:"result,omitempty"`
}

type CheckDependenciesRequest struct{}

// Dependency is the provisioning status of one bundled tool
type Dependency struct {
	Tool    string `json:"tool"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Error   string `json:"error,omitempty"`
	Ready   bool   `json:"ready"`
}

type CheckDependenciesResponse struct {
	Fetcher   *Dependency `json:"fetcher"`
	Converter *Dependency `json:"converter"`
	Ready     bool        `json:"ready"`
}

type ClearCachedBinariesRequest struct{}

type ClearCachedBinariesResponse struct {
	Removed int32 `json:"removed"`
}

type HistoryEntry struct {
	Url             string   `json:"url"`
	Title           string   `json:"title"`
	OutputPath      string   `json:"output_path"`
	BitrateKbps     int32    `json:"bitrate_kbps"`
	Timestamp       string   `json:"timestamp"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

type GetHistoryRequest struct{}

type GetHistoryResponse struct {
	Entries []*HistoryEntry `json:"entries"`
}

type ClearHistoryRequest struct{}

type ClearHistoryResponse struct{}

// Preferences fields left nil are not touched by SavePreferences
type Preferences struct {
	OutputDir   *string `json:"output_dir,omitempty"`
	BitrateKbps *int32  `json:"bitrate_kbps,omitempty"`
	LastUrl     *string `json:"last_url,omitempty"`
}

type GetPreferencesRequest struct{}

type GetPreferencesResponse struct {
	Preferences *Preferences `json:"preferences"`
}

type SavePreferencesRequest struct {
	Preferences *Preferences `json:"preferences"`
}

type SavePreferencesResponse struct {
	Preferences *Preferences `json:"preferences"`
}
