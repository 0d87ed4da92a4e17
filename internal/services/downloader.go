package services

import (
	"context"

	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/progress"
)

// Downloader turns a video or playlist URL into MP3 files
type Downloader interface {
	// Download runs one request to completion, reporting progress to sink.
	// sink may be nil.
	Download(ctx context.Context, req models.DownloadRequest, sink progress.Sink) (*models.DownloadResponse, error)

	// StreamDownload runs one request in the background. The channel carries
	// progress events followed by exactly one result or error, then closes.
	StreamDownload(ctx context.Context, req models.DownloadRequest) <-chan models.StreamResult[models.DownloadEvent]
}

// BinaryProvider hands out verified paths to the fetcher and the converter
type BinaryProvider interface {
	EnsureAll(ctx context.Context) (fetcher, converter string, err error)
}

// HistoryRecorder persists successful downloads
type HistoryRecorder interface {
	Add(entry models.HistoryEntry) error
}
