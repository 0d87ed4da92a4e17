package services

import (
	"context"

	"github.com/Belphemur/TubeMP3/internal/models"
)

// MetadataService queries the fetcher for video and playlist information
type MetadataService interface {
	// VideoMetadata runs the fetcher in metadata-only mode for a single video.
	// Unparseable output is reported as *apperrors.ErrMetadataParse.
	VideoMetadata(ctx context.Context, fetcherPath, url string) (*models.VideoMetadata, error)

	// PlaylistEntries lists a playlist's items in order.
	// Zero entries is reported as *apperrors.ErrEmptyPlaylist.
	PlaylistEntries(ctx context.Context, fetcherPath, url string) ([]models.PlaylistEntry, error)
}
