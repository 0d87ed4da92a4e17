package testutil

import (
	"context"

	"github.com/Belphemur/TubeMP3/internal/models"
)

// CollectDownloadEvents consumes a download event stream until it closes.
// It returns the events seen so far together with the first streamed error.
// This is a test helper and should not be used in production code.
func CollectDownloadEvents(ctx context.Context, stream <-chan models.StreamResult[models.DownloadEvent]) ([]models.DownloadEvent, error) {
	var events []models.DownloadEvent
	for {
		select {
		case result, ok := <-stream:
			if !ok {
				return events, nil
			}
			if result.Err != nil {
				return events, result.Err
			}
			events = append(events, result.Value)
		case <-ctx.Done():
			return events, ctx.Err()
		}
	}
}

// FinalResult returns the result carried by the last event, or nil
func FinalResult(events []models.DownloadEvent) *models.DownloadResponse {
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1].Result
}
