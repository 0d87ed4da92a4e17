package reporting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
)

type capturedEvents struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *capturedEvents) beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturedEvents) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestNew_EmptyDSNIsDisabled(t *testing.T) {
	r, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r.Enabled() {
		t.Error("Expected reporter without DSN to be disabled")
	}
	// Must not panic
	r.Capture(errors.New("boom"), nil)
	r.Flush()
}

func TestNew_InvalidDSN(t *testing.T) {
	if _, err := New(Options{DSN: "not a dsn"}); err == nil {
		t.Fatal("Expected an error for a malformed DSN")
	}
}

func TestCapture_SendsReportableErrors(t *testing.T) {
	captured := &capturedEvents{}
	r, err := New(Options{
		DSN:         "https://public@example.com/1",
		Environment: "test",
		beforeSend:  captured.beforeSend,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	r.Capture(apperrors.NewExtractionError("ffmpeg", "/res/ffmpeg", "bundled binary is not packaged", "", nil),
		map[string]string{"operation": "download"})
	r.Capture(apperrors.NewInvalidURLError("https://example.com"), nil)
	r.Capture(fmt.Errorf("download: %w", context.Canceled), nil)

	if got := captured.len(); got != 1 {
		t.Fatalf("captured %d events, want 1", got)
	}
	event := captured.events[0]
	if event.Environment != "test" {
		t.Errorf("Environment = %q, want test", event.Environment)
	}
	if event.Tags["operation"] != "download" {
		t.Errorf("Tags = %v, want operation=download", event.Tags)
	}
}

func TestReportable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline wrapped", fmt.Errorf("query: %w", context.DeadlineExceeded), false},
		{"invalid url", apperrors.NewInvalidURLError("x"), false},
		{"invalid bitrate", apperrors.NewInvalidBitrateError(8, 32, 320), false},
		{"empty playlist", apperrors.NewEmptyPlaylistError("x"), false},
		{"insufficient space", apperrors.NewInsufficientSpaceError("/music", 1, 2), false},
		{"download failed", apperrors.NewDownloadFailedError("x", "/bin/yt-dlp", 1, "ERROR", "transfer failed"), true},
		{"verification", apperrors.NewVerificationError("yt-dlp", "/bin/yt-dlp", "version probe failed", 1, ""), true},
		{"plain", errors.New("boom"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Reportable(tt.err); got != tt.want {
				t.Errorf("Reportable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
