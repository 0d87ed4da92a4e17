package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/cache"
	"github.com/Belphemur/TubeMP3/internal/process"
	"github.com/Belphemur/TubeMP3/internal/testutil"
)

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	c, err := cache.New("memory", cache.ProviderConfig{Size: 10, TTL: time.Minute})
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func fastRetry(attempts int) RetryOptions {
	return RetryOptions{MaxAttempts: attempts, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestVideoMetadata_ParsesAndCaches(t *testing.T) {
	runner := &fakeRunner{
		runOnce: func(_ context.Context, _ string, _ []string) (*process.Output, error) {
			return &process.Output{Stdout: []byte(testutil.GenerateVideoJSON("abc123", "My Song", 215.5) + "\n")}, nil
		},
	}
	svc := NewMetadataService(runner, newTestCache(t), nil, fastRetry(1))

	for range 2 {
		meta, err := svc.VideoMetadata(context.Background(), "/bin/yt-dlp", "https://www.youtube.com/watch?v=abc123")
		if err != nil {
			t.Fatalf("VideoMetadata: %v", err)
		}
		if meta.ID != "abc123" || meta.Title != "My Song" {
			t.Errorf("meta = %+v", meta)
		}
		if meta.Duration == nil || *meta.Duration != 215.5 {
			t.Errorf("Duration = %v, want 215.5", meta.Duration)
		}
	}

	if len(runner.onceArgs) != 1 {
		t.Fatalf("fetcher ran %d times, want 1 (second call cached)", len(runner.onceArgs))
	}
	args := runner.onceArgs[0]
	if args[0] != "--dump-json" || args[1] != "--no-playlist" || args[2] != "https://www.youtube.com/watch?v=abc123" {
		t.Errorf("args = %q", args)
	}
}

func TestVideoMetadata_MalformedOutput(t *testing.T) {
	tests := map[string]string{
		"empty":     "",
		"not json":  "WARNING: something\n",
		"no fields": "{}\n",
	}
	for name, stdout := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestCache(t)
			runner := &fakeRunner{
				runOnce: func(_ context.Context, _ string, _ []string) (*process.Output, error) {
					return &process.Output{Stdout: []byte(stdout)}, nil
				},
			}
			svc := NewMetadataService(runner, c, nil, fastRetry(1))

			_, err := svc.VideoMetadata(context.Background(), "/bin/yt-dlp", "https://youtu.be/x")
			var parseErr *apperrors.ErrMetadataParse
			if !errors.As(err, &parseErr) {
				t.Fatalf("err = %v, want *ErrMetadataParse", err)
			}
			if c.Len(context.Background()) != 0 {
				t.Error("Unparseable output must not stay cached")
			}
		})
	}
}

func TestVideoMetadata_RetriesFailedQuery(t *testing.T) {
	calls := 0
	runner := &fakeRunner{
		runOnce: func(_ context.Context, _ string, _ []string) (*process.Output, error) {
			calls++
			if calls < 3 {
				return &process.Output{ExitCode: 1, Stderr: []byte("HTTP Error 429: Too Many Requests")}, nil
			}
			return &process.Output{Stdout: []byte(testutil.GenerateVideoJSON("r1", "Retried", 0))}, nil
		},
	}
	svc := NewMetadataService(runner, nil, nil, fastRetry(3))

	meta, err := svc.VideoMetadata(context.Background(), "/bin/yt-dlp", "https://youtu.be/r1")
	if err != nil {
		t.Fatalf("VideoMetadata: %v", err)
	}
	if meta.Title != "Retried" || calls != 3 {
		t.Errorf("meta = %+v after %d calls", meta, calls)
	}
}

func TestVideoMetadata_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	runner := &fakeRunner{
		runOnce: func(_ context.Context, _ string, _ []string) (*process.Output, error) {
			calls++
			return &process.Output{ExitCode: 2, Stderr: []byte("ERROR: Private video")}, nil
		},
	}
	svc := NewMetadataService(runner, nil, nil, fastRetry(2))

	_, err := svc.VideoMetadata(context.Background(), "/bin/yt-dlp", "https://youtu.be/p1")
	var dlErr *apperrors.ErrDownloadFailed
	if !errors.As(err, &dlErr) {
		t.Fatalf("err = %v, want *ErrDownloadFailed", err)
	}
	if dlErr.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", dlErr.ExitCode)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestVideoMetadata_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{
		runOnce: func(ctx context.Context, _ string, _ []string) (*process.Output, error) {
			cancel()
			return nil, ctx.Err()
		},
	}
	svc := NewMetadataService(runner, nil, nil, fastRetry(5))

	_, err := svc.VideoMetadata(ctx, "/bin/yt-dlp", "https://youtu.be/c1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(runner.onceArgs) != 1 {
		t.Errorf("cancelled query was retried %d times", len(runner.onceArgs)-1)
	}
}

func TestPlaylistEntries(t *testing.T) {
	stdout := strings.Join([]string{
		testutil.GeneratePlaylistJSON([]testutil.PlaylistEntryOptions{{ID: "a1", Title: "First", Duration: testutil.Float64Ptr(60)}}),
		"not json at all",
		testutil.GeneratePlaylistJSON([]testutil.PlaylistEntryOptions{{ID: "a2", Title: "Second"}}),
		"",
		`{"title":"no id or url"}`,
		testutil.GeneratePlaylistJSON([]testutil.PlaylistEntryOptions{{ID: "a3"}}),
	}, "\n") + "\n"
	runner := &fakeRunner{
		runOnce: func(_ context.Context, _ string, _ []string) (*process.Output, error) {
			return &process.Output{Stdout: []byte(stdout)}, nil
		},
	}
	svc := NewMetadataService(runner, nil, newTestCache(t), fastRetry(1))

	entries, err := svc.PlaylistEntries(context.Background(), "/bin/yt-dlp", "https://www.youtube.com/playlist?list=XYZ")
	if err != nil {
		t.Fatalf("PlaylistEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Got %d entries, want 3: %+v", len(entries), entries)
	}
	if entries[0].ID != "a1" || entries[1].ID != "a2" || entries[2].ID != "a3" {
		t.Errorf("order = %s, %s, %s", entries[0].ID, entries[1].ID, entries[2].ID)
	}
	if entries[0].Duration == nil || *entries[0].Duration != 60 {
		t.Errorf("Duration of first entry = %v", entries[0].Duration)
	}
	if args := runner.onceArgs[0]; args[1] != "--flat-playlist" {
		t.Errorf("args = %q", args)
	}
}

func TestPlaylistEntries_Empty(t *testing.T) {
	runner := &fakeRunner{
		runOnce: func(_ context.Context, _ string, _ []string) (*process.Output, error) {
			return &process.Output{Stdout: []byte("\n")}, nil
		},
	}
	svc := NewMetadataService(runner, nil, nil, fastRetry(1))

	_, err := svc.PlaylistEntries(context.Background(), "/bin/yt-dlp", "https://www.youtube.com/playlist?list=EMPTY")
	if !errors.Is(err, &apperrors.ErrEmptyPlaylist{}) {
		t.Fatalf("err = %v, want ErrEmptyPlaylist", err)
	}
}
