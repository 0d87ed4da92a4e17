package binaries

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/Belphemur/TubeMP3/internal/models"
)

func TestLocator_ResourcePath(t *testing.T) {
	tests := []struct {
		name   string
		target models.Target
		tool   models.Tool
		want   string
	}{
		{"linux fetcher", models.TargetFor("linux", "amd64"), models.ToolFetcher, filepath.Join("res", "binaries", "linux", "x64", "yt-dlp")},
		{"macos arm converter", models.TargetFor("darwin", "arm64"), models.ToolConverter, filepath.Join("res", "binaries", "macos", "arm64", "ffmpeg")},
		{"windows fetcher", models.TargetFor("windows", "amd64"), models.ToolFetcher, filepath.Join("res", "binaries", "windows", "x64", "yt-dlp.exe")},
		{"windows arm converter", models.TargetFor("windows", "arm64"), models.ToolConverter, filepath.Join("res", "binaries", "windows", "arm64", "ffmpeg.exe")},
		{"unknown os falls back to linux", models.TargetFor("freebsd", "386"), models.ToolFetcher, filepath.Join("res", "binaries", "linux", "x64", "yt-dlp")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLocatorForTarget("res", "data", tt.target)
			if got := l.ResourcePath(tt.tool); got != tt.want {
				t.Errorf("ResourcePath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocator_CachePath(t *testing.T) {
	l := NewLocatorForTarget("res", "data", models.TargetFor("windows", "amd64"))
	if got, want := l.CachePath(models.ToolConverter), filepath.Join("data", "bin", "ffmpeg.exe"); got != want {
		t.Errorf("CachePath() = %q, want %q", got, want)
	}
	if got, want := l.CacheDir(), filepath.Join("data", "bin"); got != want {
		t.Errorf("CacheDir() = %q, want %q", got, want)
	}
}

func TestLocator_ResourceCandidates(t *testing.T) {
	l := NewLocatorForTarget("res", "data", models.TargetFor("linux", "amd64"))
	candidates := l.ResourceCandidates(models.ToolFetcher)

	if len(candidates) != len(packagedSuffixes)+1 {
		t.Fatalf("Got %d candidates, want %d", len(candidates), len(packagedSuffixes)+1)
	}
	if candidates[0] != l.ResourcePath(models.ToolFetcher) {
		t.Errorf("First candidate = %q, want the plain resource path", candidates[0])
	}
	for i, suffix := range packagedSuffixes {
		if !strings.HasSuffix(candidates[i+1], "yt-dlp"+suffix) {
			t.Errorf("candidate %d = %q, want suffix %q", i+1, candidates[i+1], suffix)
		}
	}
}
