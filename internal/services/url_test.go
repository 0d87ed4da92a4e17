package services

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/models"
)

func TestIsYouTubeURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc123", true},
		{"https://m.youtube.com/watch?v=abc123", true},
		{"https://youtu.be/abc123", true},
		{"http://youtu.be/abc123?t=10", true},
		{"https://www.youtube.com/embed/abc123", true},
		{"https://www.youtube.com/v/abc123", true},
		{"https://www.youtube.com/shorts/abc123", true},
		{"https://youtube.com/@channel", true},
		{"https://www.youtube.com/playlist?list=XYZ", true},
		{"HTTPS://WWW.YOUTUBE.COM/WATCH?V=abc", true},
		{"https://vimeo.com/123", false},
		{"not a url", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsYouTubeURL(tt.url); got != tt.want {
				t.Errorf("IsYouTubeURL(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		url     string
		want    models.SourceKind
		wantErr bool
	}{
		{"https://www.youtube.com/watch?v=abc123", models.SourceSingle, false},
		{"https://www.youtube.com/playlist?list=XYZ", models.SourcePlaylist, false},
		{"https://www.youtube.com/watch?v=abc123&list=XYZ", models.SourcePlaylist, false},
		// list= on a short link is not treated as a playlist
		{"https://youtu.be/abc123?list=XYZ", models.SourceSingle, false},
		{"https://example.com/watch?v=abc", models.SourceSingle, true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := Classify(tt.url)
			if tt.wantErr {
				var urlErr *apperrors.ErrInvalidURL
				if !errors.As(err, &urlErr) {
					t.Fatalf("err = %v, want *ErrInvalidURL", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := map[string]string{
		"https://www.youtube.com/watch?v=abc123":          "abc123",
		"https://www.youtube.com/watch?v=abc123&list=XYZ": "abc123",
		"https://youtu.be/xyz789?t=5":                     "xyz789",
		"https://www.youtube.com/embed/emb1":              "emb1",
		"https://www.youtube.com/v/old1":                  "old1",
		"https://www.youtube.com/shorts/short1":           "short1",
		"https://www.youtube.com/playlist?list=XYZ":       "",
		"::not a url":                                     "",
	}
	for in, want := range tests {
		if got := ExtractVideoID(in); got != want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "My Song", "My Song"},
		{"reserved characters", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"control characters", "tab\there\x00nul", "tab_here_nul"},
		{"trailing dots and spaces", "  Title... . ", "Title"},
		{"unicode kept", "Café – Live 🎵", "Café – Live 🎵"},
		{"only invalid", "???", "___"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOutputName(t *testing.T) {
	if got := outputName("A/B", "id1"); got != "A_B" {
		t.Errorf("outputName with title = %q", got)
	}
	if got := outputName("   ", "id1"); got != "id1" {
		t.Errorf("outputName fallback to id = %q", got)
	}
	if got := outputName("", ""); got != "video" {
		t.Errorf("outputName fallback = %q, want video", got)
	}
}

func TestOutputTemplate_EscapesPercent(t *testing.T) {
	got := outputTemplate("/music", "100% Hits")
	want := filepath.Join("/music", "100%% Hits") + ".%(ext)s"
	if got != want {
		t.Errorf("outputTemplate = %q, want %q", got, want)
	}
}

func TestEntryURL(t *testing.T) {
	if got := entryURL(models.PlaylistEntry{ID: "a1"}); got != "https://www.youtube.com/watch?v=a1" {
		t.Errorf("entryURL from id = %q", got)
	}
	if got := entryURL(models.PlaylistEntry{ID: "a1", URL: "https://youtu.be/a1"}); got != "https://youtu.be/a1" {
		t.Errorf("entryURL keeps absolute url, got %q", got)
	}
}
