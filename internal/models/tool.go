package models

import "runtime"

// Tool identifies one of the two external executables the engine drives
type Tool int

const (
	// ToolFetcher is yt-dlp, which locates and downloads the source media
	ToolFetcher Tool = iota
	// ToolConverter is ffmpeg, which yt-dlp uses for audio extraction
	ToolConverter
)

// Tools lists every tool in provisioning order
var Tools = []Tool{ToolFetcher, ToolConverter}

// String returns the executable base name of the tool
func (t Tool) String() string {
	switch t {
	case ToolFetcher:
		return "yt-dlp"
	case ToolConverter:
		return "ffmpeg"
	default:
		return "unknown"
	}
}

// VersionFlag is the argument that makes the tool print its version and exit 0.
// ffmpeg uses a single dash.
func (t Tool) VersionFlag() string {
	if t == ToolConverter {
		return "-version"
	}
	return "--version"
}

// DownloadPage is where users can obtain a working build of the tool
func (t Tool) DownloadPage() string {
	switch t {
	case ToolFetcher:
		return "https://github.com/yt-dlp/yt-dlp/releases/latest"
	case ToolConverter:
		return "https://ffmpeg.org/download.html"
	default:
		return ""
	}
}

// Target is the platform/architecture pair a packaged binary was built for
type Target struct {
	Platform string // windows, macos or linux
	Arch     string // x64 or arm64
}

// HostTarget returns the Target of the running process.
// Unknown operating systems map to linux and unknown architectures to x64.
func HostTarget() Target {
	return TargetFor(runtime.GOOS, runtime.GOARCH)
}

// TargetFor maps Go's GOOS/GOARCH values onto packaged-resource directory names
func TargetFor(goos, goarch string) Target {
	t := Target{Platform: "linux", Arch: "x64"}
	switch goos {
	case "windows":
		t.Platform = "windows"
	case "darwin":
		t.Platform = "macos"
	}
	if goarch == "arm64" {
		t.Arch = "arm64"
	}
	return t
}

// ExecutableName appends the platform executable suffix to the tool name
func (t Target) ExecutableName(tool Tool) string {
	if t.Platform == "windows" {
		return tool.String() + ".exe"
	}
	return tool.String()
}

// CachedBinaryState is the provisioner's belief about one extracted tool
type CachedBinaryState struct {
	Path     string
	Size     int64
	Verified bool
}
