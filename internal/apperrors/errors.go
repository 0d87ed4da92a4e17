package apperrors

import (
	"fmt"
	"strings"
)

// maxStderrExcerpt bounds how much captured tool output ends up in an error message.
const maxStderrExcerpt = 2048

// Excerpt trims captured process output to its tail so error messages stay readable.
func Excerpt(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if len(stderr) <= maxStderrExcerpt {
		return stderr
	}
	return "..." + stderr[len(stderr)-maxStderrExcerpt:]
}

// ErrInvalidURL is returned when a URL does not match any accepted source shape.
type ErrInvalidURL struct {
	URL string
}

// Error implements the error interface.
func (e *ErrInvalidURL) Error() string {
	return fmt.Sprintf("invalid YouTube URL %q: provide a video, shorts or playlist link", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidURL) Is(target error) bool {
	_, ok := target.(*ErrInvalidURL)
	return ok
}

// NewInvalidURLError creates a new ErrInvalidURL.
func NewInvalidURLError(url string) *ErrInvalidURL {
	return &ErrInvalidURL{URL: url}
}

// ErrInvalidBitrate is returned when the requested audio bitrate is out of range.
type ErrInvalidBitrate struct {
	Bitrate int
	Min     int
	Max     int
}

// Error implements the error interface.
func (e *ErrInvalidBitrate) Error() string {
	return fmt.Sprintf("invalid bitrate %dk: must be between %dk and %dk", e.Bitrate, e.Min, e.Max)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidBitrate) Is(target error) bool {
	_, ok := target.(*ErrInvalidBitrate)
	return ok
}

// NewInvalidBitrateError creates a new ErrInvalidBitrate.
func NewInvalidBitrateError(bitrate, min, max int) *ErrInvalidBitrate {
	return &ErrInvalidBitrate{Bitrate: bitrate, Min: min, Max: max}
}

// ErrExtraction is returned when a bundled tool cannot be found or is only a placeholder.
type ErrExtraction struct {
	Tool         string
	ResourcePath string
	Reason       string
	Remediation  string
	Err          error
}

// Error implements the error interface.
func (e *ErrExtraction) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to extract %s from %s: %s", e.Tool, e.ResourcePath, e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Remediation != "" {
		b.WriteString("\n\n")
		b.WriteString(e.Remediation)
	}
	return b.String()
}

// Is allows for error checking with errors.Is().
func (e *ErrExtraction) Is(target error) bool {
	_, ok := target.(*ErrExtraction)
	return ok
}

func (e *ErrExtraction) Unwrap() error {
	return e.Err
}

// NewExtractionError creates a new ErrExtraction.
func NewExtractionError(tool, resourcePath, reason, remediation string, err error) *ErrExtraction {
	return &ErrExtraction{
		Tool:         tool,
		ResourcePath: resourcePath,
		Reason:       reason,
		Remediation:  remediation,
		Err:          err,
	}
}

// ErrVerification is returned when an extracted tool fails its checksum or version probe.
type ErrVerification struct {
	Tool     string
	Path     string
	ExitCode int
	Stderr   string
	Reason   string
}

// Error implements the error interface.
func (e *ErrVerification) Error() string {
	msg := fmt.Sprintf("verification of %s at %s failed: %s", e.Tool, e.Path, e.Reason)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Stderr != "" {
		msg += ": " + Excerpt(e.Stderr)
	}
	return msg
}

// Is allows for error checking with errors.Is().
func (e *ErrVerification) Is(target error) bool {
	_, ok := target.(*ErrVerification)
	return ok
}

// NewVerificationError creates a new ErrVerification.
func NewVerificationError(tool, path, reason string, exitCode int, stderr string) *ErrVerification {
	return &ErrVerification{
		Tool:     tool,
		Path:     path,
		ExitCode: exitCode,
		Stderr:   stderr,
		Reason:   reason,
	}
}

// ErrCacheIO is returned when the per-user binary cache cannot be read or written.
type ErrCacheIO struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ErrCacheIO) Error() string {
	return fmt.Sprintf("binary cache %s %s: %v", e.Op, e.Path, e.Err)
}

// Is allows for error checking with errors.Is().
func (e *ErrCacheIO) Is(target error) bool {
	_, ok := target.(*ErrCacheIO)
	return ok
}

func (e *ErrCacheIO) Unwrap() error {
	return e.Err
}

// NewCacheIOError creates a new ErrCacheIO.
func NewCacheIOError(op, path string, err error) *ErrCacheIO {
	return &ErrCacheIO{Op: op, Path: path, Err: err}
}

// ErrProcessSpawn is returned when an external executable cannot be launched.
type ErrProcessSpawn struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ErrProcessSpawn) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Path, e.Err)
}

// Is allows for error checking with errors.Is().
func (e *ErrProcessSpawn) Is(target error) bool {
	_, ok := target.(*ErrProcessSpawn)
	return ok
}

func (e *ErrProcessSpawn) Unwrap() error {
	return e.Err
}

// NewProcessSpawnError creates a new ErrProcessSpawn.
func NewProcessSpawnError(path string, err error) *ErrProcessSpawn {
	return &ErrProcessSpawn{Path: path, Err: err}
}

// ErrMetadataParse is returned when the fetcher's JSON output cannot be understood.
// Callers degrade to a fallback name instead of failing the request.
type ErrMetadataParse struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *ErrMetadataParse) Error() string {
	return fmt.Sprintf("failed to parse metadata for %s: %v", e.URL, e.Err)
}

// Is allows for error checking with errors.Is().
func (e *ErrMetadataParse) Is(target error) bool {
	_, ok := target.(*ErrMetadataParse)
	return ok
}

func (e *ErrMetadataParse) Unwrap() error {
	return e.Err
}

// NewMetadataParseError creates a new ErrMetadataParse.
func NewMetadataParseError(url string, err error) *ErrMetadataParse {
	return &ErrMetadataParse{URL: url, Err: err}
}

// ErrEmptyPlaylist is returned when a playlist enumerates to zero items.
type ErrEmptyPlaylist struct {
	URL string
}

// Error implements the error interface.
func (e *ErrEmptyPlaylist) Error() string {
	return fmt.Sprintf("playlist %s contains no videos", e.URL)
}

// Is allows for error checking with errors.Is().
func (e *ErrEmptyPlaylist) Is(target error) bool {
	_, ok := target.(*ErrEmptyPlaylist)
	return ok
}

// NewEmptyPlaylistError creates a new ErrEmptyPlaylist.
func NewEmptyPlaylistError(url string) *ErrEmptyPlaylist {
	return &ErrEmptyPlaylist{URL: url}
}

// ErrDownloadFailed is returned when the fetcher ran but did not produce the artifact.
type ErrDownloadFailed struct {
	URL        string
	BinaryPath string
	ExitCode   int
	Stderr     string
	Reason     string
}

// Error implements the error interface.
func (e *ErrDownloadFailed) Error() string {
	msg := fmt.Sprintf("download of %s failed", e.URL)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	msg += fmt.Sprintf(" (%s exited with code %d)", e.BinaryPath, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + Excerpt(e.Stderr)
	}
	return msg
}

// Is allows for error checking with errors.Is().
func (e *ErrDownloadFailed) Is(target error) bool {
	_, ok := target.(*ErrDownloadFailed)
	return ok
}

// NewDownloadFailedError creates a new ErrDownloadFailed.
func NewDownloadFailedError(url, binaryPath string, exitCode int, stderr, reason string) *ErrDownloadFailed {
	return &ErrDownloadFailed{
		URL:        url,
		BinaryPath: binaryPath,
		ExitCode:   exitCode,
		Stderr:     stderr,
		Reason:     reason,
	}
}

// ErrInsufficientSpace is returned when the output directory's volume is nearly full.
type ErrInsufficientSpace struct {
	Path      string
	FreeBytes uint64
	MinBytes  uint64
}

// Error implements the error interface.
func (e *ErrInsufficientSpace) Error() string {
	return fmt.Sprintf("not enough free space in %s: %d MiB available, %d MiB required",
		e.Path, e.FreeBytes>>20, e.MinBytes>>20)
}

// Is allows for error checking with errors.Is().
func (e *ErrInsufficientSpace) Is(target error) bool {
	_, ok := target.(*ErrInsufficientSpace)
	return ok
}

// NewInsufficientSpaceError creates a new ErrInsufficientSpace.
func NewInsufficientSpaceError(path string, free, min uint64) *ErrInsufficientSpace {
	return &ErrInsufficientSpace{Path: path, FreeBytes: free, MinBytes: min}
}
