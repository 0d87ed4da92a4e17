package binaries

import (
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/nwaples/rardecode/v2"
)

// errEntryNotFound is returned when an archive does not contain the requested executable
var errEntryNotFound = errors.New("executable not found in archive")

// openResource returns a reader over the executable bytes of a packaged resource.
// The format is chosen from the file extension; anything unknown is read as-is.
func openResource(resourcePath, exeName string) (io.ReadCloser, error) {
	switch strings.ToLower(filepath.Ext(resourcePath)) {
	case ".zst":
		return openZstd(resourcePath)
	case ".gz":
		return openGzip(resourcePath)
	case ".br":
		return openBrotli(resourcePath)
	case ".zip":
		return openZipEntry(resourcePath, exeName)
	case ".rar":
		return openRarEntry(resourcePath, exeName)
	default:
		return os.Open(resourcePath)
	}
}

func openZstd(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	zr, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("zstd: %w", err)
	}
	return &stackedReadCloser{reader: zr.IOReadCloser(), closers: []io.Closer{f}}, nil
}

func openGzip(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return &stackedReadCloser{reader: gz, closers: []io.Closer{f}}, nil
}

func openBrotli(p string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	return &stackedReadCloser{reader: io.NopCloser(brotli.NewReader(f)), closers: []io.Closer{f}}, nil
}

// openZipEntry opens the first file in the archive whose base name matches exeName
func openZipEntry(p, exeName string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("zip: %w", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !matchesExecutable(f.Name, exeName) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			zr.Close()
			return nil, fmt.Errorf("zip entry %s: %w", f.Name, err)
		}
		return &stackedReadCloser{reader: rc, closers: []io.Closer{zr}}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("%w: %s in %s", errEntryNotFound, exeName, p)
}

// openRarEntry streams the archive until it reaches the entry matching exeName
func openRarEntry(p, exeName string) (io.ReadCloser, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	rr, err := rardecode.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("rar: %w", err)
	}
	for {
		hdr, err := rr.Next()
		if errors.Is(err, io.EOF) {
			f.Close()
			return nil, fmt.Errorf("%w: %s in %s", errEntryNotFound, exeName, p)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("rar: %w", err)
		}
		if hdr.IsDir || !matchesExecutable(hdr.Name, exeName) {
			continue
		}
		return &stackedReadCloser{reader: io.NopCloser(rr), closers: []io.Closer{f}}, nil
	}
}

// matchesExecutable compares archive entry base names case-insensitively.
// Archive paths always use forward slashes, rar ones may use backslashes.
func matchesExecutable(entryName, exeName string) bool {
	entryName = strings.ReplaceAll(entryName, `\`, "/")
	return strings.EqualFold(path.Base(entryName), exeName)
}

// stackedReadCloser closes the decoder first, then the underlying files
type stackedReadCloser struct {
	reader  io.ReadCloser
	closers []io.Closer
}

func (s *stackedReadCloser) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *stackedReadCloser) Close() error {
	err := s.reader.Close()
	for _, c := range s.closers {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
