package process

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// maxLineSize caps a single output line; yt-dlp JSON lines for long playlists can be large.
const maxLineSize = 4 * 1024 * 1024

// decodingReader converts tool output to valid UTF-8.
// Invalid sequences become U+FFFD instead of failing the read.
func decodingReader(r io.Reader, label string) (io.Reader, error) {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" || label == "utf-8" || label == "utf8" {
		return transform.NewReader(r, unicode.UTF8.NewDecoder()), nil
	}
	return charset.NewReaderLabel(label, r)
}

// NewLineScanner returns a scanner that yields lines terminated by '\n' or '\r'.
// Progress bars redraw with a bare carriage return when --newline is not honoured.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	scanner.Split(scanLines)
	return scanner
}

func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		// Treat CRLF as a single terminator.
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		if data[i] == '\r' && i+1 == len(data) && !atEOF {
			// Need one more byte to know whether this is CRLF.
			return 0, nil, nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
