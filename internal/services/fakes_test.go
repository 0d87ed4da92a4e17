package services

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/process"
)

// fakeStream replays canned stderr lines
type fakeStream struct {
	lines chan string
	wait  func() (*process.Output, error)
}

func newFakeStream(lines []string, out *process.Output) *fakeStream {
	ch := make(chan string, len(lines))
	for _, l := range lines {
		ch <- l
	}
	close(ch)
	return &fakeStream{lines: ch, wait: func() (*process.Output, error) { return out, nil }}
}

func (s *fakeStream) Lines() <-chan string { return s.lines }

func (s *fakeStream) Wait() (*process.Output, error) {
	for range s.lines {
	}
	return s.wait()
}

// fakeRunner records every invocation and delegates to func fields
type fakeRunner struct {
	mu          sync.Mutex
	onceArgs    [][]string
	streamArgs  [][]string
	runOnce     func(ctx context.Context, path string, args []string) (*process.Output, error)
	runStreamed func(ctx context.Context, path string, args []string) (process.Stream, error)
}

func (r *fakeRunner) RunOnce(ctx context.Context, path string, args ...string) (*process.Output, error) {
	r.mu.Lock()
	r.onceArgs = append(r.onceArgs, args)
	r.mu.Unlock()
	return r.runOnce(ctx, path, args)
}

func (r *fakeRunner) RunStreamed(ctx context.Context, path string, args ...string) (process.Stream, error) {
	r.mu.Lock()
	r.streamArgs = append(r.streamArgs, args)
	r.mu.Unlock()
	return r.runStreamed(ctx, path, args)
}

func (r *fakeRunner) streamedCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streamArgs)
}

type fakeBinaries struct {
	calls     int
	ensureAll func(ctx context.Context) (string, string, error)
}

func (b *fakeBinaries) EnsureAll(ctx context.Context) (string, string, error) {
	b.calls++
	if b.ensureAll != nil {
		return b.ensureAll(ctx)
	}
	return "/cache/bin/yt-dlp", "/cache/bin/ffmpeg", nil
}

func (b *fakeBinaries) Ensure(ctx context.Context, tool models.Tool) (string, error) {
	fetcher, converter, err := b.EnsureAll(ctx)
	if tool == models.ToolConverter {
		return converter, err
	}
	return fetcher, err
}

type memoryHistory struct {
	entries []models.HistoryEntry
}

func (h *memoryHistory) Add(e models.HistoryEntry) error {
	h.entries = append(h.entries, e)
	return nil
}

// argAfter returns the argument following flag
func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// writeTemplateOutput creates the MP3 the fetcher would produce for an -o template
func writeTemplateOutput(t *testing.T, args []string) string {
	t.Helper()
	template := argAfter(args, "-o")
	path := strings.ReplaceAll(strings.TrimSuffix(template, ".%(ext)s"), "%%", "%") + ".mp3"
	if err := os.WriteFile(path, []byte("ID3 fake mp3"), 0o644); err != nil {
		t.Fatalf("write fake output: %v", err)
	}
	return path
}

func getCounterVecValue(cv *prometheus.CounterVec, labels ...string) float64 {
	c, err := cv.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
