package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/metrics"
)

// stderrTailLines is how many trailing stderr lines a streamed run keeps for error reports.
const stderrTailLines = 50

// waitDelay bounds how long Wait blocks on pipes held open by orphaned grandchildren after a kill.
const waitDelay = 5 * time.Second

// Output is the captured result of a finished process
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte // complete for RunOnce, the last lines for RunStreamed
}

// Success reports whether the process exited with status 0
func (o *Output) Success() bool {
	return o != nil && o.ExitCode == 0
}

// Stream is a running process whose stderr is consumed line by line
type Stream interface {
	// Lines yields decoded stderr lines in order. The channel is closed at EOF.
	Lines() <-chan string

	// Wait drains any unread lines, waits for exit and returns the captured output.
	// A non-zero exit is reported through Output.ExitCode, not as an error.
	Wait() (*Output, error)
}

// Runner launches external tools
type Runner interface {
	// RunOnce runs the tool to completion and captures both output streams.
	RunOnce(ctx context.Context, path string, args ...string) (*Output, error)

	// RunStreamed starts the tool and returns a live handle on its stderr lines.
	RunStreamed(ctx context.Context, path string, args ...string) (Stream, error)
}

// Options tunes how a Runner decodes tool output
type Options struct {
	// Encoding is a charset label (e.g. "windows-1252") for tools that do not emit UTF-8.
	// Empty means UTF-8 with invalid bytes replaced.
	Encoding string
}

type execRunner struct {
	opts Options
}

// NewRunner creates a Runner backed by os/exec.
// Cancelling the context passed to a run kills the child and all of its descendants.
func NewRunner(opts Options) Runner {
	return &execRunner{opts: opts}
}

func (r *execRunner) command(ctx context.Context, path string, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Cancel = func() error {
		if err := killTree(cmd.Process.Pid); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = waitDelay
	return cmd
}

func (r *execRunner) RunOnce(ctx context.Context, path string, args ...string) (*Output, error) {
	logger := config.GetLogger()
	tool := toolLabel(path)
	metrics.ProcessRunsTotal.WithLabelValues(tool, "once").Inc()

	cmd := r.command(ctx, path, args)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug().Str("path", path).Strs("args", args).Msg("Running process")
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, apperrors.NewProcessSpawnError(path, err)
	}

	err := cmd.Wait()
	metrics.ProcessDuration.WithLabelValues(tool).Observe(time.Since(start).Seconds())

	out := &Output{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	code, err := exitCode(err)
	if err != nil {
		return out, err
	}
	out.ExitCode = code
	logger.Debug().Str("path", path).Int("exit_code", code).Dur("elapsed", time.Since(start)).Msg("Process finished")
	return out, nil
}

func (r *execRunner) RunStreamed(ctx context.Context, path string, args ...string) (Stream, error) {
	logger := config.GetLogger()
	tool := toolLabel(path)
	metrics.ProcessRunsTotal.WithLabelValues(tool, "streamed").Inc()

	cmd := r.command(ctx, path, args)
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, apperrors.NewProcessSpawnError(path, err)
	}
	s := &stream{
		ctx:   ctx,
		cmd:   cmd,
		tool:  tool,
		lines: make(chan string, 64),
		done:  make(chan struct{}),
	}
	cmd.Stdout = &s.stdout

	logger.Debug().Str("path", path).Strs("args", args).Msg("Starting streamed process")
	s.start = time.Now()
	if err := cmd.Start(); err != nil {
		return nil, apperrors.NewProcessSpawnError(path, err)
	}

	reader, err := decodingReader(stderrPipe, r.opts.Encoding)
	if err != nil {
		logger.Warn().Err(err).Str("encoding", r.opts.Encoding).Msg("Unknown output encoding, falling back to UTF-8")
		reader, _ = decodingReader(stderrPipe, "")
	}
	go s.pump(reader)
	return s, nil
}

type stream struct {
	ctx    context.Context
	cmd    *exec.Cmd
	tool   string
	start  time.Time
	stdout bytes.Buffer
	lines  chan string
	done   chan struct{}

	// written by pump before done is closed
	tail    []string
	out     *Output
	waitErr error
}

func (s *stream) Lines() <-chan string {
	return s.lines
}

func (s *stream) Wait() (*Output, error) {
	for range s.lines {
	}
	<-s.done
	return s.out, s.waitErr
}

// pump forwards stderr lines until EOF, then reaps the process.
// exec requires every pipe read to finish before Wait is called.
func (s *stream) pump(r io.Reader) {
	defer close(s.done)

	scanner := NewLineScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		s.remember(line)
		select {
		case s.lines <- line:
		case <-s.ctx.Done():
		}
	}
	close(s.lines)
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		logger := config.GetLogger()
		logger.Debug().Err(err).Str("tool", s.tool).Msg("Stopped reading process output")
		// keep the child from blocking on a full pipe
		_, _ = io.Copy(io.Discard, r)
	}

	err := s.cmd.Wait()
	metrics.ProcessDuration.WithLabelValues(s.tool).Observe(time.Since(s.start).Seconds())

	s.out = &Output{
		Stdout: s.stdout.Bytes(),
		Stderr: []byte(strings.Join(s.tail, "\n")),
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		s.waitErr = ctxErr
		return
	}
	s.out.ExitCode, s.waitErr = exitCode(err)
}

func (s *stream) remember(line string) {
	if len(s.tail) == stderrTailLines {
		copy(s.tail, s.tail[1:])
		s.tail = s.tail[:stderrTailLines-1]
	}
	s.tail = append(s.tail, line)
}

// exitCode turns the error of cmd.Wait into an exit status.
// Only failures that are not a plain non-zero exit are returned as errors.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// toolLabel derives a low-cardinality metric label from an executable path
func toolLabel(path string) string {
	return strings.TrimSuffix(strings.ToLower(filepath.Base(path)), ".exe")
}
