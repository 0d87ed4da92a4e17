package process

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell based process tests need /bin/sh")
	}
}

func collectLines(s Stream) []string {
	var lines []string
	for line := range s.Lines() {
		lines = append(lines, line)
	}
	return lines
}

func TestRunOnce_CapturesOutput(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{})

	out, err := r.RunOnce(context.Background(), "/bin/sh", "-c", "echo out; echo err >&2")
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if !out.Success() {
		t.Fatalf("Expected success, got exit code %d", out.ExitCode)
	}
	if strings.TrimSpace(string(out.Stdout)) != "out" {
		t.Errorf("Stdout = %q, want out", out.Stdout)
	}
	if strings.TrimSpace(string(out.Stderr)) != "err" {
		t.Errorf("Stderr = %q, want err", out.Stderr)
	}
}

func TestRunOnce_NonZeroExitIsNotAnError(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{})

	out, err := r.RunOnce(context.Background(), "/bin/sh", "-c", "exit 3")
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if out.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", out.ExitCode)
	}
	if out.Success() {
		t.Error("Expected Success() to be false")
	}
}

func TestRunOnce_MissingBinary(t *testing.T) {
	r := NewRunner(Options{})

	_, err := r.RunOnce(context.Background(), "/definitely/not/here/yt-dlp", "--version")
	if err == nil {
		t.Fatal("Expected an error for a missing executable")
	}
	var spawnErr *apperrors.ErrProcessSpawn
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Expected *ErrProcessSpawn, got %T: %v", err, err)
	}
	if spawnErr.Path != "/definitely/not/here/yt-dlp" {
		t.Errorf("Path = %q", spawnErr.Path)
	}
}

func TestRunStreamed_YieldsStderrLinesInOrder(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{})

	script := `printf '[download]   1.0%%\r[download]  50.0%%\r[download] 100.0%%\n' >&2
echo '[ExtractAudio] Destination: /tmp/a.mp3' >&2
echo 'stdout payload'
exit 0`
	s, err := r.RunStreamed(context.Background(), "/bin/sh", "-c", script)
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}

	lines := collectLines(s)
	want := []string{
		"[download]   1.0%",
		"[download]  50.0%",
		"[download] 100.0%",
		"[ExtractAudio] Destination: /tmp/a.mp3",
	}
	if len(lines) != len(want) {
		t.Fatalf("Got %d lines %q, want %d", len(lines), lines, len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	out, err := s.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if out.ExitCode != 0 {
		t.Errorf("ExitCode = %d, want 0", out.ExitCode)
	}
	if strings.TrimSpace(string(out.Stdout)) != "stdout payload" {
		t.Errorf("Stdout = %q", out.Stdout)
	}
}

func TestRunStreamed_WaitWithoutReadingLines(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{})

	// More lines than the channel buffer so pump would block without draining.
	s, err := r.RunStreamed(context.Background(), "/bin/sh", "-c", `i=0; while [ $i -lt 200 ]; do echo "line $i" >&2; i=$((i+1)); done; exit 2`)
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}

	out, err := s.Wait()
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if out.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", out.ExitCode)
	}

	tail := strings.Split(string(out.Stderr), "\n")
	if len(tail) != stderrTailLines {
		t.Fatalf("Kept %d stderr lines, want %d", len(tail), stderrTailLines)
	}
	if tail[len(tail)-1] != "line 199" {
		t.Errorf("Last kept line = %q, want \"line 199\"", tail[len(tail)-1])
	}
}

func TestRunStreamed_OverlongLineDoesNotBlockChild(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{})

	// One line past maxLineSize stops the scanner; the filler afterwards is
	// more than a pipe buffer, so the child only exits if stderr keeps draining.
	script := fmt.Sprintf(`head -c %d /dev/zero | tr '\000' a >&2
echo >&2
i=0; while [ $i -lt 3000 ]; do echo "filler line number $i after the long one" >&2; i=$((i+1)); done
exit 0`, maxLineSize+1024)
	s, err := r.RunStreamed(context.Background(), "/bin/sh", "-c", script)
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}

	type waitResult struct {
		out *Output
		err error
	}
	done := make(chan waitResult, 1)
	go func() {
		collectLines(s)
		out, err := s.Wait()
		done <- waitResult{out, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			t.Fatalf("Wait: %v", res.err)
		}
		if res.out.ExitCode != 0 {
			t.Errorf("ExitCode = %d, want 0", res.out.ExitCode)
		}
	case <-time.After(30 * time.Second):
		t.Fatal("Child process blocked after the output scanner stopped")
	}
}

func TestRunStreamed_InvalidUTF8IsReplaced(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{})

	s, err := r.RunStreamed(context.Background(), "/bin/sh", "-c", `printf 'title \377\376 end\n' >&2`)
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}
	lines := collectLines(s)
	if _, err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if len(lines) != 1 {
		t.Fatalf("Got %d lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "\uFFFD") {
		t.Errorf("Expected replacement character in %q", lines[0])
	}
	if !strings.HasPrefix(lines[0], "title ") || !strings.HasSuffix(lines[0], " end") {
		t.Errorf("Valid parts of the line were lost: %q", lines[0])
	}
}

func TestRunStreamed_LegacyEncoding(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{Encoding: "windows-1252"})

	// 0xE9 is 'é' in windows-1252.
	s, err := r.RunStreamed(context.Background(), "/bin/sh", "-c", `printf 'caf\351\n' >&2`)
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}
	lines := collectLines(s)
	if _, err := s.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(lines) != 1 || lines[0] != "café" {
		t.Errorf("lines = %q, want [café]", lines)
	}
}

func TestRunStreamed_CancelKillsProcess(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	s, err := r.RunStreamed(ctx, "/bin/sh", "-c", `echo started >&2; sleep 30; echo never >&2`)
	if err != nil {
		t.Fatalf("RunStreamed: %v", err)
	}

	first := <-s.Lines()
	if first != "started" {
		t.Fatalf("first line = %q, want started", first)
	}

	start := time.Now()
	cancel()
	_, err = s.Wait()
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Cancellation took %v", elapsed)
	}
}

func TestRunStreamed_MissingBinary(t *testing.T) {
	r := NewRunner(Options{})

	_, err := r.RunStreamed(context.Background(), "/definitely/not/here/ffmpeg")
	if !errors.Is(err, &apperrors.ErrProcessSpawn{}) {
		t.Fatalf("Expected ErrProcessSpawn, got %v", err)
	}
}

func TestScanLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"newline", "a\nb\n", []string{"a", "b"}},
		{"carriage return", "a\rb\r", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"no trailing terminator", "a\nb", []string{"a", "b"}},
		{"empty line kept by scanner", "a\n\nb", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewLineScanner(strings.NewReader(tt.input))
			var got []string
			for scanner.Scan() {
				got = append(got, scanner.Text())
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("lines = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolLabel(t *testing.T) {
	tests := map[string]string{
		"/data/bin/yt-dlp":       "yt-dlp",
		`C:\data\bin\ffmpeg.exe`: "ffmpeg",
		"/usr/bin/FFMPEG":        "ffmpeg",
	}
	for path, want := range tests {
		if runtime.GOOS != "windows" && strings.Contains(path, `\`) {
			continue
		}
		if got := toolLabel(path); got != want {
			t.Errorf("toolLabel(%q) = %q, want %q", path, got, want)
		}
	}
}
