package binaries

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/models"
)

// Check provisions both tools and reports their versions.
// Failures are reported per tool instead of being returned.
func (p *Provisioner) Check(ctx context.Context) models.DependencyReport {
	return models.DependencyReport{
		Fetcher:   p.checkTool(ctx, models.ToolFetcher),
		Converter: p.checkTool(ctx, models.ToolConverter),
	}
}

func (p *Provisioner) checkTool(ctx context.Context, tool models.Tool) models.DependencyStatus {
	status := models.DependencyStatus{Tool: tool.String()}

	path, err := p.Ensure(ctx, tool)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Path = path

	out, err := p.runner.RunOnce(ctx, path, tool.VersionFlag())
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Version = parseVersion(string(out.Stdout))
	return status
}

// parseVersion keeps the first non-empty line of the version output
func parseVersion(stdout string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(stdout), "\n")
	return strings.TrimSpace(line)
}

// ClearCache removes every extracted binary so the next Ensure re-extracts them.
// It returns how many files were removed.
func (p *Provisioner) ClearCache() (int, error) {
	extractionMu.Lock()
	defer extractionMu.Unlock()

	dir := p.locator.CacheDir()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, apperrors.NewCacheIOError("read", dir, err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			return removed, apperrors.NewCacheIOError("remove", path, err)
		}
		removed++
	}
	clear(p.states)
	p.logger.Info().Int("removed", removed).Str("dir", dir).Msg("Cleared binary cache")
	return removed, nil
}
