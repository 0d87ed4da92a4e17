package binaries

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/metrics"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/process"
)

// extractionMu guards every read-verify-extract sequence on the binary cache.
// One lock covers all tools: extraction is rare and short, and it is never
// held across metadata queries or transfers.
var extractionMu sync.Mutex

// Provisioner guarantees a verified, executable copy of each tool in the per-user cache
type Provisioner struct {
	locator *Locator
	runner  process.Runner
	logger  zerolog.Logger

	// states is only touched while extractionMu is held
	states map[models.Tool]models.CachedBinaryState
}

// NewProvisioner creates a Provisioner that probes binaries through runner
func NewProvisioner(locator *Locator, runner process.Runner) *Provisioner {
	return &Provisioner{
		locator: locator,
		runner:  runner,
		logger:  config.GetLogger(),
		states:  make(map[models.Tool]models.CachedBinaryState),
	}
}

// Locator returns the path mapping used by the provisioner
func (p *Provisioner) Locator() *Locator {
	return p.locator
}

// Ensure returns the cache path of a verified copy of tool, extracting it from
// the packaged resources when the cache is empty, a placeholder or corrupt.
func (p *Provisioner) Ensure(ctx context.Context, tool models.Tool) (string, error) {
	extractionMu.Lock()
	defer extractionMu.Unlock()

	path, err := p.ensureLocked(ctx, tool)
	if err != nil {
		metrics.ProvisionTotal.WithLabelValues(tool.String(), "failed").Inc()
		return "", err
	}
	return path, nil
}

// EnsureAll provisions the fetcher and the converter, failing on the first error
func (p *Provisioner) EnsureAll(ctx context.Context) (fetcher, converter string, err error) {
	fetcher, err = p.Ensure(ctx, models.ToolFetcher)
	if err != nil {
		return "", "", err
	}
	converter, err = p.Ensure(ctx, models.ToolConverter)
	if err != nil {
		return "", "", err
	}
	return fetcher, converter, nil
}

// State returns the provisioner's last known view of tool's cached copy
func (p *Provisioner) State(tool models.Tool) models.CachedBinaryState {
	extractionMu.Lock()
	defer extractionMu.Unlock()
	return p.states[tool]
}

func (p *Provisioner) ensureLocked(ctx context.Context, tool models.Tool) (string, error) {
	cachePath := p.locator.CachePath(tool)
	logger := p.logger.With().Str("tool", tool.String()).Str("cache_path", cachePath).Logger()
	delete(p.states, tool)

	info, err := os.Stat(cachePath)
	switch {
	case err == nil && info.Size() == 0:
		logger.Warn().Msg("Cached binary is empty, removing placeholder")
		if err := removeIfExists(cachePath); err != nil {
			return "", apperrors.NewCacheIOError("remove", cachePath, err)
		}
	case err == nil:
		probeErr := p.probe(ctx, tool, cachePath)
		if probeErr == nil {
			p.states[tool] = models.CachedBinaryState{Path: cachePath, Size: info.Size(), Verified: true}
			metrics.ProvisionTotal.WithLabelValues(tool.String(), "cached").Inc()
			logger.Debug().Msg("Cached binary verified")
			return cachePath, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn().Err(probeErr).Msg("Cached binary failed verification, re-extracting")
		if err := removeIfExists(cachePath); err != nil {
			return "", apperrors.NewCacheIOError("remove", cachePath, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return "", apperrors.NewCacheIOError("stat", cachePath, err)
	}

	resource, err := p.resolveResource(tool)
	if err != nil {
		return "", err
	}

	logger.Info().Str("resource", resource).Msg("Extracting bundled binary")
	size, err := p.extract(tool, resource, cachePath)
	if err != nil {
		return "", err
	}

	if err := p.probe(ctx, tool, cachePath); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		_ = removeIfExists(cachePath)
		return "", err
	}

	p.states[tool] = models.CachedBinaryState{Path: cachePath, Size: size, Verified: true}
	metrics.ProvisionTotal.WithLabelValues(tool.String(), "extracted").Inc()
	logger.Info().Int64("size", size).Msg("Extracted binary verified")
	return cachePath, nil
}

// probe runs the tool's version flag and returns a VerificationError when it does not exit 0
func (p *Provisioner) probe(ctx context.Context, tool models.Tool, path string) error {
	out, err := p.runner.RunOnce(ctx, path, tool.VersionFlag())
	if err != nil {
		return apperrors.NewVerificationError(tool.String(), path, fmt.Sprintf("version probe could not run: %v", err), 0, "")
	}
	if !out.Success() {
		return apperrors.NewVerificationError(tool.String(), path, "version probe failed", out.ExitCode, string(out.Stderr))
	}
	return nil
}

// resolveResource returns the first packaged candidate that exists and is not empty
func (p *Provisioner) resolveResource(tool models.Tool) (string, error) {
	primary := p.locator.ResourcePath(tool)
	for _, candidate := range p.locator.ResourceCandidates(tool) {
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() == 0 {
			return "", apperrors.NewExtractionError(tool.String(), candidate,
				"bundled binary is empty (0 bytes), this is likely a placeholder file",
				p.remediation(tool), nil)
		}
		return candidate, nil
	}
	return "", apperrors.NewExtractionError(tool.String(), primary,
		"bundled binary is not packaged", p.remediation(tool), nil)
}

func (p *Provisioner) remediation(tool models.Tool) string {
	return fmt.Sprintf("Place a real %s build at %s (compressed .zst/.gz/.br or a .zip/.rar archive also work).\nDownload it from %s",
		tool, p.locator.ResourcePath(tool), tool.DownloadPage())
}

// extract decodes the resource into a temp file beside cachePath, makes it
// executable and renames it into place. The rename is the only point at which
// the cache path changes, so readers never see a partial or non-executable file.
func (p *Provisioner) extract(tool models.Tool, resource, cachePath string) (int64, error) {
	dir := filepath.Dir(cachePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, apperrors.NewCacheIOError("mkdir", dir, err)
	}

	src, err := openResource(resource, filepath.Base(cachePath))
	if err != nil {
		return 0, apperrors.NewExtractionError(tool.String(), resource, "cannot read bundled binary", p.remediation(tool), err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dir, filepath.Base(cachePath)+".*.tmp")
	if err != nil {
		return 0, apperrors.NewCacheIOError("create", dir, err)
	}
	tmpPath := tmp.Name()
	published := false
	defer func() {
		if !published {
			_ = os.Remove(tmpPath)
		}
	}()

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		tmp.Close()
		return 0, apperrors.NewExtractionError(tool.String(), resource, "failed to decode bundled binary", p.remediation(tool), err)
	}
	if size == 0 {
		tmp.Close()
		return 0, apperrors.NewExtractionError(tool.String(), resource, "bundled binary decodes to 0 bytes", p.remediation(tool), nil)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return 0, apperrors.NewCacheIOError("sync", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, apperrors.NewCacheIOError("close", tmpPath, err)
	}

	if err := verifyChecksum(resource, hex.EncodeToString(hasher.Sum(nil))); err != nil {
		return 0, apperrors.NewVerificationError(tool.String(), resource, err.Error(), 0, "")
	}

	if err := os.Chmod(tmpPath, 0o755); err != nil {
		return 0, apperrors.NewCacheIOError("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, cachePath); err != nil {
		return 0, apperrors.NewCacheIOError("rename", cachePath, err)
	}
	published = true
	return size, nil
}

// verifyChecksum compares against an optional <resource>.sha256 sidecar.
// The sidecar may use the sha256sum format ("<hex>  <name>").
func verifyChecksum(resource, actual string) error {
	data, err := os.ReadFile(resource + ".sha256")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot read checksum file: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return fmt.Errorf("checksum file %s.sha256 is empty", resource)
	}
	expected := strings.ToLower(fields[0])
	if expected != actual {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, actual)
	}
	return nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
