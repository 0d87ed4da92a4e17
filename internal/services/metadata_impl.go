package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/cache"
	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/process"
)

// RetryOptions bounds how often a failing fetcher query is repeated
type RetryOptions struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration
}

// DefaultMetadataService implements MetadataService on top of a process.Runner.
// Raw fetcher output is memoized per URL, failed queries are retried.
type DefaultMetadataService struct {
	runner   process.Runner
	videos   cache.Cache
	playlist cache.Cache
	retry    RetryOptions
}

// NewMetadataService creates a metadata service. Either cache may be nil.
func NewMetadataService(runner process.Runner, videos, playlist cache.Cache, retry RetryOptions) MetadataService {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.Delay <= 0 {
		retry.Delay = time.Second
	}
	if retry.MaxDelay < retry.Delay {
		retry.MaxDelay = retry.Delay
	}
	return &DefaultMetadataService{
		runner:   runner,
		videos:   videos,
		playlist: playlist,
		retry:    retry,
	}
}

// VideoMetadata runs `--dump-json --no-playlist <url>` and parses the first JSON object
func (s *DefaultMetadataService) VideoMetadata(ctx context.Context, fetcherPath, url string) (*models.VideoMetadata, error) {
	raw, err := s.query(ctx, s.videos, fetcherPath, url, "--dump-json", "--no-playlist", url)
	if err != nil {
		return nil, err
	}

	var meta models.VideoMetadata
	if err := json.Unmarshal(firstJSONLine(raw), &meta); err != nil {
		s.forget(ctx, s.videos, url)
		return nil, apperrors.NewMetadataParseError(url, err)
	}
	if meta.ID == "" && meta.Title == "" {
		s.forget(ctx, s.videos, url)
		return nil, apperrors.NewMetadataParseError(url, errors.New("output has neither id nor title"))
	}
	return &meta, nil
}

// PlaylistEntries runs `--dump-json --flat-playlist <url>`, one JSON object per line.
// Lines that do not parse are skipped.
func (s *DefaultMetadataService) PlaylistEntries(ctx context.Context, fetcherPath, url string) ([]models.PlaylistEntry, error) {
	logger := config.GetLogger()

	raw, err := s.query(ctx, s.playlist, fetcherPath, url, "--dump-json", "--flat-playlist", url)
	if err != nil {
		return nil, err
	}

	var entries []models.PlaylistEntry
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	skipped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var entry models.PlaylistEntry
		if err := json.Unmarshal(line, &entry); err != nil || (entry.ID == "" && entry.URL == "") {
			skipped++
			continue
		}
		entries = append(entries, entry)
	}
	if skipped > 0 {
		logger.Warn().Int("skipped", skipped).Str("url", url).Msg("Ignored unparseable playlist entries")
	}

	if len(entries) == 0 {
		s.forget(ctx, s.playlist, url)
		return nil, apperrors.NewEmptyPlaylistError(url)
	}
	return entries, nil
}

// query returns the fetcher's stdout for args, from c when possible.
// Spawn failures and non-zero exits are retried with backoff.
func (s *DefaultMetadataService) query(ctx context.Context, c cache.Cache, fetcherPath, url string, args ...string) ([]byte, error) {
	logger := config.GetLogger()

	if c != nil {
		if cached, ok := c.Get(ctx, url); ok {
			logger.Debug().Str("url", url).Msg("Metadata served from cache")
			return cached, nil
		}
	}

	policy := retrypolicy.NewBuilder[[]byte]().
		HandleIf(func(_ []byte, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		WithMaxRetries(s.retry.MaxAttempts-1).
		WithBackoff(s.retry.Delay, s.retry.MaxDelay).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[[]byte]) {
			logger.Warn().Err(e.LastError()).Int("attempt", e.Attempts()).Str("url", url).Msg("Retrying fetcher query")
		}).
		Build()

	raw, err := failsafe.With[[]byte](policy).WithContext(ctx).Get(func() ([]byte, error) {
		out, err := s.runner.RunOnce(ctx, fetcherPath, args...)
		if err != nil {
			return nil, err
		}
		if !out.Success() {
			return nil, apperrors.NewDownloadFailedError(url, fetcherPath, out.ExitCode, string(out.Stderr), "fetcher query failed")
		}
		return out.Stdout, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to query %s: %w", url, err)
	}

	if c != nil && len(bytes.TrimSpace(raw)) > 0 {
		c.Set(ctx, url, raw)
	}
	return raw, nil
}

func (s *DefaultMetadataService) forget(ctx context.Context, c cache.Cache, url string) {
	if c != nil {
		c.Delete(ctx, url)
	}
}

// firstJSONLine returns the first non-empty line; the fetcher prints one object per video
func firstJSONLine(raw []byte) []byte {
	for line := range bytes.Lines(raw) {
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			return trimmed
		}
	}
	return nil
}
