package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/metrics"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/process"
	"github.com/Belphemur/TubeMP3/internal/progress"
)

// Accepted MP3 bitrates in kbps
const (
	MinBitrate = 32
	MaxBitrate = 320
)

// DownloaderOptions configures request defaults
type DownloaderOptions struct {
	DefaultBitrate   int    // used when a request leaves the bitrate at 0
	DefaultOutputDir string // used when a request leaves the output directory empty
	MinFreeBytes     uint64 // 0 disables the free-space check
}

// DefaultDownloader is the download orchestrator.
// Requests are independent; playlist items run one after another.
type DefaultDownloader struct {
	binaries BinaryProvider
	runner   process.Runner
	metadata MetadataService
	history  HistoryRecorder
	opts     DownloaderOptions
	logger   zerolog.Logger

	freeSpace func(path string) (uint64, error)
	now       func() time.Time
}

// NewDownloader creates the orchestrator. history may be nil.
func NewDownloader(binaries BinaryProvider, runner process.Runner, metadata MetadataService, history HistoryRecorder, opts DownloaderOptions) *DefaultDownloader {
	if opts.DefaultBitrate == 0 {
		opts.DefaultBitrate = config.DefaultBitrate
	}
	return &DefaultDownloader{
		binaries:  binaries,
		runner:    runner,
		metadata:  metadata,
		history:   history,
		opts:      opts,
		logger:    config.GetLogger(),
		freeSpace: freeBytes,
		now:       time.Now,
	}
}

// NewRequestID returns a time-ordered identifier for a request
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Download implements Downloader
func (d *DefaultDownloader) Download(ctx context.Context, req models.DownloadRequest, sink progress.Sink) (*models.DownloadResponse, error) {
	return d.run(ctx, NewRequestID(), req, sink)
}

// StreamDownload implements Downloader
func (d *DefaultDownloader) StreamDownload(ctx context.Context, req models.DownloadRequest) <-chan models.StreamResult[models.DownloadEvent] {
	ch := make(chan models.StreamResult[models.DownloadEvent], 16)
	requestID := NewRequestID()

	go func() {
		defer close(ch)

		resp, err := d.run(ctx, requestID, req, func(rec models.ProgressRecord) {
			sendResult(ctx, ch, models.Ok(models.DownloadEvent{RequestID: requestID, Progress: &rec}))
		})
		if err != nil {
			sendResult(ctx, ch, models.Fail[models.DownloadEvent](err))
			return
		}
		sendResult(ctx, ch, models.Ok(models.DownloadEvent{RequestID: requestID, Result: resp}))
	}()

	return ch
}

// sendResult delivers r unless the consumer has gone away
func sendResult[T any](ctx context.Context, ch chan<- models.StreamResult[T], r models.StreamResult[T]) {
	select {
	case ch <- r:
	case <-ctx.Done():
	}
}

// request is a validated DownloadRequest
type request struct {
	id        string
	url       string
	outputDir string
	bitrate   int
	kind      models.SourceKind
	fetcher   string
	converter string
}

func (d *DefaultDownloader) run(ctx context.Context, requestID string, req models.DownloadRequest, sink progress.Sink) (*models.DownloadResponse, error) {
	metrics.ActiveDownloads.Inc()
	defer metrics.ActiveDownloads.Dec()

	r, err := d.validate(req)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues("unknown", "invalid").Inc()
		return nil, err
	}
	r.id = requestID
	logger := d.logger.With().Str("request_id", r.id).Str("url", r.url).Str("kind", r.kind.String()).Logger()
	logger.Info().Int("bitrate", r.bitrate).Str("output_dir", r.outputDir).Msg("Starting download")

	// No record may reach the subscriber once the request is cancelled.
	guarded := func(rec models.ProgressRecord) {
		if sink != nil && ctx.Err() == nil {
			sink(rec)
		}
	}

	if err := os.MkdirAll(r.outputDir, 0o755); err != nil {
		metrics.DownloadsTotal.WithLabelValues(r.kind.String(), "failed").Inc()
		return nil, fmt.Errorf("failed to create output directory %s: %w", r.outputDir, err)
	}
	if err := d.ensureFreeSpace(r.outputDir); err != nil {
		metrics.DownloadsTotal.WithLabelValues(r.kind.String(), "failed").Inc()
		return nil, err
	}

	r.fetcher, r.converter, err = d.binaries.EnsureAll(ctx)
	if err != nil {
		metrics.DownloadsTotal.WithLabelValues(r.kind.String(), "failed").Inc()
		logger.Error().Err(err).Msg("Provisioning failed")
		return nil, err
	}

	var resp *models.DownloadResponse
	switch r.kind {
	case models.SourcePlaylist:
		var result *models.PlaylistResult
		result, err = d.downloadPlaylist(ctx, r, guarded, logger)
		if err == nil {
			resp = &models.DownloadResponse{Kind: models.SourcePlaylist, Playlist: result}
		}
	default:
		var result *models.DownloadItemResult
		result, err = d.downloadSingle(ctx, r, guarded, logger)
		if err == nil {
			resp = &models.DownloadResponse{Kind: models.SourceSingle, Single: result}
		}
	}

	switch {
	case err == nil:
		metrics.DownloadsTotal.WithLabelValues(r.kind.String(), "success").Inc()
		logger.Info().Msg("Download finished")
	case ctx.Err() != nil:
		metrics.DownloadsTotal.WithLabelValues(r.kind.String(), "cancelled").Inc()
		logger.Info().Msg("Download cancelled")
		err = ctx.Err()
	default:
		metrics.DownloadsTotal.WithLabelValues(r.kind.String(), "failed").Inc()
		logger.Error().Err(err).Msg("Download failed")
	}
	return resp, err
}

func (d *DefaultDownloader) validate(req models.DownloadRequest) (*request, error) {
	rawURL := strings.TrimSpace(req.URL)
	kind, err := Classify(rawURL)
	if err != nil {
		return nil, err
	}

	bitrate := req.BitrateKbps
	if bitrate == 0 {
		bitrate = d.opts.DefaultBitrate
	}
	if bitrate < MinBitrate || bitrate > MaxBitrate {
		return nil, apperrors.NewInvalidBitrateError(bitrate, MinBitrate, MaxBitrate)
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = d.opts.DefaultOutputDir
	}
	if outputDir == "" {
		return nil, errors.New("no output directory given and none configured")
	}

	return &request{
		url:       rawURL,
		outputDir: filepath.Clean(outputDir),
		bitrate:   bitrate,
		kind:      kind,
	}, nil
}

func (d *DefaultDownloader) downloadSingle(ctx context.Context, r *request, sink progress.Sink, logger zerolog.Logger) (*models.DownloadItemResult, error) {
	meta, err := d.metadata.VideoMetadata(ctx, r.fetcher, r.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn().Err(err).Msg("Metadata unavailable, using fallback name")
		meta = &models.VideoMetadata{ID: ExtractVideoID(r.url)}
	}

	name := outputName(meta.Title, meta.ID)
	machine := progress.New(r.id, 1, sink)
	machine.BeginItem(1, meta.Title)

	item, err := d.downloadItem(ctx, r, r.url, name, meta.Title, meta.Duration, machine)
	if err != nil {
		return nil, err
	}
	machine.Finish()
	return item, nil
}

func (d *DefaultDownloader) downloadPlaylist(ctx context.Context, r *request, sink progress.Sink, logger zerolog.Logger) (*models.PlaylistResult, error) {
	entries, err := d.metadata.PlaylistEntries(ctx, r.fetcher, r.url)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("items", len(entries)).Msg("Playlist enumerated")

	result := &models.PlaylistResult{
		OutputDir:  r.outputDir,
		TotalItems: len(entries),
		Items:      make([]models.DownloadItemResult, 0, len(entries)),
	}
	machine := progress.New(r.id, len(entries), sink)

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		index := i + 1
		itemURL := entryURL(entry)
		title, duration := entry.Title, entry.Duration

		if title == "" {
			if meta, err := d.metadata.VideoMetadata(ctx, r.fetcher, itemURL); err == nil {
				title = meta.Title
				if duration == nil {
					duration = meta.Duration
				}
			} else if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		machine.BeginItem(index, title)

		item, err := d.downloadItem(ctx, r, itemURL, outputName(title, entry.ID), title, duration, machine)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn().Err(err).Int("index", index).Str("item_url", itemURL).Msg("Playlist item failed, continuing")
			metrics.PlaylistItemsTotal.WithLabelValues("failed").Inc()
			machine.FailItem()
			result.Failed = append(result.Failed, models.PlaylistItemFailure{
				Index: index,
				Title: title,
				URL:   itemURL,
				Error: err.Error(),
			})
			continue
		}

		if item.Skipped {
			metrics.PlaylistItemsTotal.WithLabelValues("skipped").Inc()
		} else {
			metrics.PlaylistItemsTotal.WithLabelValues("success").Inc()
		}
		result.Items = append(result.Items, *item)
	}

	machine.Finish()
	logger.Info().
		Int("total", result.TotalItems).
		Int("downloaded", len(result.Items)).
		Int("failed", len(result.Failed)).
		Msg("Playlist finished")
	return result, nil
}

// downloadItem runs SkipCheck, Transferring and Finalizing for one item
func (d *DefaultDownloader) downloadItem(ctx context.Context, r *request, itemURL, name, title string, duration *float64, machine *progress.Machine) (*models.DownloadItemResult, error) {
	expected := filepath.Join(r.outputDir, name+".mp3")

	if info, err := os.Stat(expected); err == nil && !info.IsDir() {
		machine.Skip(title)
		size := info.Size()
		return &models.DownloadItemResult{
			OutputPath:      expected,
			Title:           displayTitle(title, expected),
			DurationSeconds: duration,
			FileSizeBytes:   &size,
			Skipped:         true,
		}, nil
	}

	before := snapshotMP3(r.outputDir)
	if err := d.transfer(ctx, r, itemURL, name, machine); err != nil {
		return nil, err
	}

	path, err := finalize(expected, r.outputDir, before)
	if err != nil {
		return nil, apperrors.NewDownloadFailedError(itemURL, r.fetcher, 0, "", err.Error())
	}

	item := &models.DownloadItemResult{
		OutputPath:      path,
		Title:           displayTitle(title, path),
		DurationSeconds: duration,
	}
	if info, err := os.Stat(path); err == nil {
		size := info.Size()
		item.FileSizeBytes = &size
	}
	d.recordHistory(itemURL, r.bitrate, item)
	return item, nil
}

// transfer runs the fetcher's extraction pipeline and feeds its stderr to machine
func (d *DefaultDownloader) transfer(ctx context.Context, r *request, itemURL, name string, machine *progress.Machine) error {
	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", fmt.Sprintf("%dK", r.bitrate),
		"-o", outputTemplate(r.outputDir, name),
		"--no-playlist",
		"--newline",
		"--no-colors",
		"--progress",
		"--ffmpeg-location", filepath.Dir(r.converter),
		itemURL,
	}

	stream, err := d.runner.RunStreamed(ctx, r.fetcher, args...)
	if err != nil {
		return err
	}
	for line := range stream.Lines() {
		machine.Feed(line)
	}
	out, err := stream.Wait()
	if err != nil {
		return err
	}
	if !out.Success() {
		return apperrors.NewDownloadFailedError(itemURL, r.fetcher, out.ExitCode, string(out.Stderr), "fetcher exited with an error")
	}
	return nil
}

// outputTemplate builds the fetcher's -o value. A literal % in the name must be doubled.
func outputTemplate(dir, name string) string {
	return filepath.Join(dir, strings.ReplaceAll(name, "%", "%%")) + ".%(ext)s"
}

// snapshotMP3 lists the .mp3 files currently in dir
func snapshotMP3(dir string) map[string]struct{} {
	seen := make(map[string]struct{})
	entries, err := os.ReadDir(dir)
	if err != nil {
		return seen
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			seen[entry.Name()] = struct{}{}
		}
	}
	return seen
}

// finalize returns expected when it exists, otherwise the most recently
// modified .mp3 that is not in before.
func finalize(expected, dir string, before map[string]struct{}) (string, error) {
	if info, err := os.Stat(expected); err == nil && !info.IsDir() {
		return expected, nil
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var found []candidate
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("cannot scan output directory: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".mp3") {
			continue
		}
		if _, existed := before[name]; existed {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return "", err
		}
		found = append(found, candidate{path: filepath.Join(dir, name), modTime: info.ModTime()})
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no MP3 file was produced (expected %s)", expected)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].modTime.After(found[j].modTime) })
	return found[0].path, nil
}

func displayTitle(title, path string) string {
	if title != "" {
		return title
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (d *DefaultDownloader) recordHistory(url string, bitrate int, item *models.DownloadItemResult) {
	if d.history == nil {
		return
	}
	err := d.history.Add(models.HistoryEntry{
		URL:             url,
		Title:           item.Title,
		OutputPath:      item.OutputPath,
		BitrateKbps:     bitrate,
		Timestamp:       d.now().UTC().Format(time.RFC3339),
		DurationSeconds: item.DurationSeconds,
	})
	if err != nil {
		d.logger.Warn().Err(err).Str("url", url).Msg("Failed to record download history")
	}
}
