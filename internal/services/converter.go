package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Belphemur/TubeMP3/internal/apperrors"
	"github.com/Belphemur/TubeMP3/internal/binaries"
	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/metrics"
	"github.com/Belphemur/TubeMP3/internal/models"
	"github.com/Belphemur/TubeMP3/internal/process"
	"github.com/Belphemur/TubeMP3/internal/progress"
)

// ConverterProvider hands out a verified path to the converter
type ConverterProvider interface {
	Ensure(ctx context.Context, tool models.Tool) (string, error)
}

// AudioConverter transcodes local media files to MP3
type AudioConverter interface {
	Convert(ctx context.Context, req models.ConvertRequest, sink progress.Sink) (*models.DownloadItemResult, error)
}

// DefaultAudioConverter drives ffmpeg directly, without the fetcher
type DefaultAudioConverter struct {
	binaries       ConverterProvider
	runner         process.Runner
	defaultBitrate int
}

var (
	_ ConverterProvider = (*binaries.Provisioner)(nil)
	_ BinaryProvider    = (*binaries.Provisioner)(nil)
)

// NewAudioConverter creates a converter. defaultBitrate applies when a request leaves it at 0.
func NewAudioConverter(provider ConverterProvider, runner process.Runner, defaultBitrate int) *DefaultAudioConverter {
	if defaultBitrate == 0 {
		defaultBitrate = config.DefaultBitrate
	}
	return &DefaultAudioConverter{binaries: provider, runner: runner, defaultBitrate: defaultBitrate}
}

// Convert runs `ffmpeg -i <in> -vn -acodec libmp3lame -ab <N>k -ar 44100 -y <out>`.
// Progress comes from ffmpeg's Duration: and time= lines.
func (c *DefaultAudioConverter) Convert(ctx context.Context, req models.ConvertRequest, sink progress.Sink) (*models.DownloadItemResult, error) {
	logger := config.GetLogger()

	bitrate := req.BitrateKbps
	if bitrate == 0 {
		bitrate = c.defaultBitrate
	}
	if bitrate < MinBitrate || bitrate > MaxBitrate {
		return nil, apperrors.NewInvalidBitrateError(bitrate, MinBitrate, MaxBitrate)
	}

	info, err := os.Stat(req.InputPath)
	if err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("input %s is a directory", req.InputPath)
	}

	output := req.OutputPath
	if output == "" {
		output = strings.TrimSuffix(req.InputPath, filepath.Ext(req.InputPath)) + ".mp3"
	}
	if filepath.Clean(output) == filepath.Clean(req.InputPath) {
		return nil, errors.New("output path must differ from the input path")
	}

	converter, err := c.binaries.Ensure(ctx, models.ToolConverter)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	requestID := NewRequestID()
	emit := func(rec models.ProgressRecord) {
		if sink != nil && ctx.Err() == nil {
			sink(rec)
		}
	}
	title := strings.TrimSuffix(filepath.Base(req.InputPath), filepath.Ext(req.InputPath))
	emit(models.ProgressRecord{RequestID: requestID, CurrentItem: 1, TotalItems: 1, Phase: models.PhasePreparing, CurrentTitle: title})

	logger.Info().Str("input", req.InputPath).Str("output", output).Int("bitrate", bitrate).Msg("Converting file")
	stream, err := c.runner.RunStreamed(ctx, converter,
		"-i", req.InputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", fmt.Sprintf("%dk", bitrate),
		"-ar", "44100",
		"-y",
		output,
	)
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	var parser progress.ConverterParser
	for line := range stream.Lines() {
		if pct, ok := parser.Feed(line); ok {
			emit(models.ProgressRecord{
				RequestID:       requestID,
				OverallFraction: pct,
				CurrentItem:     1,
				TotalItems:      1,
				ItemFraction:    pct,
				Phase:           models.PhaseConverting,
				CurrentTitle:    title,
			})
		}
	}
	out, err := stream.Wait()
	if err != nil {
		metrics.ConversionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	if !out.Success() {
		metrics.ConversionsTotal.WithLabelValues("failed").Inc()
		return nil, apperrors.NewDownloadFailedError(req.InputPath, converter, out.ExitCode, string(out.Stderr), "conversion failed")
	}

	result := &models.DownloadItemResult{OutputPath: output, Title: title}
	if d := parser.Duration(); d > 0 {
		result.DurationSeconds = &d
	}
	if info, err := os.Stat(output); err == nil {
		size := info.Size()
		result.FileSizeBytes = &size
	}

	emit(models.ProgressRecord{RequestID: requestID, OverallFraction: 100, CurrentItem: 1, TotalItems: 1, ItemFraction: 100, Phase: models.PhaseComplete, CurrentTitle: title})
	metrics.ConversionsTotal.WithLabelValues("success").Inc()
	return result, nil
}
