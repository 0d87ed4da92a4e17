package main

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/Belphemur/TubeMP3/internal/binaries"
	"github.com/Belphemur/TubeMP3/internal/cache"
	"github.com/Belphemur/TubeMP3/internal/config"
	"github.com/Belphemur/TubeMP3/internal/process"
	"github.com/Belphemur/TubeMP3/internal/reporting"
	"github.com/Belphemur/TubeMP3/internal/services"
	"github.com/Belphemur/TubeMP3/internal/store"
)

// app holds the wired engine shared by every command
type app struct {
	cfg         *config.Config
	provisioner *binaries.Provisioner
	downloader  *services.DefaultDownloader
	converter   *services.DefaultAudioConverter
	history     *store.History
	preferences *store.Preferences
	reporter    *reporting.Reporter
	caches      []cache.Cache
}

// close flushes pending error reports and releases cache connections
func (a *app) close() {
	a.reporter.Flush()
	for _, c := range a.caches {
		if err := c.Close(); err != nil {
			logger := config.GetLogger()
			logger.Warn().Err(err).Msg("Failed to close metadata cache")
		}
	}
}

// cacheLogger routes cache provider errors to zerolog
type cacheLogger struct {
	logger zerolog.Logger
}

func (l cacheLogger) Error(msg string, err error) {
	l.logger.Error().Err(err).Msg(msg)
}

func newApp(cfg *config.Config) (*app, error) {
	logger := config.GetLogger()

	reporter, err := reporting.New(reporting.Options{
		DSN:         cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		Release:     version,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("Invalid Sentry configuration, error reporting disabled")
		reporter = &reporting.Reporter{}
	}

	cacheCfg := cache.ProviderConfig{
		Size:          cfg.Cache.Size,
		TTL:           config.ParseDuration("cache.ttl", cfg.Cache.TTL, time.Hour),
		Logger:        cacheLogger{logger: logger},
		RedisAddress:  cfg.Redis.Address,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}
	videos, err := newCache(cfg.Cache.Provider, cacheCfg, "video_metadata")
	if err != nil {
		return nil, err
	}
	playlists, err := newCache(cfg.Cache.Provider, cacheCfg, "playlist_entries")
	if err != nil {
		_ = videos.Close()
		return nil, err
	}

	runner := process.NewRunner(process.Options{Encoding: cfg.Download.OutputEncoding})
	locator := binaries.NewLocator(cfg.Paths.ResourceDir, cfg.Paths.DataDir)
	provisioner := binaries.NewProvisioner(locator, runner)

	metadata := services.NewMetadataService(runner, videos, playlists, services.RetryOptions{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       config.ParseDuration("retry.delay", cfg.Retry.Delay, 2*time.Second),
		MaxDelay:    config.ParseDuration("retry.max_delay", cfg.Retry.MaxDelay, 30*time.Second),
	})

	history := store.NewHistory(cfg.Paths.ConfigDir)
	downloader := services.NewDownloader(provisioner, runner, metadata, history, services.DownloaderOptions{
		DefaultBitrate:   cfg.Download.Bitrate,
		DefaultOutputDir: cfg.Paths.OutputDir,
		MinFreeBytes:     uint64(cfg.Download.MinFreeMB) << 20,
	})

	logger.Debug().
		Str("resource_dir", cfg.Paths.ResourceDir).
		Str("data_dir", cfg.Paths.DataDir).
		Str("cache_provider", cfg.Cache.Provider).
		Str("platform", locator.Target().Platform).
		Str("arch", locator.Target().Arch).
		Msg("Engine wired")

	return &app{
		cfg:         cfg,
		provisioner: provisioner,
		downloader:  downloader,
		converter:   services.NewAudioConverter(provisioner, runner, cfg.Download.Bitrate),
		history:     history,
		preferences: store.NewPreferences(cfg.Paths.ConfigDir),
		reporter:    reporter,
		caches:      []cache.Cache{videos, playlists},
	}, nil
}

// newCache namespaces each metadata cache so both can share one redis database
func newCache(provider string, cfg cache.ProviderConfig, group string) (cache.Cache, error) {
	cfg.Group = group
	cfg.KeyPrefix = config.AppName + ":" + group + ":"
	return cache.New(provider, cfg)
}
