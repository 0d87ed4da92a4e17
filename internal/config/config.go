package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// AppName names the per-user data and config directories.
const AppName = "tubemp3"

const (
	DefaultBitrate    = 192
	DefaultMinFreeMB  = 50
	defaultRetryDelay = "2s"
)

type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	Server   struct {
		Port    int    `mapstructure:"port" yaml:"port"`
		Address string `mapstructure:"address" yaml:"address"`
	} `mapstructure:"server" yaml:"server"`
	Metrics struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
		Port    int  `mapstructure:"port" yaml:"port"`
	} `mapstructure:"metrics" yaml:"metrics"`
	WebSocket struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"websocket" yaml:"websocket"`
	Paths struct {
		ResourceDir string `mapstructure:"resource_dir" yaml:"resource_dir"` // root holding binaries/<platform>/<arch>/
		DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`         // extracted binaries live in <data_dir>/bin
		ConfigDir   string `mapstructure:"config_dir" yaml:"config_dir"`     // history.json and preferences.json
		OutputDir   string `mapstructure:"output_dir" yaml:"output_dir"`
	} `mapstructure:"paths" yaml:"paths"`
	Download struct {
		Bitrate        int    `mapstructure:"bitrate" yaml:"bitrate"`
		MinFreeMB      int    `mapstructure:"min_free_mb" yaml:"min_free_mb"`
		OutputEncoding string `mapstructure:"output_encoding" yaml:"output_encoding"` // charset label of tool output, empty means UTF-8
	} `mapstructure:"download" yaml:"download"`
	Retry struct {
		MaxAttempts int    `mapstructure:"max_attempts" yaml:"max_attempts"`
		Delay       string `mapstructure:"delay" yaml:"delay"`         // Go duration string like "2s"
		MaxDelay    string `mapstructure:"max_delay" yaml:"max_delay"` // Go duration string like "30s"
	} `mapstructure:"retry" yaml:"retry"`
	Cache struct {
		Provider string `mapstructure:"provider" yaml:"provider"` // "memory" or "redis"
		Size     int    `mapstructure:"size" yaml:"size"`         // Maximum number of entries in the LRU cache
		TTL      string `mapstructure:"ttl" yaml:"ttl"`           // Go duration string like "1h", "24h", etc.
	} `mapstructure:"cache" yaml:"cache"`
	Redis struct {
		Address  string `mapstructure:"address" yaml:"address"`
		Password string `mapstructure:"password" yaml:"-"`
		DB       int    `mapstructure:"db" yaml:"db"`
	} `mapstructure:"redis" yaml:"redis"`
	Sentry struct {
		DSN         string `mapstructure:"dsn" yaml:"-"`
		Environment string `mapstructure:"environment" yaml:"environment"`
	} `mapstructure:"sentry" yaml:"sentry"`
}

var (
	globalConfig *Config
	logger       zerolog.Logger
)

func init() {
	// Initialize zerolog with console writer for human-readable output
	logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: false,
	}).With().Timestamp().Logger()

	config, err := LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}

	level := zerolog.InfoLevel
	if config.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(config.LogLevel); err == nil {
			level = parsedLevel
		} else {
			logger.Warn().Str("invalid_level", config.LogLevel).Msg("Invalid log level, using default 'info'")
		}
	}

	zerolog.SetGlobalLevel(level)
	logger = logger.Level(level)

	logger.Debug().Str("level", level.String()).Msg("Logging configured")
	globalConfig = config
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.BindEnv("log_level", "LOG_LEVEL")

	viper.SetDefault("server.port", 50051)
	viper.SetDefault("server.address", "localhost")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("websocket.enabled", true)
	viper.SetDefault("paths.resource_dir", defaultResourceDir())
	viper.SetDefault("paths.data_dir", defaultUserDir(os.UserCacheDir))
	viper.SetDefault("paths.config_dir", defaultUserDir(os.UserConfigDir))
	viper.SetDefault("paths.output_dir", defaultOutputDir())
	viper.SetDefault("download.bitrate", DefaultBitrate)
	viper.SetDefault("download.min_free_mb", DefaultMinFreeMB)
	viper.SetDefault("retry.max_attempts", 3)
	viper.SetDefault("retry.delay", defaultRetryDelay)
	viper.SetDefault("retry.max_delay", "30s")
	viper.SetDefault("cache.provider", "memory")
	viper.SetDefault("cache.size", 500)
	viper.SetDefault("cache.ttl", "1h")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate rejects values that would silently misbehave once converted
func (c *Config) validate() error {
	if c.Download.MinFreeMB < 0 {
		return fmt.Errorf("download.min_free_mb must be >= 0 (0 disables the free-space check), got %d", c.Download.MinFreeMB)
	}
	return nil
}

func GetConfig() *Config {
	return globalConfig
}

func GetLogger() zerolog.Logger {
	return logger
}

// ParseDuration parses a Go duration string from the config, falling back to def
// and logging a warning when the value is malformed.
func ParseDuration(key, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Str("value", value).Dur("default", def).Msg("Invalid duration, using default")
		return def
	}
	return d
}

// defaultResourceDir points at the resources folder shipped next to the executable.
func defaultResourceDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "resources"
	}
	return filepath.Join(filepath.Dir(exe), "resources")
}

func defaultUserDir(base func() (string, error)) string {
	dir, err := base()
	if err != nil {
		return filepath.Join(".", "."+AppName)
	}
	return filepath.Join(dir, AppName)
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Music")
}
