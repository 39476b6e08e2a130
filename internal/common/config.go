package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Logging     LoggingConfig   `toml:"logging"`
	Media       MediaConfig     `toml:"media"`
	Transform   TransformConfig `toml:"transform"`
	Publish     PublishConfig   `toml:"publish"`
	Storage     StorageConfig   `toml:"storage"`
	Jobs        JobsConfig      `toml:"jobs"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// MediaConfig controls the fetch stage.
type MediaConfig struct {
	FetcherPath  string        `toml:"fetcher_path"`  // yt-dlp binary
	WorkDir      string        `toml:"work_dir"`      // downloaded source audio
	AudioFormat  string        `toml:"audio_format"`  // extraction format passed to yt-dlp
	FetchTimeout time.Duration `toml:"fetch_timeout"` // hard cap on one fetch
	RateLimit    time.Duration `toml:"rate_limit"`    // minimum time between upstream fetches
}

// TransformConfig controls the effect-chain stage.
type TransformConfig struct {
	FFmpegPath string `toml:"ffmpeg_path"`
	OutputDir  string `toml:"output_dir"` // transformed audio before publish
}

// PublishConfig controls where published artifacts land and how references
// are built.
type PublishConfig struct {
	ArtifactsDir string `toml:"artifacts_dir"`
	BaseURL      string `toml:"base_url"` // prefix of returned artifact references
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// JobsConfig controls the orchestrator.
type JobsConfig struct {
	Workers          int           `toml:"workers"`           // bound on concurrent external media calls
	EvictionSchedule string        `toml:"eviction_schedule"` // cron expression for the janitor sweep
	RetainFor        time.Duration `toml:"retain_for"`        // how long terminal job state is kept
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Media: MediaConfig{
			FetcherPath:  "yt-dlp",
			WorkDir:      "./data/media",
			AudioFormat:  "mp3",
			FetchTimeout: 10 * time.Minute,
			RateLimit:    2 * time.Second,
		},
		Transform: TransformConfig{
			FFmpegPath: "ffmpeg",
			OutputDir:  "./data/processed",
		},
		Publish: PublishConfig{
			ArtifactsDir: "./data/artifacts",
			BaseURL:      "http://localhost:8080",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/db",
			},
		},
		Jobs: JobsConfig{
			Workers:          4,
			EvictionSchedule: "@every 1m",
			RetainFor:        15 * time.Minute,
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2
// -> ... -> env. Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("REMIXD_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("REMIXD_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("REMIXD_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("REMIXD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("REMIXD_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if badgerPath := os.Getenv("REMIXD_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if fetcher := os.Getenv("REMIXD_FETCHER_PATH"); fetcher != "" {
		config.Media.FetcherPath = fetcher
	}
	if ffmpeg := os.Getenv("REMIXD_FFMPEG_PATH"); ffmpeg != "" {
		config.Transform.FFmpegPath = ffmpeg
	}

	if workers := os.Getenv("REMIXD_JOB_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			config.Jobs.Workers = n
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("jobs.workers must be at least 1, got %d", c.Jobs.Workers)
	}
	if c.Jobs.RetainFor <= 0 {
		return fmt.Errorf("jobs.retain_for must be positive, got %s", c.Jobs.RetainFor)
	}
	return nil
}
