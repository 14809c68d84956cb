// Package config loads and validates process configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"checkqc/internal/blob"
	"checkqc/internal/core"
)

// Metrics exporters selectable through CHECKQC_METRICS.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Log formats selectable through CHECKQC_LOG_FORMAT.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all process configuration.
type Config struct {
	// Handler configuration file (YAML).
	ConfigPath string

	// Where run folders are read from.
	Blob blob.Settings

	// Where report history is kept.
	Storage core.StorageSettings

	// Fall back to the closest read-length key when none matches.
	UseClosestReadLength bool

	// Operational settings.
	LogLevel  string
	LogFormat string
	Metrics   string
	// MetricsFile receives a Prometheus text exposition after each run
	// (node_exporter textfile collector). Empty disables it.
	MetricsFile string
}

// Load reads configuration from the environment with defaults. Variables from
// the given .env files are applied first without overriding the environment;
// with no files, ./.env is used when present.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load env file: %w", err)
		}
	}

	closest, err := envBool("CHECKQC_USE_CLOSEST_READ_LENGTH", false)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg := Config{
		ConfigPath:           envStr("CHECKQC_CONFIG", "config.yaml"),
		Blob:                 blob.SettingsFromEnv(),
		Storage:              core.StorageSettingsFromEnv(),
		UseClosestReadLength: closest,
		LogLevel:             envStr("CHECKQC_LOG_LEVEL", "info"),
		LogFormat:            envStr("CHECKQC_LOG_FORMAT", LogFormatText),
		Metrics:              envStr("CHECKQC_METRICS", MetricsNone),
		MetricsFile:          envStr("CHECKQC_METRICS_FILE", ""),
	}
	if cfg.Blob.Driver == "" {
		cfg.Blob.Driver = blob.DriverFilesystem
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = core.StorageSQLite
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that every setting holds a supported value.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.ConfigPath) == "" {
		problems = append(problems, "CHECKQC_CONFIG is required")
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3Bucket == "" {
			problems = append(problems, "CHECKQC_BLOB_S3_BUCKET is required when CHECKQC_BLOB_DRIVER=s3")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown CHECKQC_BLOB_DRIVER %q", c.Blob.Driver))
	}
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		problems = append(problems, fmt.Sprintf("unknown CHECKQC_STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		problems = append(problems, fmt.Sprintf("unknown CHECKQC_LOG_FORMAT %q", c.LogFormat))
	}
	switch c.Metrics {
	case MetricsNone, MetricsExpvar, MetricsPrometheus:
	default:
		problems = append(problems, fmt.Sprintf("unknown CHECKQC_METRICS %q", c.Metrics))
	}
	if c.MetricsFile != "" && c.Metrics != MetricsPrometheus {
		problems = append(problems, "CHECKQC_METRICS_FILE requires CHECKQC_METRICS=prometheus")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ParseLevel maps a CHECKQC_LOG_LEVEL value onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown CHECKQC_LOG_LEVEL %q", s)
	}
	return level, nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
