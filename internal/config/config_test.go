package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"checkqc/internal/blob"
	"checkqc/internal/core"
)

var checkqcEnv = []string{
	"CHECKQC_CONFIG",
	"CHECKQC_BLOB_DRIVER",
	"CHECKQC_BLOB_FS_ROOT",
	"CHECKQC_BLOB_S3_BUCKET",
	"CHECKQC_BLOB_S3_REGION",
	"CHECKQC_BLOB_S3_ENDPOINT",
	"CHECKQC_BLOB_S3_PATH_STYLE",
	"CHECKQC_STORAGE_DRIVER",
	"CHECKQC_SQLITE_PATH",
	"CHECKQC_POSTGRES_DSN",
	"CHECKQC_USE_CLOSEST_READ_LENGTH",
	"CHECKQC_LOG_LEVEL",
	"CHECKQC_LOG_FORMAT",
	"CHECKQC_METRICS",
	"CHECKQC_METRICS_FILE",
}

// clearEnv blanks every CHECKQC_ variable and moves into an empty directory
// so a developer's .env cannot leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range checkqcEnv {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConfigPath != "config.yaml" {
		t.Fatalf("unexpected config path %q", cfg.ConfigPath)
	}
	if cfg.Blob.Driver != blob.DriverFilesystem || cfg.Storage.Driver != core.StorageSQLite {
		t.Fatalf("unexpected drivers %q %q", cfg.Blob.Driver, cfg.Storage.Driver)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != LogFormatText || cfg.Metrics != MetricsNone {
		t.Fatalf("unexpected operational defaults %+v", cfg)
	}
	if cfg.UseClosestReadLength {
		t.Fatalf("closest read length must be opt-in")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHECKQC_CONFIG", "/etc/checkqc/config.yaml")
	t.Setenv("CHECKQC_BLOB_DRIVER", "s3")
	t.Setenv("CHECKQC_BLOB_S3_BUCKET", "runs")
	t.Setenv("CHECKQC_BLOB_S3_PATH_STYLE", "true")
	t.Setenv("CHECKQC_STORAGE_DRIVER", "postgres")
	t.Setenv("CHECKQC_POSTGRES_DSN", "postgres://qc@db/checkqc")
	t.Setenv("CHECKQC_USE_CLOSEST_READ_LENGTH", "1")
	t.Setenv("CHECKQC_LOG_LEVEL", "debug")
	t.Setenv("CHECKQC_LOG_FORMAT", "json")
	t.Setenv("CHECKQC_METRICS", "prometheus")
	t.Setenv("CHECKQC_METRICS_FILE", "/var/lib/node_exporter/checkqc.prom")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blob.Driver != blob.DriverS3 || cfg.Blob.S3Bucket != "runs" || !cfg.Blob.S3PathStyle {
		t.Fatalf("unexpected blob settings %+v", cfg.Blob)
	}
	if cfg.Storage.Driver != core.StoragePostgres || cfg.Storage.PostgresDSN != "postgres://qc@db/checkqc" {
		t.Fatalf("unexpected storage settings %+v", cfg.Storage)
	}
	if !cfg.UseClosestReadLength || cfg.LogFormat != LogFormatJSON || cfg.Metrics != MetricsPrometheus {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("CHECKQC_CONFIG")
	t.Cleanup(func() { os.Unsetenv("CHECKQC_CONFIG") })
	path := filepath.Join(t.TempDir(), "checkqc.env")
	if err := os.WriteFile(path, []byte("CHECKQC_CONFIG=from-file.yaml\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ConfigPath != "from-file.yaml" {
		t.Fatalf("expected value from env file, got %q", cfg.ConfigPath)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatalf("expected error for explicit missing env file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"blob driver":       {"CHECKQC_BLOB_DRIVER": "ftp"},
		"s3 without bucket": {"CHECKQC_BLOB_DRIVER": "s3"},
		"storage driver":    {"CHECKQC_STORAGE_DRIVER": "mongo"},
		"log level":         {"CHECKQC_LOG_LEVEL": "loud"},
		"log format":        {"CHECKQC_LOG_FORMAT": "xml"},
		"metrics":           {"CHECKQC_METRICS": "statsd"},
		"metrics file":      {"CHECKQC_METRICS_FILE": "/tmp/x.prom"},
		"closest":           {"CHECKQC_USE_CLOSEST_READ_LENGTH": "maybe"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.HasPrefix(err.Error(), "config: ") {
				t.Fatalf("unexpected error format %v", err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}
