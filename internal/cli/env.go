package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"checkqc/internal/blob"
	"checkqc/internal/config"
	"checkqc/internal/core"
	"checkqc/internal/runfolder"
	"checkqc/pkg/domain"
	"checkqc/plugins/illumina"
)

// env is the wired runtime behind one command invocation.
type env struct {
	cfg     config.Config
	logger  *slog.Logger
	service *core.Service
	store   domain.ReportStore

	promRegistry *prometheus.Registry
	expvar       *core.ExpvarMetricsRecorder
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// openEnv wires logging, metrics, tracing, the report store and the service
// with every plugin installed. withStore=false skips opening the report store.
func (a *app) openEnv(ctx context.Context, withStore bool) (*env, error) {
	logger, err := newLogger(a.stderr, a.cfg.LogLevel, a.cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: a.cfg, logger: logger}

	opts := []core.Option{core.WithLogger(logger)}
	switch a.cfg.Metrics {
	case config.MetricsPrometheus:
		e.promRegistry = prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(e.promRegistry)
		if err != nil {
			return nil, fmt.Errorf("prometheus metrics: %w", err)
		}
		opts = append(opts, core.WithMetrics(rec))
	case config.MetricsExpvar:
		e.expvar = core.NewExpvarMetricsRecorder("")
		opts = append(opts, core.WithMetrics(e.expvar))
	}
	if a.flags.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	}

	if withStore {
		store, err := core.OpenReportStore(ctx, a.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open report store: %w", err)
		}
		e.store = store
	}
	e.service = core.NewService(core.NewDefaultEngine(), e.store, opts...)
	if _, err := e.service.InstallPlugin(illumina.New()); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the report store and flushes metrics to their sink.
func (e *env) Close() error {
	if e.expvar != nil {
		e.logger.Debug("metrics", "expvar", e.expvar.Name(), "snapshot", e.expvar.Snapshot())
	}
	var firstErr error
	if e.promRegistry != nil && e.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(e.cfg.MetricsFile, e.promRegistry); err != nil {
			firstErr = fmt.Errorf("write metrics file: %w", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close report store: %w", err)
		}
	}
	return firstErr
}

// folder resolves a run folder argument. With the filesystem driver and no
// configured root, the argument is a directory path: its parent becomes the
// blob root and its base name the run folder prefix. Otherwise the argument
// is a key prefix inside the configured store.
func (e *env) folder(ctx context.Context, arg string) (*runfolder.Folder, error) {
	settings := e.cfg.Blob
	prefix := arg
	if settings.Driver == blob.DriverFilesystem && settings.FSRoot == "" {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("resolve run folder: %w", err)
		}
		settings.FSRoot = filepath.Dir(abs)
		prefix = filepath.Base(abs)
	}
	store, err := blob.Open(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return runfolder.New(store, prefix)
}

// folderKey is the run folder identity records are stored under.
func (e *env) folderKey(arg string) (string, error) {
	if e.cfg.Blob.Driver == blob.DriverFilesystem && e.cfg.Blob.FSRoot == "" {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return "", fmt.Errorf("resolve run folder: %w", err)
		}
		return filepath.Base(abs), nil
	}
	return strings.Trim(path.Clean("/"+strings.TrimSpace(arg)), "/"), nil
}
