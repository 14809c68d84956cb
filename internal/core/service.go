package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"checkqc/internal/infra/persistence/memory"
	"checkqc/internal/parsers/bclconvert"
	"checkqc/internal/runfolder"
	"checkqc/internal/runtype"
	"checkqc/pkg/domain"
)

// ConfigSource yields the handler configuration for an instrument and
// reagent key such as "novaseq_v1".
type ConfigSource interface {
	ForInstrument(key string) (domain.ReportConfig, error)
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the clock stamping report records.
func WithClock(c Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger routes service logs to l.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics records operation outcomes with m.
func WithMetrics(m MetricsRecorder) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer wraps operations in spans started by t.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithIDGenerator overrides how report record ids are minted.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Service runs the full check of a run folder: recognise the run, parse its
// reports, evaluate the configured handlers, render, record and optionally
// archive the report into the run folder.
type Service struct {
	engine  *Engine
	store   domain.ReportStore
	plugins map[string]PluginMetadata
	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	newID   func() string
}

// NewService constructs a service over the engine and report store.
func NewService(engine *Engine, store domain.ReportStore, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultEngine()
	}
	s := &Service{
		engine:  engine,
		store:   store,
		plugins: make(map[string]PluginMetadata),
		clock:   systemClock{},
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service with an in-memory report store.
func NewInMemoryService(engine *Engine, opts ...Option) *Service {
	return NewService(engine, memory.NewStore(), opts...)
}

// Engine returns the dispatch engine.
func (s *Service) Engine() *Engine { return s.engine }

// Store returns the report store.
func (s *Service) Store() domain.ReportStore { return s.store }

// RunRequest describes one check of a run folder.
type RunRequest struct {
	Folder  *runfolder.Folder
	Config  ConfigSource
	Options Options
	// ReadLength overrides the read length recognised from RunInfo.xml.
	ReadLength domain.ReadLength
	// ConfigVersion is stored with the record, typically a config file digest.
	ConfigVersion string
	// Archive writes the rendered report into the run folder.
	Archive bool
}

// RunOutcome is the result of Service.Run.
type RunOutcome struct {
	Data       *QCData
	Evaluation Evaluation
	Report     []byte
	Record     domain.ReportRecord
	// ArchiveKey is the blob key of the archived report, if any.
	ArchiveKey string
}

// Run checks one run folder end to end.
func (s *Service) Run(ctx context.Context, req RunRequest) (RunOutcome, error) {
	var out RunOutcome
	err := s.run(ctx, "run", func(ctx context.Context) error {
		var err error
		out, err = s.runFolder(ctx, req)
		return err
	})
	return out, err
}

func (s *Service) runFolder(ctx context.Context, req RunRequest) (RunOutcome, error) {
	if req.Folder == nil {
		return RunOutcome{}, errors.New("run: nil run folder")
	}
	if req.Config == nil {
		return RunOutcome{}, errors.New("run: nil config source")
	}
	data, rec, err := s.Load(ctx, req.Folder)
	if err != nil {
		return RunOutcome{}, err
	}
	if req.ReadLength != "" {
		data.SetReadLength(req.ReadLength)
	}
	cfg, err := req.Config.ForInstrument(data.Instrument)
	if err != nil {
		return RunOutcome{}, err
	}
	eval, err := s.engine.Evaluate(ctx, data, cfg, req.Options)
	if err != nil {
		return RunOutcome{}, err
	}
	if fo, ok := s.metrics.(FindingsObserver); ok {
		fo.ObserveFindings(ctx, eval.Result)
	}
	view, err := s.engine.Registry().View(eval.View)
	if err != nil {
		return RunOutcome{}, err
	}
	report, err := view.Render(data, eval)
	if err != nil {
		return RunOutcome{}, err
	}

	record := domain.ReportRecord{
		ID:            s.newID(),
		RunFolder:     req.Folder.Path(),
		RunID:         rec.RunID(),
		Instrument:    data.Instrument,
		ReadLength:    data.ReadLength,
		ResolvedKey:   eval.Key,
		View:          view.Name(),
		Findings:      sanitizeFindings(eval.Result.Findings),
		ExitStatus:    eval.ExitStatus(),
		CreatedAt:     s.clock.Now(),
		ConfigVersion: req.ConfigVersion,
	}
	out := RunOutcome{Data: data, Evaluation: eval, Report: report, Record: record}
	// The record is saved last so a failed archive leaves no history entry.
	if req.Archive {
		key, err := req.Folder.Archive(ctx, archiveName(record, view), report, view.ContentType())
		if err != nil {
			return RunOutcome{}, err
		}
		out.ArchiveKey = key
	}
	if s.store != nil {
		if err := s.store.Save(ctx, record); err != nil {
			return RunOutcome{}, fmt.Errorf("save report: %w", err)
		}
	}
	s.logger.Info("run checked",
		"run_folder", record.RunFolder,
		"instrument", record.Instrument,
		"read_length", string(record.ReadLength),
		"config_key", record.ResolvedKey,
		"fatal", eval.Result.Count(domain.SeverityFatal),
		"warning", eval.Result.Count(domain.SeverityWarning))
	return out, nil
}

// Load recognises the run and parses its BCL Convert reports into QCData.
func (s *Service) Load(ctx context.Context, folder *runfolder.Folder) (*QCData, *runtype.Recognizer, error) {
	rec, err := runtype.NewRecognizer(ctx, folder)
	if err != nil {
		return nil, nil, err
	}
	instrument, err := rec.InstrumentAndReagentVersion()
	if err != nil {
		return nil, nil, err
	}
	readLength, err := rec.ReadLength()
	if err != nil {
		return nil, nil, err
	}
	reads, err := rec.Reads()
	if err != nil {
		return nil, nil, err
	}
	reports, err := bclconvert.Parse(ctx, folder, reads)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("run folder loaded", "run_folder", folder.Path(), "lanes", len(reports.Metrics))
	return NewQCData(instrument, readLength, reports.Samplesheet, reports.Metrics), rec, nil
}

func archiveName(record domain.ReportRecord, view View) string {
	ext := "txt"
	if strings.HasPrefix(view.ContentType(), "application/json") {
		ext = "json"
	}
	return fmt.Sprintf("checkqc_report_%s_%s.%s", record.CreatedAt.UTC().Format("20060102T150405Z"), record.ID, ext)
}

// History lists stored reports for a run folder, newest first.
func (s *Service) History(ctx context.Context, runFolder string) ([]domain.ReportRecord, error) {
	var out []domain.ReportRecord
	err := s.run(ctx, "history", func(ctx context.Context) error {
		if s.store == nil {
			return errors.New("history: no report store configured")
		}
		var err error
		out, err = s.store.List(ctx, runFolder)
		return err
	})
	return out, err
}

// Report returns one stored report.
func (s *Service) Report(ctx context.Context, id string) (domain.ReportRecord, error) {
	var out domain.ReportRecord
	err := s.run(ctx, "report", func(ctx context.Context) error {
		if s.store == nil {
			return errors.New("report: no report store configured")
		}
		var err error
		out, err = s.store.Get(ctx, id)
		return err
	})
	return out, err
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) (err error) {
	ctx, span := s.tracer.Start(ctx, op)
	start := time.Now()
	defer func() {
		s.metrics.Observe(ctx, op, err == nil, time.Since(start))
		span.End(err)
		if err != nil {
			s.logger.Error("operation failed", "operation", op, "error", err)
		}
	}()
	return fn(ctx)
}

// InstallPlugin registers a plugin, wiring its handlers and views into the engine.
func (s *Service) InstallPlugin(plugin Plugin) (PluginMetadata, error) {
	if plugin == nil {
		return PluginMetadata{}, fmt.Errorf("plugin cannot be nil")
	}
	if s.plugins == nil {
		s.plugins = make(map[string]PluginMetadata)
	}
	if _, ok := s.plugins[plugin.Name()]; ok {
		return PluginMetadata{}, fmt.Errorf("plugin %s already registered", plugin.Name())
	}

	registry := NewPluginRegistry()
	if err := plugin.Register(registry); err != nil {
		return PluginMetadata{}, err
	}

	target := s.engine.Registry()
	for _, h := range registry.Handlers() {
		if target.HasHandler(h.Name()) {
			return PluginMetadata{}, fmt.Errorf("plugin %s: handler %s already registered", plugin.Name(), h.Name())
		}
	}
	for _, v := range registry.Views() {
		if _, err := target.View(v.Name()); err == nil {
			return PluginMetadata{}, fmt.Errorf("plugin %s: view %s already registered", plugin.Name(), v.Name())
		}
	}
	for _, h := range registry.Handlers() {
		if err := target.RegisterHandler(h); err != nil {
			return PluginMetadata{}, fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}
	for _, v := range registry.Views() {
		if err := target.RegisterView(v); err != nil {
			return PluginMetadata{}, fmt.Errorf("plugin %s: %w", plugin.Name(), err)
		}
	}

	meta := newPluginMetadata(plugin, registry)
	s.plugins[plugin.Name()] = meta
	s.logger.Debug("plugin installed", "plugin", meta.Name, "version", meta.Version, "handlers", len(meta.Handlers))
	return meta, nil
}

// RegisteredPlugins returns metadata describing installed plugins, sorted by name.
func (s *Service) RegisteredPlugins() []PluginMetadata {
	out := make([]PluginMetadata, 0, len(s.plugins))
	for _, meta := range s.plugins {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
