package core

import (
	"context"
	"fmt"
	"strings"

	"checkqc/pkg/domain"
)

// DefaultView renders evaluations whose config entry names no view.
const DefaultView = "illumina_view"

// Options tunes config lookup for one evaluation.
type Options struct {
	// UseClosestReadLength falls back to the nearest configured read length
	// when neither an exact key nor a range matches.
	UseClosestReadLength bool
}

// Evaluation is the outcome of dispatching one run's handlers: the config key
// that matched, the view to render with and the aggregated findings.
type Evaluation struct {
	Key    string
	View   string
	Result domain.Result
}

// ExitStatus is 1 when any finding is fatal, 0 otherwise.
func (e Evaluation) ExitStatus() int {
	if e.Result.HasFatal() {
		return 1
	}
	return 0
}

// Engine orchestrates handler dispatch against a registry.
type Engine struct {
	registry *Registry
}

// NewEngine constructs an engine over the supplied registry.
func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{registry: registry}
}

// NewDefaultEngine builds an engine with the built-in handlers and views.
func NewDefaultEngine() *Engine {
	registry := NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		// builtins have distinct names; reaching this is a programming error
		panic(err)
	}
	return NewEngine(registry)
}

// Registry returns the handler and view registry.
func (e *Engine) Registry() *Registry { return e.registry }

// Evaluate resolves the config entry for the run's read length, runs its
// handlers followed by the default handlers, and concatenates their findings
// in invocation order. Any handler error aborts the evaluation; no partial
// findings are returned.
func (e *Engine) Evaluate(ctx context.Context, data *QCData, cfg domain.ReportConfig, opts Options) (Evaluation, error) {
	if data == nil {
		return Evaluation{}, fmt.Errorf("evaluate: nil qc data")
	}
	key, entry, err := cfg.Resolve(data.ReadLength, opts.UseClosestReadLength)
	if err != nil {
		return Evaluation{}, err
	}

	specs := make([]domain.HandlerSpec, 0, len(entry.Handlers)+len(cfg.DefaultHandlers))
	specs = append(specs, entry.Handlers...)
	specs = append(specs, cfg.DefaultHandlers...)

	var combined domain.Result
	for _, spec := range specs {
		h, err := e.registry.Handler(spec.Name)
		if err != nil {
			return Evaluation{}, err
		}
		res, err := h.Check(ctx, data, spec.Params())
		if err != nil {
			return Evaluation{}, fmt.Errorf("%s: %w", h.Name(), err)
		}
		combined.Merge(res)
	}

	view := strings.TrimSpace(entry.View)
	if view == "" {
		view = DefaultView
	}
	return Evaluation{Key: key, View: view, Result: combined}, nil
}

// Render hands the evaluation to its view.
func (e *Engine) Render(data *QCData, eval Evaluation) ([]byte, error) {
	v, err := e.registry.View(eval.View)
	if err != nil {
		return nil, err
	}
	return v.Render(data, eval)
}

// Report evaluates and renders in one step. Repeated calls with the same
// inputs return the same bytes.
func (e *Engine) Report(ctx context.Context, data *QCData, cfg domain.ReportConfig, opts Options) ([]byte, error) {
	eval, err := e.Evaluate(ctx, data, cfg, opts)
	if err != nil {
		return nil, err
	}
	return e.Render(data, eval)
}
