package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"checkqc/pkg/domain"
)

// Handler checks one aspect of a run against configured thresholds.
type Handler interface {
	Name() string
	Check(ctx context.Context, data *QCData, params domain.Params) (domain.Result, error)
}

// Direction tells config validation how a handler's error and warning
// thresholds must be ordered.
type Direction int

const (
	// HigherIsWorse handlers need error > warning (error rates, undetermined share).
	HigherIsWorse Direction = iota + 1
	// LowerIsWorse handlers need error < warning (yield, Q30, clusters).
	LowerIsWorse
)

// DirectedHandler is implemented by handlers whose thresholds are ordered.
type DirectedHandler interface {
	Handler
	Direction() Direction
}

// View renders an evaluation into the bytes handed back to the caller.
type View interface {
	Name() string
	ContentType() string
	Render(data *QCData, eval Evaluation) ([]byte, error)
}

// UnknownHandlerError is returned when a config names a handler that is not registered.
type UnknownHandlerError struct {
	Name string
}

func (e UnknownHandlerError) Error() string {
	return fmt.Sprintf("unknown handler %q", e.Name)
}

// UnknownViewError is returned when a config names a view that is not registered.
type UnknownViewError struct {
	Name string
}

func (e UnknownViewError) Error() string {
	return fmt.Sprintf("unknown view %q", e.Name)
}

// NormalizeName folds a handler or view name so that "ErrorRateHandler",
// "error_rate_handler" and "errorratehandler" resolve to the same entry.
func NormalizeName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", ""))
}

// Registry maps handler and view names to implementations. It is filled at
// startup by RegisterBuiltins and installed plugins.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	views    map[string]View
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		views:    make(map[string]View),
	}
}

// RegisterHandler adds a handler. Names that normalize to an existing entry are rejected.
func (r *Registry) RegisterHandler(h Handler) error {
	if h == nil {
		return fmt.Errorf("handler cannot be nil")
	}
	key := NormalizeName(h.Name())
	if key == "" {
		return fmt.Errorf("handler name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.handlers[key]; ok {
		return fmt.Errorf("handler %s already registered as %s", h.Name(), existing.Name())
	}
	r.handlers[key] = h
	return nil
}

// RegisterView adds a view. Names that normalize to an existing entry are rejected.
func (r *Registry) RegisterView(v View) error {
	if v == nil {
		return fmt.Errorf("view cannot be nil")
	}
	key := NormalizeName(v.Name())
	if key == "" {
		return fmt.Errorf("view name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.views[key]; ok {
		return fmt.Errorf("view %s already registered as %s", v.Name(), existing.Name())
	}
	r.views[key] = v
	return nil
}

// Handler resolves a handler by name.
func (r *Registry) Handler(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[NormalizeName(name)]
	if !ok {
		return nil, UnknownHandlerError{Name: name}
	}
	return h, nil
}

// HasHandler reports whether name resolves to a registered handler.
func (r *Registry) HasHandler(name string) bool {
	_, err := r.Handler(name)
	return err == nil
}

// Direction returns the threshold ordering of the named handler. ok is false
// for unknown handlers and handlers without ordered thresholds.
func (r *Registry) Direction(name string) (Direction, bool) {
	h, err := r.Handler(name)
	if err != nil {
		return 0, false
	}
	d, ok := h.(DirectedHandler)
	if !ok {
		return 0, false
	}
	return d.Direction(), true
}

// View resolves a view by name.
func (r *Registry) View(name string) (View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[NormalizeName(name)]
	if !ok {
		return nil, UnknownViewError{Name: name}
	}
	return v, nil
}

// HasView reports whether name resolves to a registered view.
func (r *Registry) HasView(name string) bool {
	_, err := r.View(name)
	return err == nil
}

// HandlerNames returns the registered handler names, sorted.
func (r *Registry) HandlerNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h.Name())
	}
	sort.Strings(out)
	return out
}

// ViewNames returns the registered view names, sorted.
func (r *Registry) ViewNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v.Name())
	}
	sort.Strings(out)
	return out
}

// RegisterBuiltins installs the handlers and views every deployment has.
func RegisterBuiltins(r *Registry) error {
	for _, h := range []Handler{NewErrorRateHandler(), NewYieldHandler()} {
		if err := r.RegisterHandler(h); err != nil {
			return err
		}
	}
	for _, v := range []View{NewIlluminaView(false), NewJSONView()} {
		if err := r.RegisterView(v); err != nil {
			return err
		}
	}
	return nil
}
