package core

import "sort"

// Plugin describes an extension that contributes handlers and views.
type Plugin interface {
	Name() string
	Version() string
	Register(registry *PluginRegistry) error
}

// PluginRegistry accumulates plugin contributions during registration.
type PluginRegistry struct {
	handlers []Handler
	views    []View
}

// NewPluginRegistry constructs a plugin registry.
func NewPluginRegistry() *PluginRegistry {
	return &PluginRegistry{}
}

// RegisterHandler adds a handler contributed by the plugin.
func (r *PluginRegistry) RegisterHandler(h Handler) {
	if h == nil {
		return
	}
	r.handlers = append(r.handlers, h)
}

// RegisterView adds a view contributed by the plugin.
func (r *PluginRegistry) RegisterView(v View) {
	if v == nil {
		return
	}
	r.views = append(r.views, v)
}

// Handlers returns a copy of registered handlers.
func (r *PluginRegistry) Handlers() []Handler {
	out := make([]Handler, len(r.handlers))
	copy(out, r.handlers)
	return out
}

// Views returns a copy of registered views.
func (r *PluginRegistry) Views() []View {
	out := make([]View, len(r.views))
	copy(out, r.views)
	return out
}

// PluginMetadata stores metadata describing an installed plugin.
type PluginMetadata struct {
	Name     string
	Version  string
	Handlers []string
	Views    []string
}

func newPluginMetadata(p Plugin, registry *PluginRegistry) PluginMetadata {
	meta := PluginMetadata{Name: p.Name(), Version: p.Version()}
	for _, h := range registry.handlers {
		meta.Handlers = append(meta.Handlers, h.Name())
	}
	for _, v := range registry.views {
		meta.Views = append(meta.Views, v.Name())
	}
	sort.Strings(meta.Handlers)
	sort.Strings(meta.Views)
	return meta
}
