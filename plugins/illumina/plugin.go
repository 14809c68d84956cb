// Package illumina contributes the Illumina QC handlers beyond the built-in
// error rate and yield checks.
package illumina

import (
	"math"

	"checkqc/internal/core"
)

// Handler names as written in the handler configuration.
const (
	ClusterPFHandlerName              = "ClusterPFHandler"
	Q30HandlerName                    = "Q30Handler"
	UndeterminedPercentageHandlerName = "UndeterminedPercentageHandler"
	UnidentifiedIndexHandlerName      = "UnidentifiedIndexHandler"
)

// Plugin registers the Illumina handler set.
type Plugin struct{}

// New constructs an illumina plugin instance.
func New() Plugin {
	return Plugin{}
}

// Name returns the plugin identifier.
func (Plugin) Name() string { return "illumina" }

// Version returns the plugin semantic version.
func (Plugin) Version() string { return "0.1.0" }

// Register contributes the handlers.
func (Plugin) Register(registry *core.PluginRegistry) error {
	registry.RegisterHandler(clusterPFHandler{})
	registry.RegisterHandler(q30Handler{})
	registry.RegisterHandler(undeterminedPercentageHandler{})
	registry.RegisterHandler(unidentifiedIndexHandler{})
	return nil
}

func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
