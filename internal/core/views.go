package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/fatih/color"

	"checkqc/pkg/domain"
)

// View names registered by RegisterBuiltins.
const (
	IlluminaViewName = "illumina_view"
	JSONViewName     = "json_view"
)

// NewIlluminaView returns the terminal view: one line per finding, prefixed
// by its severity, followed by a summary. colored enables ANSI colours.
func NewIlluminaView(colored bool) View {
	fatal := color.New(color.FgRed, color.Bold)
	warning := color.New(color.FgYellow)
	ok := color.New(color.FgGreen)
	for _, c := range []*color.Color{fatal, warning, ok} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return illuminaView{fatal: fatal, warning: warning, ok: ok}
}

type illuminaView struct {
	fatal   *color.Color
	warning *color.Color
	ok      *color.Color
}

func (illuminaView) Name() string { return IlluminaViewName }

func (illuminaView) ContentType() string { return "text/plain; charset=utf-8" }

func (v illuminaView) Render(data *QCData, eval Evaluation) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "checkqc: %s, read length %s (config %q)\n", data.Instrument, data.ReadLength, eval.Key)
	if len(eval.Result.Findings) == 0 {
		buf.WriteString(v.ok.Sprint("No QC problems found") + "\n")
		return buf.Bytes(), nil
	}
	for _, f := range eval.Result.Findings {
		label := v.warning.Sprint("WARNING")
		if f.IsFatal() {
			label = v.fatal.Sprint("FATAL  ")
		}
		fmt.Fprintf(&buf, "%s %s: %s\n", label, f.Handler, f.Message)
	}
	fmt.Fprintf(&buf, "%d fatal, %d warning, exit status %d\n",
		eval.Result.Count(domain.SeverityFatal), eval.Result.Count(domain.SeverityWarning), eval.ExitStatus())
	return buf.Bytes(), nil
}

// NewJSONView returns the machine-readable view. Findings are grouped by
// handler, keeping their emission order within each group.
func NewJSONView() View {
	return jsonView{}
}

type jsonView struct{}

type jsonFinding struct {
	Type    domain.Severity `json:"type"`
	Message string          `json:"message"`
	Data    map[string]any  `json:"data,omitempty"`
}

type jsonReport struct {
	Instrument string                   `json:"instrument"`
	ReadLength domain.ReadLength        `json:"read_length"`
	ConfigKey  string                   `json:"config_key"`
	ExitStatus int                      `json:"exit_status"`
	Findings   map[string][]jsonFinding `json:"findings"`
}

func (jsonView) Name() string { return JSONViewName }

func (jsonView) ContentType() string { return "application/json" }

func (jsonView) Render(data *QCData, eval Evaluation) ([]byte, error) {
	report := jsonReport{
		Instrument: data.Instrument,
		ReadLength: data.ReadLength,
		ConfigKey:  eval.Key,
		ExitStatus: eval.ExitStatus(),
		Findings:   make(map[string][]jsonFinding),
	}
	for _, f := range eval.Result.Findings {
		report.Findings[f.Handler] = append(report.Findings[f.Handler], jsonFinding{
			Type:    f.Severity,
			Message: f.Message,
			Data:    sanitizeData(f.Data),
		})
	}
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json view: %w", err)
	}
	return append(out, '\n'), nil
}

// sanitizeData copies finding data, replacing values JSON cannot carry.
func sanitizeData(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return out
}

func sanitizeFindings(findings []domain.Finding) []domain.Finding {
	out := make([]domain.Finding, len(findings))
	for i, f := range findings {
		out[i] = f
		out[i].Data = sanitizeData(f.Data)
	}
	return out
}
