// Package domain defines the value types shared by the checkqc run-type
// recognizer, the handler dispatch engine and the report stores.
package domain

// Severity classifies a quality finding.
type Severity string

// Supported severities. Fatal always takes precedence over Warning.
const (
	// SeverityFatal marks a run that should not be delivered as is.
	SeverityFatal Severity = "fatal"
	// SeverityWarning marks a metric outside the expected range that does not block delivery.
	SeverityWarning Severity = "warning"
)

// Finding reports a single threshold breach produced by a handler.
type Finding struct {
	Handler  string         `json:"handler"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

// IsFatal reports whether the finding blocks delivery.
func (f Finding) IsFatal() bool {
	return f.Severity == SeverityFatal
}

// Fatal builds a fatal finding.
func Fatal(handler, message string, data map[string]any) Finding {
	return Finding{Handler: handler, Severity: SeverityFatal, Message: message, Data: data}
}

// Warning builds a warning finding.
func Warning(handler, message string, data map[string]any) Finding {
	return Finding{Handler: handler, Severity: SeverityWarning, Message: message, Data: data}
}

// Result aggregates findings from one or more handlers.
type Result struct {
	Findings []Finding `json:"findings"`
}

// Merge appends findings from another result, keeping their order.
func (r *Result) Merge(other Result) {
	if len(other.Findings) == 0 {
		return
	}
	r.Findings = append(r.Findings, other.Findings...)
}

// Add appends a single finding.
func (r *Result) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// HasFatal returns true if the result contains a fatal finding.
func (r Result) HasFatal() bool {
	for _, f := range r.Findings {
		if f.IsFatal() {
			return true
		}
	}
	return false
}

// Count returns the number of findings of the given severity.
func (r Result) Count(severity Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}

// ByHandler returns the findings emitted by the named handler, in emission order.
func (r Result) ByHandler(name string) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Handler == name {
			out = append(out, f)
		}
	}
	return out
}
