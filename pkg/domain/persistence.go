package domain

import (
	"context"
	"errors"
	"time"
)

// ReportRecord is one stored evaluation of a run folder.
type ReportRecord struct {
	ID            string     `json:"id"`
	RunFolder     string     `json:"run_folder"`
	RunID         string     `json:"run_id,omitempty"`
	Instrument    string     `json:"instrument"`
	ReadLength    ReadLength `json:"read_length"`
	ResolvedKey   string     `json:"resolved_key"`
	View          string     `json:"view"`
	Findings      []Finding  `json:"findings"`
	ExitStatus    int        `json:"exit_status"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfigVersion string     `json:"config_version,omitempty"`
}

// Result returns the record's findings as a Result.
func (r ReportRecord) Result() Result {
	return Result{Findings: append([]Finding(nil), r.Findings...)}
}

// ErrReportNotFound is returned by stores when a report id is unknown.
var ErrReportNotFound = errors.New("report not found")

// ReportStore persists evaluation history. List returns records for a run
// folder (all records when runFolder is empty), newest first.
type ReportStore interface {
	Save(ctx context.Context, record ReportRecord) error
	Get(ctx context.Context, id string) (ReportRecord, error)
	List(ctx context.Context, runFolder string) ([]ReportRecord, error)
	Close() error
}
