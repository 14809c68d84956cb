// Package memory provides an in-memory report store used for tests,
// ephemeral runs and as the read model of the SQL-backed stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"checkqc/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.ReportStore = (*Store)(nil)

// Snapshot is the exported state of a store.
type Snapshot struct {
	Reports []domain.ReportRecord `json:"reports"`
}

// Store keeps report records in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	reports map[string]domain.ReportRecord
	closed  bool
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("report store closed")

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{reports: make(map[string]domain.ReportRecord)}
}

// Validate checks the fields every stored record must carry.
func Validate(record domain.ReportRecord) error {
	var missing []string
	if strings.TrimSpace(record.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(record.RunFolder) == "" {
		missing = append(missing, "run_folder")
	}
	if record.CreatedAt.IsZero() {
		missing = append(missing, "created_at")
	}
	if len(missing) > 0 {
		return fmt.Errorf("report record missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Save stores a record. Records are immutable once saved; saving an id twice fails.
func (s *Store) Save(_ context.Context, record domain.ReportRecord) error {
	if err := Validate(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, exists := s.reports[record.ID]; exists {
		return fmt.Errorf("report %s already exists", record.ID)
	}
	s.reports[record.ID] = cloneRecord(record)
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(_ context.Context, id string) (domain.ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.ReportRecord{}, ErrClosed
	}
	record, ok := s.reports[id]
	if !ok {
		return domain.ReportRecord{}, fmt.Errorf("%w: %s", domain.ErrReportNotFound, id)
	}
	return cloneRecord(record), nil
}

// List returns the records of a run folder, or all records when runFolder is
// empty, newest first.
func (s *Store) List(_ context.Context, runFolder string) ([]domain.ReportRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make([]domain.ReportRecord, 0, len(s.reports))
	for _, record := range s.reports {
		if runFolder != "" && record.RunFolder != runFolder {
			continue
		}
		out = append(out, cloneRecord(record))
	}
	SortNewestFirst(out)
	return out, nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ExportState returns a deep copy of all records, newest first.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ReportRecord, 0, len(s.reports))
	for _, record := range s.reports {
		out = append(out, cloneRecord(record))
	}
	SortNewestFirst(out)
	return Snapshot{Reports: out}
}

// ImportState replaces the store contents with the snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = make(map[string]domain.ReportRecord, len(snapshot.Reports))
	for _, record := range snapshot.Reports {
		s.reports[record.ID] = cloneRecord(record)
	}
}

// SortNewestFirst orders records by creation time descending, then id.
func SortNewestFirst(records []domain.ReportRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

func cloneRecord(record domain.ReportRecord) domain.ReportRecord {
	cp := record
	if record.Findings != nil {
		cp.Findings = make([]domain.Finding, len(record.Findings))
		for i, f := range record.Findings {
			cp.Findings[i] = f
			if f.Data != nil {
				data := make(map[string]any, len(f.Data))
				for k, v := range f.Data {
					data[k] = v
				}
				cp.Findings[i].Data = data
			}
		}
	}
	return cp
}
