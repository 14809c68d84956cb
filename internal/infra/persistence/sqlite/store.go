// Package sqlite provides a report store persisted to a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"checkqc/internal/infra/persistence/memory"
	"checkqc/pkg/domain"
)

var _ domain.ReportStore = (*Store)(nil)

// DefaultPath is used when no database path is configured.
const DefaultPath = "checkqc.db"

// Store writes every record to SQLite as a JSON payload and serves reads from
// the in-memory store hydrated at open.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		run_folder TEXT NOT NULL,
		created_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create reports table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM reports`)
	if err != nil {
		return fmt.Errorf("select reports: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var snapshot memory.Snapshot
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		var record domain.ReportRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return fmt.Errorf("decode report %s: %w", id, err)
		}
		snapshot.Reports = append(snapshot.Reports, record)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate reports: %w", err)
	}
	s.ImportState(snapshot)
	return nil
}

// Save writes the record to SQLite, then makes it visible to reads.
func (s *Store) Save(ctx context.Context, record domain.ReportRecord) error {
	if err := memory.Validate(record); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.Get(ctx, record.ID); err == nil {
		return fmt.Errorf("report %s already exists", record.ID)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode report %s: %w", record.ID, err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO reports(id, run_folder, created_at, payload) VALUES(?,?,?,?)`,
		record.ID, record.RunFolder, record.CreatedAt.UTC().Format(time.RFC3339Nano), payload); err != nil {
		return fmt.Errorf("insert report %s: %w", record.ID, err)
	}
	return s.Store.Save(ctx, record)
}

// Close closes the database.
func (s *Store) Close() error {
	_ = s.Store.Close()
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
