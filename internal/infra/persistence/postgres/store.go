// Package postgres provides a Postgres-backed report store that mirrors the
// in-memory semantics and writes each record through to a reports table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"checkqc/internal/infra/persistence/memory"
	"checkqc/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.ReportStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/checkqc?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists records to Postgres while serving reads from memory.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), ensures the reports table exists and hydrates memory from it.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureReportsTable(ctx, db); err != nil {
		return nil, err
	}
	snapshot, err := loadSnapshot(ctx, db)
	if err != nil {
		return nil, err
	}
	mem := memory.NewStore()
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

func ensureReportsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS checkqc_reports (
		id TEXT PRIMARY KEY,
		run_folder TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure reports table: %w", err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, db *sql.DB) (memory.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM checkqc_reports`)
	if err != nil {
		return memory.Snapshot{}, fmt.Errorf("select reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var snapshot memory.Snapshot
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return memory.Snapshot{}, fmt.Errorf("scan report: %w", err)
		}
		if len(payload) == 0 {
			continue
		}
		var record domain.ReportRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return memory.Snapshot{}, fmt.Errorf("decode report %s: %w", id, err)
		}
		snapshot.Reports = append(snapshot.Reports, record)
	}
	if err := rows.Err(); err != nil {
		return memory.Snapshot{}, fmt.Errorf("iterate reports: %w", err)
	}
	return snapshot, nil
}

// Save inserts the record inside a transaction, then makes it visible to reads.
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO checkqc_reports (id, run_folder, created_at, payload) VALUES ($1,$2,$3,$4)`,
		record.ID, record.RunFolder, record.CreatedAt.UTC(), payload); err != nil {
		return fmt.Errorf("insert report %s: %w", record.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return s.Store.Save(ctx, record)
}

// Close closes the database.
func (s *Store) Close() error {
	_ = s.Store.Close()
	return s.db.Close()
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
