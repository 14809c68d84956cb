package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"checkqc/internal/infra/persistence/postgres/testutil"
	"checkqc/pkg/domain"
)

const reportsTable = "checkqc_reports"

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func sampleRecord(id string, at time.Time) domain.ReportRecord {
	return domain.ReportRecord{
		ID:         id,
		RunFolder:  "runs/a",
		Instrument: "hiseqx_v2",
		ReadLength: "150-150",
		View:       "json_view",
		Findings:   []domain.Finding{domain.Warning("YieldHandler", "low", nil)},
		CreatedAt:  at,
	}
}

func TestNewStoreCreatesTableAndLoadsRows(t *testing.T) {
	ctx := context.Background()
	db, conn := testutil.NewStubDB()
	payload, err := json.Marshal(sampleRecord("seeded", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	conn.Tables[reportsTable] = []map[string]any{{"id": "seeded", "payload": payload}}

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore(ctx, "ignored")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS CHECKQC_REPORTS") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected reports DDL, got execs: %v", conn.Execs)
	}
	got, err := store.Get(ctx, "seeded")
	if err != nil {
		t.Fatalf("get seeded: %v", err)
	}
	if got.Instrument != "hiseqx_v2" {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestSaveWritesThroughInTransaction(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if err := store.Save(ctx, sampleRecord("r1", at)); err != nil {
		t.Fatalf("save: %v", err)
	}
	rows := conn.Tables[reportsTable]
	if len(rows) != 1 || rows[0]["id"] != "r1" || rows[0]["run_folder"] != "runs/a" {
		t.Fatalf("unexpected stored rows %v", rows)
	}
	if conn.Commits != 1 {
		t.Fatalf("expected one commit, got %d", conn.Commits)
	}
	list, err := store.List(ctx, "runs/a")
	if err != nil || len(list) != 1 {
		t.Fatalf("expected record visible after save, got %v %v", list, err)
	}
	if err := store.Save(ctx, sampleRecord("r1", at)); err == nil {
		t.Fatalf("expected duplicate error")
	}
}

func TestSaveFailuresLeaveStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	cases := map[string]func(*testutil.StubConn){
		"begin":  func(c *testutil.StubConn) { c.FailBegin = true },
		"insert": func(c *testutil.StubConn) { c.FailTables = map[string]bool{reportsTable: true} },
		"commit": func(c *testutil.StubConn) { c.FailCommit = true },
	}
	for name, breakConn := range cases {
		t.Run(name, func(t *testing.T) {
			store, conn := openStub(t)
			breakConn(conn)
			if err := store.Save(ctx, sampleRecord("r1", time.Now())); err == nil {
				t.Fatalf("expected save error")
			}
			if _, err := store.Get(ctx, "r1"); !errors.Is(err, domain.ErrReportNotFound) {
				t.Fatalf("failed save must not be visible, got %v", err)
			}
		})
	}
}

func TestNewStoreErrors(t *testing.T) {
	ctx := context.Background()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("boom") })
	if _, err := NewStore(ctx, ""); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore = OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(ctx, ""); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}

	conn.FailPing = false
	conn.Tables[reportsTable] = []map[string]any{{"id": "bad", "payload": []byte("{")}}
	if _, err := NewStore(ctx, ""); err == nil || !strings.Contains(err.Error(), "decode report bad") {
		t.Fatalf("expected decode error, got %v", err)
	}
}
