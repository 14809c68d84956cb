package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"checkqc/pkg/domain"
)

func TestNoopObservabilityDefaults(t *testing.T) {
	var logger Logger = noopLogger{}
	logger.Debug("debug", "k", "v")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")
	noopMetrics{}.Observe(context.Background(), "op", true, time.Second)
	ctx, span := noopTracer{}.Start(context.Background(), "op")
	if ctx == nil {
		t.Fatalf("expected context")
	}
	span.End(errors.New("ignored"))
	if (systemClock{}).Now().Location() != time.UTC {
		t.Fatalf("system clock must report UTC")
	}
}

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(rec.Name(), "checkqc_metrics_") {
		t.Fatalf("unexpected generated name %q", rec.Name())
	}
	ctx := context.Background()
	rec.Observe(ctx, "run", true, 1500*time.Microsecond)
	rec.Observe(ctx, "run", false, time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)
	rec.ObserveFindings(ctx, sampleEvaluation().Result)

	snap := rec.Snapshot()
	if snap.Results["run"]["success"] != 1 || snap.Results["run"]["error"] != 1 {
		t.Fatalf("unexpected results %+v", snap.Results)
	}
	if snap.DurationsMS["run"] != 2.5 {
		t.Fatalf("expected 2.5ms total, got %v", snap.DurationsMS["run"])
	}
	if snap.Findings[ErrorRateHandlerName][domain.SeverityFatal] != 1 {
		t.Fatalf("unexpected findings %+v", snap.Findings)
	}
	if _, ok := snap.Results[""]; ok {
		t.Fatalf("empty operation must be ignored")
	}
	published := expvar.Get(rec.Name())
	if published == nil || !strings.Contains(published.String(), "results_total") {
		t.Fatalf("expected recorder published via expvar")
	}
}

func TestJSONTraceTracer(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "run")
	span.End(errors.New("boom"))
	_, span = tracer.Start(context.Background(), "history")
	span.End(nil)

	entries := tracer.Entries()
	if len(entries) != 2 || entries[0].Status != "error" || entries[0].Error != "boom" || entries[1].Status != "success" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two JSON lines, got %q", buf.String())
	}
	var first JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil || first.Operation != "run" {
		t.Fatalf("unexpected first line %q: %v", lines[0], err)
	}
	NewJSONTracer(nil).Start(context.Background(), "quiet")
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "run", true, time.Second)
	rec.Observe(ctx, "run", false, time.Second)
	rec.Observe(ctx, "", false, time.Second)
	rec.ObserveFindings(ctx, sampleEvaluation().Result)

	if got := promtest.ToFloat64(rec.results.WithLabelValues("run", "success")); got != 1 {
		t.Fatalf("expected one success, got %v", got)
	}
	if got := promtest.ToFloat64(rec.findings.WithLabelValues(YieldHandlerName, "warning")); got != 1 {
		t.Fatalf("expected one yield warning, got %v", got)
	}
	if n := promtest.CollectAndCount(rec.durations); n != 1 {
		t.Fatalf("expected one duration series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
