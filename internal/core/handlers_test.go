package core

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"checkqc/pkg/domain"
)

func TestErrorRateMissingValues(t *testing.T) {
	data := qcData("36", domain.SequencingMetrics{
		1: twoReadLane(1, math.NaN()),
		2: twoReadLane(1, 0),
	})
	params := spec(ErrorRateHandlerName, 2, 1).Params()

	res, err := NewErrorRateHandler().Check(context.Background(), data, params)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Count(domain.SeverityFatal) != 2 {
		t.Fatalf("expected both missing rates fatal, got %+v", res.Findings)
	}
	if _, err := json.Marshal(res); err != nil {
		t.Fatalf("findings for NaN rates must stay JSON encodable: %v", err)
	}
	if res.Findings[0].Data["error"] != nil {
		t.Fatalf("expected nil error value for NaN, got %v", res.Findings[0].Data["error"])
	}

	params.Options = map[string]any{"allow_missing_error_rate": true}
	res, err = NewErrorRateHandler().Check(context.Background(), data, params)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Findings) != 0 {
		t.Fatalf("expected missing rates skipped, got %+v", res.Findings)
	}
}

func TestErrorRateSkipsIndexReads(t *testing.T) {
	lane := twoReadLane(1, 0.1)
	idx := lane.Reads[2]
	idx.MeanErrorRate = 50
	lane.Reads[2] = idx
	res, err := NewErrorRateHandler().Check(context.Background(), qcData("36", domain.SequencingMetrics{1: lane}), spec(ErrorRateHandlerName, 2, 1).Params())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Findings) != 0 {
		t.Fatalf("index reads must be skipped, got %+v", res.Findings)
	}
}

func TestErrorRateOrderAcrossLanesAndReads(t *testing.T) {
	lane := func() domain.LaneMetrics {
		return domain.LaneMetrics{Reads: map[int]domain.ReadMetrics{
			4: {MeanErrorRate: 3},
			1: {MeanErrorRate: 3},
		}}
	}
	data := qcData("36", domain.SequencingMetrics{2: lane(), 1: lane()})
	res, err := NewErrorRateHandler().Check(context.Background(), data, spec(ErrorRateHandlerName, 2, 1).Params())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	want := [][2]int{{1, 1}, {1, 4}, {2, 1}, {2, 4}}
	if len(res.Findings) != len(want) {
		t.Fatalf("expected %d findings, got %d", len(want), len(res.Findings))
	}
	for i, w := range want {
		if res.Findings[i].Data["lane"] != w[0] || res.Findings[i].Data["read"] != w[1] {
			t.Fatalf("finding %d: expected lane %d read %d, got %+v", i, w[0], w[1], res.Findings[i].Data)
		}
	}
}

func TestHandlersRequireThresholds(t *testing.T) {
	for _, h := range []Handler{NewErrorRateHandler(), NewYieldHandler()} {
		_, err := h.Check(context.Background(), qcData("36", nil), domain.Params{Error: f64(1)})
		if !errors.Is(err, domain.ErrMissingThreshold) {
			t.Fatalf("%s: expected ErrMissingThreshold, got %v", h.Name(), err)
		}
	}
}

func TestYieldFatalBelowErrorThreshold(t *testing.T) {
	data := qcData("36", domain.SequencingMetrics{
		1: twoReadLane(17_000_000_000, 0.1),
		2: twoReadLane(20_000_000_000, 0.1),
	})
	res, err := NewYieldHandler().Check(context.Background(), data, spec(YieldHandlerName, 18, 19).Params())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(res.Findings) != 1 || !res.Findings[0].IsFatal() || res.Findings[0].Data["lane"] != 1 {
		t.Fatalf("expected a single fatal finding on lane 1, got %+v", res.Findings)
	}
}
