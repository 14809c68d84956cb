package domain

import "testing"

func TestResultMergeAndFatal(t *testing.T) {
	var result Result
	result.Merge(Result{Findings: []Finding{Warning("YieldHandler", "low", nil)}})
	if result.HasFatal() {
		t.Fatalf("expected no fatal findings")
	}
	result.Merge(Result{Findings: []Finding{Fatal("ErrorRateHandler", "high", map[string]any{"lane": 1})}})
	if !result.HasFatal() {
		t.Fatalf("expected fatal finding")
	}
	if result.Count(SeverityWarning) != 1 || result.Count(SeverityFatal) != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if got := result.ByHandler("YieldHandler"); len(got) != 1 || got[0].Message != "low" {
		t.Fatalf("unexpected handler findings: %+v", got)
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Findings: []Finding{Warning("existing", "w", nil)}}
	original.Merge(Result{})
	if len(original.Findings) != 1 || original.Findings[0].Handler != "existing" {
		t.Fatalf("expected original findings to remain, got %+v", original.Findings)
	}
}

func TestResultMergePreservesOrder(t *testing.T) {
	var result Result
	result.Add(Warning("a", "1", nil))
	result.Merge(Result{Findings: []Finding{Fatal("b", "2", nil), Warning("b", "3", nil)}})
	result.Add(Warning("c", "4", nil))
	want := []string{"1", "2", "3", "4"}
	for i, f := range result.Findings {
		if f.Message != want[i] {
			t.Fatalf("finding %d: want %s got %s", i, want[i], f.Message)
		}
	}
}
