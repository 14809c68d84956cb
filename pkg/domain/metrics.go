package domain

import (
	"math"
	"sort"
)

// ReadMetrics holds the per-read metrics for one lane.
// MeanErrorRate and MeanPercentPhiXAligned are NaN when the instrument did not
// report them (no PhiX spiked in, or index reads).
type ReadMetrics struct {
	MeanErrorRate          float64 `json:"mean_error_rate"`
	PercentQ30             float64 `json:"percent_q30"`
	IsIndex                bool    `json:"is_index"`
	MeanPercentPhiXAligned float64 `json:"mean_percent_phix_aligned"`
}

// HasErrorRate reports whether a usable error rate was measured.
func (m ReadMetrics) HasErrorRate() bool {
	return !math.IsNaN(m.MeanErrorRate) && m.MeanErrorRate != 0
}

// UnknownBarcode is one entry of the ranked list of undetermined index sequences.
type UnknownBarcode struct {
	Index string `json:"index"`
	Count int64  `json:"count"`
}

// LaneMetrics aggregates the sequencing metrics for a single lane.
type LaneMetrics struct {
	TotalClusterPF     int64               `json:"total_cluster_pf"`
	Yield              int64               `json:"yield"`
	YieldUndetermined  int64               `json:"yield_undetermined"`
	TopUnknownBarcodes []UnknownBarcode    `json:"top_unknown_barcodes"`
	Reads              map[int]ReadMetrics `json:"reads"`
}

// ReadNumbers returns the lane's read numbers in ascending order.
func (l LaneMetrics) ReadNumbers() []int {
	out := make([]int, 0, len(l.Reads))
	for n := range l.Reads {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// PercentUndetermined returns the share of the lane's yield that could not be
// assigned to a sample, or NaN when the lane has no yield.
func (l LaneMetrics) PercentUndetermined() float64 {
	if l.Yield == 0 {
		return math.NaN()
	}
	return float64(l.YieldUndetermined) / float64(l.Yield) * 100
}

// SequencingMetrics maps lane number to its metrics.
type SequencingMetrics map[int]LaneMetrics

// Lanes returns the lane numbers in ascending order. Handlers iterate lanes
// through this so their findings come out in a stable order.
func (m SequencingMetrics) Lanes() []int {
	out := make([]int, 0, len(m))
	for lane := range m {
		out = append(out, lane)
	}
	sort.Ints(out)
	return out
}
