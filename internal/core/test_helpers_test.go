package core

import (
	"math"

	"checkqc/pkg/domain"
)

func f64(v float64) *float64 { return &v }

func spec(name string, errorAt, warningAt float64) domain.HandlerSpec {
	return domain.HandlerSpec{Name: name, Error: f64(errorAt), Warning: f64(warningAt)}
}

// twoReadLane builds a lane with a data read and an index read.
func twoReadLane(yield int64, errorRate float64) domain.LaneMetrics {
	return domain.LaneMetrics{
		TotalClusterPF: 1000,
		Yield:          yield,
		Reads: map[int]domain.ReadMetrics{
			1: {MeanErrorRate: errorRate, PercentQ30: 90, MeanPercentPhiXAligned: 1},
			2: {MeanErrorRate: math.NaN(), PercentQ30: 85, IsIndex: true, MeanPercentPhiXAligned: math.NaN()},
		},
	}
}

func qcData(rl domain.ReadLength, metrics domain.SequencingMetrics) *QCData {
	return NewQCData("novaseq_v1", rl, domain.Samplesheet{}, metrics)
}

func singleEntry(key string, handlers ...domain.HandlerSpec) domain.ReportConfig {
	return domain.ReportConfig{
		ReadLengths: map[string]domain.ReadLengthConfig{key: {Handlers: handlers}},
	}
}
