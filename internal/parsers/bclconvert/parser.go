// Package bclconvert reads the reports BCL Convert writes into a run folder
// and turns them into sequencing metrics and a parsed sample sheet.
package bclconvert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"checkqc/internal/blob"
	"checkqc/internal/runfolder"
	"checkqc/internal/runtype"
	"checkqc/pkg/domain"
)

// Source opens run folder documents by name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// Reports is everything parsed from one run folder.
type Reports struct {
	Metrics     domain.SequencingMetrics
	Samplesheet domain.Samplesheet
}

const undetermined = "Undetermined"

// Parse reads Demultiplex_Stats.csv, Quality_Metrics.csv, the optional
// Top_Unknown_Barcodes.csv and SampleSheet.csv. reads is the run's read
// layout from RunInfo.xml; BCL Convert labels reads "1", "2" for data reads
// and "I1", "I2" for index reads, and the layout maps them back to run read
// numbers. BCL Convert does not report error rates or PhiX alignment, so
// those metrics are NaN.
func Parse(ctx context.Context, src Source, reads []runtype.Read) (Reports, error) {
	labels, err := readLabels(reads)
	if err != nil {
		return Reports{}, err
	}
	metrics := domain.SequencingMetrics{}

	demux, err := load(ctx, src, runfolder.DemultiplexStats)
	if err != nil {
		return Reports{}, err
	}
	if err := addDemultiplexStats(metrics, demux); err != nil {
		return Reports{}, err
	}

	quality, err := load(ctx, src, runfolder.QualityMetrics)
	if err != nil {
		return Reports{}, err
	}
	if err := addQualityMetrics(metrics, quality, labels); err != nil {
		return Reports{}, err
	}

	unknown, err := load(ctx, src, runfolder.TopUnknownBarcodes)
	switch {
	case isNotFound(err):
		// BCL Convert skips the file when every read was assigned
	case err != nil:
		return Reports{}, err
	default:
		if err := addTopUnknownBarcodes(metrics, unknown); err != nil {
			return Reports{}, err
		}
	}

	sheet, err := openSamplesheet(ctx, src)
	if err != nil {
		return Reports{}, err
	}
	return Reports{Metrics: metrics, Samplesheet: sheet}, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, blob.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
}

func load(ctx context.Context, src Source, name string) (*table, error) {
	rc, err := src.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return readTable(name, rc)
}

func openSamplesheet(ctx context.Context, src Source) (domain.Samplesheet, error) {
	rc, err := src.Open(ctx, runfolder.SampleSheet)
	if err != nil {
		return domain.Samplesheet{}, err
	}
	defer func() { _ = rc.Close() }()
	return ParseSamplesheet(rc)
}

type readLabel struct {
	number  int
	isIndex bool
}

// readLabels maps BCL Convert read labels onto run read numbers.
func readLabels(reads []runtype.Read) (map[string]readLabel, error) {
	if len(reads) == 0 {
		return nil, errors.New("bclconvert: empty read layout")
	}
	out := make(map[string]readLabel, len(reads))
	data, index := 0, 0
	for _, r := range reads {
		if r.IsIndex {
			index++
			out["I"+strconv.Itoa(index)] = readLabel{number: r.Number, isIndex: true}
			continue
		}
		data++
		out[strconv.Itoa(data)] = readLabel{number: r.Number}
	}
	return out, nil
}

func lane(metrics domain.SequencingMetrics, n int) domain.LaneMetrics {
	lm, ok := metrics[n]
	if !ok {
		lm = domain.LaneMetrics{Reads: map[int]domain.ReadMetrics{}}
	}
	return lm
}

func addDemultiplexStats(metrics domain.SequencingMetrics, t *table) error {
	if err := t.require("Lane", "SampleID", "# Reads"); err != nil {
		return err
	}
	for i, row := range t.rows {
		n, err := t.lane(i+2, row)
		if err != nil {
			return err
		}
		count, err := t.integer(i+2, row, "# Reads")
		if err != nil {
			return err
		}
		lm := lane(metrics, n)
		lm.TotalClusterPF += count
		metrics[n] = lm
	}
	return nil
}

type q30Sum struct {
	yield, yieldQ30 int64
}

func addQualityMetrics(metrics domain.SequencingMetrics, t *table, labels map[string]readLabel) error {
	if err := t.require("Lane", "SampleID", "ReadNumber", "Yield", "YieldQ30"); err != nil {
		return err
	}
	type laneRead struct{ lane, read int }
	sums := map[laneRead]q30Sum{}
	indexReads := map[int]bool{}
	for i, row := range t.rows {
		line := i + 2
		n, err := t.lane(line, row)
		if err != nil {
			return err
		}
		label := strings.TrimPrefix(t.str(row, "ReadNumber"), "R")
		rl, ok := labels[label]
		if !ok {
			return fmt.Errorf("%s row %d: read %q is not in the run's read layout", t.name, line, label)
		}
		yield, err := t.integer(line, row, "Yield")
		if err != nil {
			return err
		}
		yieldQ30, err := t.integer(line, row, "YieldQ30")
		if err != nil {
			return err
		}
		key := laneRead{n, rl.number}
		s := sums[key]
		s.yield += yield
		s.yieldQ30 += yieldQ30
		sums[key] = s
		indexReads[rl.number] = rl.isIndex

		lm := lane(metrics, n)
		if !rl.isIndex {
			lm.Yield += yield
			if t.str(row, "SampleID") == undetermined {
				lm.YieldUndetermined += yield
			}
		}
		metrics[n] = lm
	}
	for key, s := range sums {
		q30 := math.NaN()
		if s.yield > 0 {
			q30 = float64(s.yieldQ30) / float64(s.yield) * 100
		}
		lm := metrics[key.lane]
		lm.Reads[key.read] = domain.ReadMetrics{
			MeanErrorRate:          math.NaN(),
			PercentQ30:             q30,
			IsIndex:                indexReads[key.read],
			MeanPercentPhiXAligned: math.NaN(),
		}
	}
	return nil
}

func addTopUnknownBarcodes(metrics domain.SequencingMetrics, t *table) error {
	if err := t.require("Lane", "index", "# Reads"); err != nil {
		return err
	}
	for i, row := range t.rows {
		n, err := t.lane(i+2, row)
		if err != nil {
			return err
		}
		count, err := t.integer(i+2, row, "# Reads")
		if err != nil {
			return err
		}
		index := t.str(row, "index")
		if t.has("index2") {
			if i2 := t.str(row, "index2"); i2 != "" {
				index += "+" + i2
			}
		}
		lm := lane(metrics, n)
		lm.TopUnknownBarcodes = append(lm.TopUnknownBarcodes, domain.UnknownBarcode{Index: index, Count: count})
		metrics[n] = lm
	}
	return nil
}
