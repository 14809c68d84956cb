package illumina

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"checkqc/internal/core"
	"checkqc/pkg/domain"
)

const millions = 1e6

// clusterPFHandler flags lanes with too few clusters passing filter.
// Thresholds are given in millions of clusters.
type clusterPFHandler struct{}

func (clusterPFHandler) Name() string { return ClusterPFHandlerName }

func (clusterPFHandler) Direction() core.Direction { return core.LowerIsWorse }

func (clusterPFHandler) Check(_ context.Context, data *core.QCData, params domain.Params) (domain.Result, error) {
	errorAt, warningAt, err := params.Thresholds(ClusterPFHandlerName)
	if err != nil {
		return domain.Result{}, err
	}
	res := domain.Result{}
	for _, lane := range data.Metrics.Lanes() {
		clusters := float64(data.Metrics[lane].TotalClusterPF)
		msg := fmt.Sprintf("Cluster PF was too low on lane %d, it was: %.2f M", lane, clusters/millions)
		switch {
		case clusters < errorAt*millions:
			res.Add(domain.Fatal(ClusterPFHandlerName, msg,
				map[string]any{"lane": lane, "lane_pf": clusters, "threshold": errorAt * millions}))
		case clusters < warningAt*millions:
			res.Add(domain.Warning(ClusterPFHandlerName, msg,
				map[string]any{"lane": lane, "lane_pf": clusters, "threshold": warningAt * millions}))
		}
	}
	return res, nil
}

// q30Handler flags reads whose share of bases at or above Q30 is too low.
// Reads without a measurement are skipped.
type q30Handler struct{}

func (q30Handler) Name() string { return Q30HandlerName }

func (q30Handler) Direction() core.Direction { return core.LowerIsWorse }

func (q30Handler) Check(_ context.Context, data *core.QCData, params domain.Params) (domain.Result, error) {
	errorAt, warningAt, err := params.Thresholds(Q30HandlerName)
	if err != nil {
		return domain.Result{}, err
	}
	res := domain.Result{}
	for _, lane := range data.Metrics.Lanes() {
		lm := data.Metrics[lane]
		for _, read := range lm.ReadNumbers() {
			q30 := lm.Reads[read].PercentQ30
			if math.IsNaN(q30) {
				continue
			}
			msg := fmt.Sprintf("%%Q30 %.2f was too low on lane: %d for read: %d", q30, lane, read)
			switch {
			case q30 < errorAt:
				res.Add(domain.Fatal(Q30HandlerName, msg,
					map[string]any{"lane": lane, "read": read, "percent_q30": q30, "threshold": errorAt}))
			case q30 < warningAt:
				res.Add(domain.Warning(Q30HandlerName, msg,
					map[string]any{"lane": lane, "read": read, "percent_q30": q30, "threshold": warningAt}))
			}
		}
	}
	return res, nil
}

// undeterminedPercentageHandler flags lanes where too much of the yield could
// not be assigned to a sample. The PhiX share of the lane is added to the
// thresholds since PhiX reads are undetermined by construction.
type undeterminedPercentageHandler struct{}

func (undeterminedPercentageHandler) Name() string { return UndeterminedPercentageHandlerName }

func (undeterminedPercentageHandler) Direction() core.Direction { return core.HigherIsWorse }

func (undeterminedPercentageHandler) Check(_ context.Context, data *core.QCData, params domain.Params) (domain.Result, error) {
	errorAt, warningAt, err := params.Thresholds(UndeterminedPercentageHandlerName)
	if err != nil {
		return domain.Result{}, err
	}
	res := domain.Result{}
	for _, lane := range data.Metrics.Lanes() {
		lm := data.Metrics[lane]
		pct := lm.PercentUndetermined()
		if math.IsNaN(pct) {
			res.Add(domain.Fatal(UndeterminedPercentageHandlerName,
				fmt.Sprintf("Percentage of undetermined indexes could not be computed for lane %d, it had no yield", lane),
				map[string]any{"lane": lane, "percentage_undetermined": nil}))
			continue
		}
		phix := meanPhiX(lm)
		fields := map[string]any{"lane": lane, "percentage_undetermined": pct, "phix_on_lane": phix}
		msg := fmt.Sprintf("The percentage of undetermined indexes was too high on lane %d, it was: %.2f%%", lane, pct)
		switch {
		case pct > errorAt+phix:
			fields["threshold"] = errorAt + phix
			res.Add(domain.Fatal(UndeterminedPercentageHandlerName, msg, fields))
		case pct > warningAt+phix:
			fields["threshold"] = warningAt + phix
			res.Add(domain.Warning(UndeterminedPercentageHandlerName, msg, fields))
		}
	}
	return res, nil
}

// meanPhiX averages the PhiX alignment rate over the lane's data reads,
// ignoring reads where it was not measured.
func meanPhiX(lm domain.LaneMetrics) float64 {
	sum, n := 0.0, 0
	for _, read := range lm.ReadNumbers() {
		rm := lm.Reads[read]
		if rm.IsIndex || math.IsNaN(rm.MeanPercentPhiXAligned) {
			continue
		}
		sum += rm.MeanPercentPhiXAligned
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// unidentifiedIndexHandler warns about unknown barcodes that account for a
// significant share of a lane's clusters. It only ever produces warnings.
//
// Options:
//
//	significance_threshold: percent of clusters PF (default 1)
//	samplesheet_section: section listing samples (default BCLConvert_Data)
type unidentifiedIndexHandler struct{}

const (
	defaultSignificance       = 1.0
	defaultSamplesheetSection = "BCLConvert_Data"
)

func (unidentifiedIndexHandler) Name() string { return UnidentifiedIndexHandlerName }

func (unidentifiedIndexHandler) Check(_ context.Context, data *core.QCData, params domain.Params) (domain.Result, error) {
	significance := params.Float("significance_threshold", defaultSignificance)
	section := defaultSamplesheetSection
	if s, ok := params.Options["samplesheet_section"].(string); ok && s != "" {
		section = s
	}
	known := knownIndexes(data.Samplesheet.Section(section))

	res := domain.Result{}
	for _, lane := range data.Metrics.Lanes() {
		lm := data.Metrics[lane]
		if lm.TotalClusterPF <= 0 {
			continue
		}
		for _, bc := range lm.TopUnknownBarcodes {
			pct := float64(bc.Count) * 100 / float64(lm.TotalClusterPF)
			if pct < significance {
				continue
			}
			msg := fmt.Sprintf("Overrepresented unknown barcode %q on lane %d: %.2f%% of clusters.", bc.Index, lane, pct)
			if lanes := known[normalizeIndex(bc.Index)]; len(lanes) > 0 {
				msg += fmt.Sprintf(" It is used by samples on lane %s.", strings.Join(lanes, ", "))
			}
			res.Add(domain.Warning(UnidentifiedIndexHandlerName, msg,
				map[string]any{"lane": lane, "index": bc.Index, "count": bc.Count, "percent_of_clusters": jsonFloat(pct)}))
		}
	}
	return res, nil
}

// knownIndexes maps each samplesheet index (index and index2 joined by "+")
// to the lanes listing it.
func knownIndexes(rows []map[string]string) map[string][]string {
	out := make(map[string][]string)
	for _, row := range rows {
		index := row["Index"]
		if i2 := row["Index2"]; i2 != "" {
			index += "+" + i2
		}
		if index == "" {
			continue
		}
		lane := row["Lane"]
		if lane == "" {
			lane = "all"
		} else if _, err := strconv.Atoi(lane); err != nil {
			continue
		}
		key := normalizeIndex(index)
		out[key] = append(out[key], lane)
	}
	return out
}

func normalizeIndex(index string) string {
	return strings.ToUpper(strings.ReplaceAll(index, "-", "+"))
}
