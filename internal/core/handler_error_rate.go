package core

import (
	"context"
	"fmt"
	"math"

	"checkqc/pkg/domain"
)

// ErrorRateHandlerName is the configured name of the error rate check.
const ErrorRateHandlerName = "ErrorRateHandler"

// NewErrorRateHandler returns the handler flagging reads whose PhiX error rate
// exceeds the configured thresholds.
func NewErrorRateHandler() Handler {
	return errorRateHandler{}
}

type errorRateHandler struct{}

func (errorRateHandler) Name() string { return ErrorRateHandlerName }

func (errorRateHandler) Direction() Direction { return HigherIsWorse }

// Check walks lanes then reads in ascending order. Index reads carry no error
// rate and are skipped. A missing rate (NaN or exactly 0) on a data read is
// fatal unless allow_missing_error_rate is set.
func (errorRateHandler) Check(_ context.Context, data *QCData, params domain.Params) (domain.Result, error) {
	errorAt, warningAt, err := params.Thresholds(ErrorRateHandlerName)
	if err != nil {
		return domain.Result{}, err
	}
	if !(errorAt > warningAt) {
		return domain.Result{}, domain.ThresholdOrderError{Handler: ErrorRateHandlerName, ErrorThreshold: errorAt, WarningThreshold: warningAt}
	}
	allowMissing := params.Bool("allow_missing_error_rate", false)

	res := domain.Result{}
	for _, lane := range data.Metrics.Lanes() {
		lm := data.Metrics[lane]
		for _, read := range lm.ReadNumbers() {
			rm := lm.Reads[read]
			if rm.IsIndex {
				continue
			}
			rate := rm.MeanErrorRate
			if !rm.HasErrorRate() {
				if allowMissing {
					continue
				}
				res.Add(domain.Fatal(ErrorRateHandlerName,
					fmt.Sprintf("Error rate is %v on lane %d for read %d. This may be because no PhiX was loaded on this lane. Use \"allow_missing_error_rate: true\" to disable this error message.", rate, lane, read),
					map[string]any{"lane": lane, "read": read, "error": jsonFloat(rate)}))
				continue
			}
			switch {
			case rate > errorAt:
				res.Add(domain.Fatal(ErrorRateHandlerName,
					fmt.Sprintf("Error rate %v > %v on lane %d for read %d.", rate, errorAt, lane, read),
					map[string]any{"lane": lane, "read": read, "error": rate, "threshold": errorAt}))
			case rate > warningAt:
				res.Add(domain.Warning(ErrorRateHandlerName,
					fmt.Sprintf("Error rate %v > %v on lane %d for read %d.", rate, warningAt, lane, read),
					map[string]any{"lane": lane, "read": read, "error": rate, "threshold": warningAt}))
			}
		}
	}
	return res, nil
}

// jsonFloat maps NaN and infinities to nil so finding data stays JSON encodable.
func jsonFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
