package core

import (
	"context"
	"fmt"

	"checkqc/pkg/domain"
)

// YieldHandlerName is the configured name of the lane yield check.
const YieldHandlerName = "YieldHandler"

// gigabases converts configured Gbp thresholds to bases.
const gigabases = 1e9

// NewYieldHandler returns the handler flagging lanes whose yield falls below
// the configured thresholds, given in Gbp.
func NewYieldHandler() Handler {
	return yieldHandler{}
}

type yieldHandler struct{}

func (yieldHandler) Name() string { return YieldHandlerName }

func (yieldHandler) Direction() Direction { return LowerIsWorse }

func (yieldHandler) Check(_ context.Context, data *QCData, params domain.Params) (domain.Result, error) {
	errorAt, warningAt, err := params.Thresholds(YieldHandlerName)
	if err != nil {
		return domain.Result{}, err
	}
	res := domain.Result{}
	for _, lane := range data.Metrics.Lanes() {
		yield := float64(data.Metrics[lane].Yield)
		switch {
		case yield < errorAt*gigabases:
			res.Add(domain.Fatal(YieldHandlerName,
				fmt.Sprintf("Yield was too low on lane %d, it was: %.0f", lane, yield),
				map[string]any{"lane": lane, "yield": yield, "threshold": errorAt * gigabases}))
		case yield < warningAt*gigabases:
			res.Add(domain.Warning(YieldHandlerName,
				fmt.Sprintf("Yield was too low on lane %d, it was: %.0f", lane, yield),
				map[string]any{"lane": lane, "yield": yield, "threshold": warningAt * gigabases}))
		}
	}
	return res, nil
}
