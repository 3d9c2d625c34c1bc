package rollup

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rollup-metrics/rollup/internal/expr"
	"github.com/rollup-metrics/rollup/internal/types"
)

// defaultThresholds maps each formula type to its (low, high) color
// boundaries when the admin has not configured a pair.
var defaultThresholds = map[types.FormulaType][2]float64{
	types.FormulaStoryPointSum:     {20, 50},
	types.FormulaStoryPointAverage: {3, 8},
	types.FormulaUndoneWork:        {10, 30},
	types.FormulaChildCount:        {5, 15},
	types.FormulaBlockedCount:      {1, 3},
	types.FormulaCustom:            {30, 70},
}

// blockedStatusName is matched case-insensitively against raw status names.
const blockedStatusName = "blocked"

// Compute builds a FormulaContext from the descendant set and applies the
// configured formula, mapping the numeric result to a label and color.
// Every result is stamped with the formula type and a fresh timestamp.
//
// Compute never fails: a broken custom formula produces the fixed
// "Formula error" red result, and an unrecognized formula type produces
// the grey "N/A" result.
func Compute(records []types.Record, cfg types.FieldConfig) types.MetricResult {
	cfg.ApplyDefaults()
	ctx := BuildContext(records, cfg.PointsField)

	var res types.MetricResult
	switch cfg.FormulaType {
	case types.FormulaStoryPointSum:
		res.Value = ctx.TotalPoints
		res.Label = formatValue(res.Value) + " SP"
		res.Color = standardColor(res.Value, cfg)

	case types.FormulaStoryPointAverage:
		if ctx.ChildCount > 0 {
			res.Value = round1(ctx.TotalPoints / float64(ctx.ChildCount))
		}
		res.Label = formatValue(res.Value) + " SP avg"
		res.Color = standardColor(res.Value, cfg)

	case types.FormulaPercentComplete:
		res.Value = float64(ctx.PercentComplete)
		res.Label = fmt.Sprintf("%d%%", ctx.PercentComplete)
		res.Color = percentColor(ctx.PercentComplete)

	case types.FormulaUndoneWork:
		res.Value = ctx.RemainingPoints
		res.Label = formatValue(res.Value) + " SP left"
		res.Color = standardColor(res.Value, cfg)

	case types.FormulaChildCount:
		res.Value = float64(ctx.ChildCount)
		res.Label = formatValue(res.Value) + " items"
		res.Color = standardColor(res.Value, cfg)

	case types.FormulaBlockedCount:
		n := 0
		for i := range records {
			if strings.EqualFold(records[i].StatusName, blockedStatusName) {
				n++
			}
		}
		res.Value = float64(n)
		res.Label = formatValue(res.Value) + " blocked"
		res.Color = standardColor(res.Value, cfg)

	case types.FormulaCustom:
		if v, ok := evaluateCustom(cfg.Formula, ctx); ok {
			res.Value = v
			res.Label = formatValue(v)
			res.Color = standardColor(v, cfg)
		} else {
			res.Value = 0
			res.Label = "Formula error"
			res.Color = types.ColorRed
		}

	default:
		// Config written by a newer build may reference a type this one
		// does not know; degrade to a neutral result instead of erroring.
		res.Value = 0
		res.Label = "N/A"
		res.Color = types.ColorGrey
	}

	res.FormulaType = cfg.FormulaType
	res.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	return res
}

// evaluateCustom runs the expression evaluator over the context variables
// and rounds to 2 decimals. The evaluator is total, but any unexpected
// panic is still absorbed here; ok is false for an empty formula or an
// internal failure.
func evaluateCustom(formula string, ctx FormulaContext) (v float64, ok bool) {
	if strings.TrimSpace(formula) == "" {
		return 0, false
	}
	defer func() {
		if recover() != nil {
			v, ok = 0, false
		}
	}()
	v = round2(expr.Evaluate(formula, ctx.Variables()))
	return v, true
}

// standardColor applies the standard rule: higher is worse. Thresholds
// are normalized so stored order never matters.
func standardColor(value float64, cfg types.FieldConfig) types.Color {
	low, high := thresholds(cfg)
	switch {
	case value >= high:
		return types.ColorRed
	case value >= low:
		return types.ColorYellow
	default:
		return types.ColorGreen
	}
}

// percentColor is the one inverted rule: completion is good when high, so
// percentComplete uses fixed boundaries and ignores configured
// thresholds. Deliberate asymmetry, not an oversight.
func percentColor(pct int) types.Color {
	switch {
	case pct == 100:
		return types.ColorGreen
	case pct >= 50:
		return types.ColorYellow
	default:
		return types.ColorRed
	}
}

// thresholds returns the normalized (low, high) pair for the config,
// falling back to the formula type's defaults.
func thresholds(cfg types.FieldConfig) (low, high float64) {
	pair, ok := defaultThresholds[cfg.FormulaType]
	if !ok {
		pair = defaultThresholds[types.FormulaCustom]
	}
	if cfg.Thresholds != nil {
		pair = *cfg.Thresholds
	}
	return math.Min(pair[0], pair[1]), math.Max(pair[0], pair[1])
}

// formatValue renders a number without trailing zeros: 16 not 16.0, but
// 5.5 stays 5.5.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
