// Package rollup aggregates descendant records into a single computed,
// color-coded metric per parent.
package rollup

import (
	"math"

	"github.com/rollup-metrics/rollup/internal/types"
)

// FormulaContext is the immutable aggregate snapshot a formula evaluates
// against. Invariants: DoneCount + UndoneCount == ChildCount, and
// PercentComplete is round(DoneCount / ChildCount * 100), or 0 for an
// empty set.
type FormulaContext struct {
	ChildCount      int
	TotalPoints     float64
	DoneCount       int
	UndoneCount     int
	RemainingPoints float64
	PercentComplete int
}

// BuildContext reduces a descendant set into named aggregates. Pure
// function: non-numeric or absent points values count as 0, and there is
// no failure mode.
func BuildContext(records []types.Record, pointsField string) FormulaContext {
	var ctx FormulaContext
	ctx.ChildCount = len(records)

	for i := range records {
		pts := records[i].Points(pointsField)
		ctx.TotalPoints += pts
		if records[i].Done() {
			ctx.DoneCount++
		} else {
			ctx.UndoneCount++
			ctx.RemainingPoints += pts
		}
	}

	if ctx.ChildCount > 0 {
		ctx.PercentComplete = int(math.Round(float64(ctx.DoneCount) / float64(ctx.ChildCount) * 100))
	}
	return ctx
}

// Variables returns the closed variable set exposed to custom formulas.
// Keys are lower-cased; the evaluator looks names up case-insensitively.
func (c FormulaContext) Variables() map[string]float64 {
	return map[string]float64{
		"totalstorypoints": c.TotalPoints,
		"donecount":        float64(c.DoneCount),
		"undonecount":      float64(c.UndoneCount),
		"childcount":       float64(c.ChildCount),
		"remainingpoints":  c.RemainingPoints,
		"percentcomplete":  float64(c.PercentComplete),
	}
}
