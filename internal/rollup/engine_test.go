package rollup

import (
	"testing"

	"github.com/rollup-metrics/rollup/internal/types"
)

// scenario returns the reference descendant set: three children under one
// parent, two done (5 and 8 points), one not done (3 points).
func scenario() []types.Record {
	return []types.Record{
		rec("R-1", true, 5),
		rec("R-2", true, 8),
		rec("R-3", false, 3),
	}
}

func cfgFor(ft types.FormulaType) types.FieldConfig {
	return types.FieldConfig{FormulaType: ft}
}

func TestCompute_Presets(t *testing.T) {
	tests := []struct {
		name      string
		cfg       types.FieldConfig
		wantValue float64
		wantLabel string
		wantColor types.Color
	}{
		{"story point sum", cfgFor(types.FormulaStoryPointSum), 16, "16 SP", types.ColorGreen},
		{"story point average", cfgFor(types.FormulaStoryPointAverage), 5.3, "5.3 SP avg", types.ColorYellow},
		{"percent complete", cfgFor(types.FormulaPercentComplete), 67, "67%", types.ColorYellow},
		{"undone work", cfgFor(types.FormulaUndoneWork), 3, "3 SP left", types.ColorGreen},
		{"child count", cfgFor(types.FormulaChildCount), 3, "3 items", types.ColorGreen},
		{"blocked count", cfgFor(types.FormulaBlockedCount), 0, "0 blocked", types.ColorGreen},
		{
			"custom formula",
			types.FieldConfig{
				FormulaType: types.FormulaCustom,
				Formula:     "IF(percentComplete >= 60, totalStoryPoints, 0)",
			},
			16, "16", types.ColorGreen,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(scenario(), tt.cfg)
			if got.Value != tt.wantValue {
				t.Errorf("Value = %v, want %v", got.Value, tt.wantValue)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("Label = %q, want %q", got.Label, tt.wantLabel)
			}
			if got.Color != tt.wantColor {
				t.Errorf("Color = %q, want %q", got.Color, tt.wantColor)
			}
			if got.FormulaType != tt.cfg.FormulaType {
				t.Errorf("FormulaType = %q, want %q", got.FormulaType, tt.cfg.FormulaType)
			}
			if got.UpdatedAt == "" {
				t.Error("UpdatedAt is empty, want a fresh timestamp")
			}
		})
	}
}

func TestCompute_BlockedCount(t *testing.T) {
	records := []types.Record{
		{Key: "R-1", StatusCategory: types.CategoryOther, StatusName: "Blocked"},
		{Key: "R-2", StatusCategory: types.CategoryOther, StatusName: "BLOCKED"},
		{Key: "R-3", StatusCategory: types.CategoryOther, StatusName: "In Progress"},
		{Key: "R-4", StatusCategory: types.CategoryDone, StatusName: "Done"},
	}
	got := Compute(records, cfgFor(types.FormulaBlockedCount))
	if got.Value != 2 {
		t.Errorf("Value = %v, want 2", got.Value)
	}
	if got.Label != "2 blocked" {
		t.Errorf("Label = %q, want %q", got.Label, "2 blocked")
	}
	// Default thresholds (1, 3): two blocked is yellow.
	if got.Color != types.ColorYellow {
		t.Errorf("Color = %q, want %q", got.Color, types.ColorYellow)
	}
}

func TestCompute_EmptySet(t *testing.T) {
	for _, ft := range []types.FormulaType{
		types.FormulaStoryPointSum,
		types.FormulaStoryPointAverage,
		types.FormulaPercentComplete,
		types.FormulaUndoneWork,
		types.FormulaChildCount,
		types.FormulaBlockedCount,
	} {
		got := Compute(nil, cfgFor(ft))
		if got.Value != 0 {
			t.Errorf("Compute(nil, %s).Value = %v, want 0", ft, got.Value)
		}
	}
}

func TestCompute_ThresholdNormalization(t *testing.T) {
	// (20, 10) and (10, 20) must color identically: storage order of the
	// pair carries no meaning.
	forward := types.FieldConfig{FormulaType: types.FormulaStoryPointSum, Thresholds: &[2]float64{10, 20}}
	reversed := types.FieldConfig{FormulaType: types.FormulaStoryPointSum, Thresholds: &[2]float64{20, 10}}

	for _, points := range []float64{5, 10, 15, 20, 25} {
		records := []types.Record{rec("R-1", false, points)}
		a := Compute(records, forward)
		b := Compute(records, reversed)
		if a.Color != b.Color {
			t.Errorf("points=%v: forward color %q != reversed color %q", points, a.Color, b.Color)
		}
	}
}

func TestCompute_StandardColorBoundaries(t *testing.T) {
	cfg := types.FieldConfig{FormulaType: types.FormulaStoryPointSum, Thresholds: &[2]float64{10, 20}}
	tests := []struct {
		points float64
		want   types.Color
	}{
		{5, types.ColorGreen},
		{10, types.ColorYellow},
		{19, types.ColorYellow},
		{20, types.ColorRed},
		{100, types.ColorRed},
	}
	for _, tt := range tests {
		got := Compute([]types.Record{rec("R-1", false, tt.points)}, cfg)
		if got.Color != tt.want {
			t.Errorf("points=%v: Color = %q, want %q", tt.points, got.Color, tt.want)
		}
	}
}

func TestCompute_PercentCompleteIgnoresThresholds(t *testing.T) {
	// percentComplete is the one formula exempt from configured
	// thresholds: completion is good when high, so it keeps its fixed
	// boundaries no matter what the admin configured.
	cfg := types.FieldConfig{
		FormulaType: types.FormulaPercentComplete,
		Thresholds:  &[2]float64{1, 2},
	}
	tests := []struct {
		records []types.Record
		want    types.Color
	}{
		{[]types.Record{rec("R-1", true, 1)}, types.ColorGreen},                      // 100%
		{[]types.Record{rec("R-1", true, 1), rec("R-2", false, 1)}, types.ColorYellow}, // 50%
		{[]types.Record{rec("R-1", false, 1), rec("R-2", false, 1)}, types.ColorRed},   // 0%
	}
	for _, tt := range tests {
		got := Compute(tt.records, cfg)
		if got.Color != tt.want {
			t.Errorf("Color = %q, want %q", got.Color, tt.want)
		}
	}
}

func TestCompute_AverageEmptySet(t *testing.T) {
	got := Compute(nil, cfgFor(types.FormulaStoryPointAverage))
	if got.Value != 0 {
		t.Errorf("Value = %v, want 0", got.Value)
	}
	if got.Label != "0 SP avg" {
		t.Errorf("Label = %q, want %q", got.Label, "0 SP avg")
	}
}

func TestCompute_CustomFormulaError(t *testing.T) {
	tests := []struct {
		name    string
		formula string
	}{
		{"empty formula", ""},
		{"blank formula", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.FieldConfig{FormulaType: types.FormulaCustom, Formula: tt.formula}
			got := Compute(scenario(), cfg)
			if got.Value != 0 {
				t.Errorf("Value = %v, want 0", got.Value)
			}
			if got.Label != "Formula error" {
				t.Errorf("Label = %q, want %q", got.Label, "Formula error")
			}
			if got.Color != types.ColorRed {
				t.Errorf("Color = %q, want %q", got.Color, types.ColorRed)
			}
		})
	}
}

func TestCompute_CustomMalformedIsStillNumeric(t *testing.T) {
	// A malformed (but non-empty) formula is absorbed by the total
	// evaluator, not reported as a formula error.
	cfg := types.FieldConfig{FormulaType: types.FormulaCustom, Formula: "((("}
	got := Compute(scenario(), cfg)
	if got.Value != 0 {
		t.Errorf("Value = %v, want 0", got.Value)
	}
	if got.Label == "Formula error" {
		t.Errorf("Label = %q, want a numeric label", got.Label)
	}
}

func TestCompute_CustomRounding(t *testing.T) {
	cfg := types.FieldConfig{FormulaType: types.FormulaCustom, Formula: "10 / 3"}
	got := Compute(scenario(), cfg)
	if got.Value != 3.33 {
		t.Errorf("Value = %v, want 3.33", got.Value)
	}
	if got.Label != "3.33" {
		t.Errorf("Label = %q, want %q", got.Label, "3.33")
	}
}

func TestCompute_UnknownFormulaType(t *testing.T) {
	got := Compute(scenario(), types.FieldConfig{FormulaType: "velocity"})
	if got.Value != 0 || got.Label != "N/A" || got.Color != types.ColorGrey {
		t.Errorf("got %+v, want value 0, label N/A, color grey", got)
	}
}
