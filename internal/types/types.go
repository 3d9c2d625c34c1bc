// Package types defines core data structures for the rollup metric engine.
package types

import (
	"fmt"
	"strings"
)

// StatusCategory is the coarse done/not-done classification a tracker
// attaches to each record. Anything that is not done is "other".
type StatusCategory string

const (
	CategoryDone  StatusCategory = "done"
	CategoryOther StatusCategory = "other"
)

// Record is a single issue as seen by the aggregation core. Records are
// read-only: the core never writes back to them. Fields holds the raw
// field values returned by the tracker; everything except the configured
// points field is opaque.
type Record struct {
	Key            string                 `json:"key"`
	StatusCategory StatusCategory         `json:"statusCategory"`
	StatusName     string                 `json:"statusName,omitempty"`
	Fields         map[string]interface{} `json:"fields,omitempty"`
}

// Points returns the numeric value of the named field. Absent or
// non-numeric values count as zero, so a partially configured project
// never breaks aggregation.
func (r *Record) Points(field string) float64 {
	if r.Fields == nil {
		return 0
	}
	switch v := r.Fields[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Done reports whether the record's status category is done.
func (r *Record) Done() bool {
	return r.StatusCategory == CategoryDone
}

// FormulaType selects how descendant records are aggregated into a value.
type FormulaType string

const (
	FormulaStoryPointSum     FormulaType = "storyPointSum"
	FormulaStoryPointAverage FormulaType = "storyPointAverage"
	FormulaPercentComplete   FormulaType = "percentComplete"
	FormulaUndoneWork        FormulaType = "undoneWork"
	FormulaChildCount        FormulaType = "childCount"
	FormulaBlockedCount      FormulaType = "blockedCount"
	FormulaCustom            FormulaType = "custom"
)

// Valid returns true if ft is a known formula type.
func (ft FormulaType) Valid() bool {
	switch ft {
	case FormulaStoryPointSum, FormulaStoryPointAverage, FormulaPercentComplete,
		FormulaUndoneWork, FormulaChildCount, FormulaBlockedCount, FormulaCustom:
		return true
	}
	return false
}

// Color is the threshold-driven display color of a metric. The enum is a
// stable contract with the badge and list UIs; blue is reserved for
// in-progress display states those UIs manage themselves.
type Color string

const (
	ColorGreen  Color = "green"
	ColorYellow Color = "yellow"
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGrey   Color = "grey"
)

// Depth bounds for hierarchy traversal.
const (
	MinDepth     = 1
	MaxDepth     = 5
	DefaultDepth = 3
)

// DefaultPointsField is the field summed when no points field is configured.
const DefaultPointsField = "story_points"

// FieldConfig is the admin-supplied configuration for one rollup field.
type FieldConfig struct {
	FormulaType FormulaType `json:"formulaType" toml:"formula_type" yaml:"formula_type"`
	// Formula is the custom expression; required iff FormulaType is custom.
	Formula string `json:"formula,omitempty" toml:"formula,omitempty" yaml:"formula,omitempty"`
	// Thresholds is the (t1, t2) color boundary pair. Order is not
	// significant: the engine normalizes to (low, high) at use time.
	Thresholds  *[2]float64 `json:"thresholds,omitempty" toml:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	MaxDepth    int         `json:"maxDepth,omitempty" toml:"max_depth,omitempty" yaml:"max_depth,omitempty"`
	PointsField string      `json:"pointsField,omitempty" toml:"points_field,omitempty" yaml:"points_field,omitempty"`
}

// DefaultFieldConfig returns the configuration used when none is stored.
func DefaultFieldConfig() FieldConfig {
	return FieldConfig{
		FormulaType: FormulaStoryPointSum,
		MaxDepth:    DefaultDepth,
		PointsField: DefaultPointsField,
	}
}

// ApplyDefaults fills unset fields in place: formula type, points field,
// and depth (clamped into the legal range).
func (c *FieldConfig) ApplyDefaults() {
	if c.FormulaType == "" {
		c.FormulaType = FormulaStoryPointSum
	}
	if c.PointsField == "" {
		c.PointsField = DefaultPointsField
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = DefaultDepth
	}
	if c.MaxDepth < MinDepth {
		c.MaxDepth = MinDepth
	}
	if c.MaxDepth > MaxDepth {
		c.MaxDepth = MaxDepth
	}
}

// Validate checks the configuration for errors that should be reported to
// the admin rather than silently defaulted.
func (c *FieldConfig) Validate() error {
	if !c.FormulaType.Valid() {
		return fmt.Errorf("unknown formula type %q", c.FormulaType)
	}
	if c.FormulaType == FormulaCustom && strings.TrimSpace(c.Formula) == "" {
		return fmt.Errorf("formula type %q requires a formula", FormulaCustom)
	}
	if c.MaxDepth != 0 && (c.MaxDepth < MinDepth || c.MaxDepth > MaxDepth) {
		return fmt.Errorf("max depth %d out of range [%d, %d]", c.MaxDepth, MinDepth, MaxDepth)
	}
	return nil
}

// MetricResult is the computed, color-coded value stored per parent and
// mirrored to the tracker. Field names and the color enum are a stable
// JSON contract consumed verbatim by the badge and list UIs.
type MetricResult struct {
	Value       float64     `json:"value"`
	Label       string      `json:"label"`
	Color       Color       `json:"color"`
	FormulaType FormulaType `json:"formulaType"`
	UpdatedAt   string      `json:"updatedAt"`
}
