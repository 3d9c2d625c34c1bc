// Package rollup provides a minimal public API for embedding the metric
// engine in other Go programs.
//
// It exports only the essential types and entry points: the record and
// config types, the aggregation engine, and the store constructors. The
// CLI under cmd/rollup is the full-featured surface.
package rollup

import (
	"github.com/rollup-metrics/rollup/internal/rollup"
	"github.com/rollup-metrics/rollup/internal/storage"
	"github.com/rollup-metrics/rollup/internal/storage/memory"
	"github.com/rollup-metrics/rollup/internal/storage/sqlite"
	"github.com/rollup-metrics/rollup/internal/types"
)

// Core types for working with records and metrics
type (
	Record       = types.Record
	FieldConfig  = types.FieldConfig
	FormulaType  = types.FormulaType
	MetricResult = types.MetricResult
	Color        = types.Color
)

// FormulaType constants
const (
	StoryPointSum     = types.FormulaStoryPointSum
	StoryPointAverage = types.FormulaStoryPointAverage
	PercentComplete   = types.FormulaPercentComplete
	UndoneWork        = types.FormulaUndoneWork
	ChildCount        = types.FormulaChildCount
	BlockedCount      = types.FormulaBlockedCount
	Custom            = types.FormulaCustom
)

// Color constants
const (
	Green  = types.ColorGreen
	Yellow = types.ColorYellow
	Red    = types.ColorRed
	Blue   = types.ColorBlue
	Grey   = types.ColorGrey
)

// Store is the metric key-value store interface.
type Store = storage.Store

// ErrNotFound is returned by Store.Get for missing keys.
var ErrNotFound = storage.ErrNotFound

// Compute aggregates a descendant set into a colored metric.
func Compute(records []Record, cfg FieldConfig) MetricResult {
	return rollup.Compute(records, cfg)
}

// NewSQLiteStore opens a persistent metric store at the given path.
func NewSQLiteStore(path string) (Store, error) {
	return sqlite.New(path)
}

// NewMemoryStore creates an in-memory metric store, useful for tests.
func NewMemoryStore() Store {
	return memory.New()
}
