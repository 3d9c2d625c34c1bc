// Package recompute reacts to change notifications: it determines which
// ancestors need their metric recomputed, applies a best-effort debounce,
// and drives the hierarchy walker and aggregation engine to produce and
// persist a result per ancestor.
//
// Each notification is an independent, short-lived unit of work. Target
// keys are processed sequentially to bound pressure on the tree-query
// API; there is no worker pool and no cancellation beyond the caller's
// context.
package recompute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rollup-metrics/rollup/internal/debug"
	"github.com/rollup-metrics/rollup/internal/hierarchy"
	"github.com/rollup-metrics/rollup/internal/rollup"
	"github.com/rollup-metrics/rollup/internal/storage"
	"github.com/rollup-metrics/rollup/internal/types"
)

// DebounceWindow is the span within which repeated recomputation requests
// for the same key are suppressed.
const DebounceWindow = 5 * time.Second

// MirrorProperty is the default tracker property name the metric is
// mirrored to for query-tool consumption.
const MirrorProperty = "rollup-metric"

// Key prefixes in the shared store.
const (
	metricKeyPrefix = "metric:"
	lockKeyPrefix   = "lock:"
)

// PropertyMirror is the optional best-effort external property writer.
// Write failures are logged and swallowed, never propagated.
type PropertyMirror interface {
	WriteProperty(ctx context.Context, key, property string, value []byte) error
}

// Coordinator wires the walker, engine, and stores together for one
// rollup field configuration.
type Coordinator struct {
	walker   *hierarchy.Walker
	store    storage.Store
	mirror   PropertyMirror
	property string
	cfg      types.FieldConfig

	// now is stubbed in tests.
	now func() time.Time
}

// New creates a coordinator. The config is defaulted and captured by
// value: there is no ambient mutable configuration.
func New(walker *hierarchy.Walker, store storage.Store, cfg types.FieldConfig) *Coordinator {
	cfg.ApplyDefaults()
	return &Coordinator{
		walker: walker,
		store:  store,
		cfg:    cfg,
		now:    time.Now,
	}
}

// SetMirror attaches the optional property mirror. An empty property
// name selects the default.
func (c *Coordinator) SetMirror(m PropertyMirror, property string) {
	if property == "" {
		property = MirrorProperty
	}
	c.mirror = m
	c.property = property
}

// HandleChange processes one change notification. The target set is the
// changed key plus its ancestors up to the configured depth; each target
// is debounce-checked and recomputed independently, in order. Errors from
// individual targets are joined, not short-circuited: one failing
// ancestor must not starve the rest.
func (c *Coordinator) HandleChange(ctx context.Context, changedKey string) error {
	targets := append([]string{changedKey}, c.walker.Ancestors(ctx, changedKey, c.cfg.MaxDepth)...)
	debug.Logf("recompute: change on %s, targets %v\n", changedKey, targets)

	var errs []error
	for _, key := range targets {
		if !c.shouldRecompute(ctx, key) {
			debug.Logf("recompute: %s debounced\n", key)
			continue
		}
		if err := c.Recompute(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("recompute %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// shouldRecompute applies the debounce policy for one key: skip when a
// prior attempt landed within the window, then record this attempt.
//
// The check-then-write sequence is not atomic — the store exposes no
// compare-and-set — so two concurrent notifications can both pass the
// check and recompute twice. That race is accepted and bounded: the
// window is best-effort dedup, not a correctness guarantee. A store
// failure on either step fails open; availability beats strict dedup.
func (c *Coordinator) shouldRecompute(ctx context.Context, key string) bool {
	lockKey := lockKeyPrefix + key
	now := c.now()

	raw, err := c.store.Get(ctx, lockKey)
	if err == nil {
		if ms, perr := strconv.ParseInt(string(raw), 10, 64); perr == nil {
			if now.Sub(time.UnixMilli(ms)) < DebounceWindow {
				return false
			}
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		debug.Logf("recompute: lock read for %s failed open: %v\n", key, err)
	}

	if err := c.store.Set(ctx, lockKey, []byte(strconv.FormatInt(now.UnixMilli(), 10))); err != nil {
		debug.Logf("recompute: lock write for %s failed open: %v\n", key, err)
	}
	return true
}

// Recompute fetches the key's descendants and stores the aggregated
// metric. An empty descendant set tombstones any previously stored
// metric: a parent that lost all children has no metric. The primary
// store write is the one operation whose failure propagates; the mirror
// write is best-effort.
func (c *Coordinator) Recompute(ctx context.Context, key string) error {
	records := c.walker.Descendants(ctx, key, c.cfg.MaxDepth, c.cfg.PointsField)
	metricKey := metricKeyPrefix + key

	if len(records) == 0 {
		if err := c.store.Delete(ctx, metricKey); err != nil {
			return fmt.Errorf("tombstone: %w", err)
		}
		debug.Logf("recompute: %s has no descendants, metric tombstoned\n", key)
		return nil
	}

	result := rollup.Compute(records, c.cfg)
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal metric: %w", err)
	}

	if err := c.store.Set(ctx, metricKey, data); err != nil {
		return fmt.Errorf("store metric: %w", err)
	}

	if c.mirror != nil {
		if err := c.mirror.WriteProperty(ctx, key, c.property, data); err != nil {
			debug.Logf("recompute: mirror write for %s: %v\n", key, err)
		}
	}
	return nil
}

// LoadMetric reads the stored metric for a key. Returns
// storage.ErrNotFound when no metric is stored (absent or tombstoned).
func LoadMetric(ctx context.Context, store storage.Store, key string) (*types.MetricResult, error) {
	data, err := store.Get(ctx, metricKeyPrefix+key)
	if err != nil {
		return nil, err
	}
	var result types.MetricResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode metric for %s: %w", key, err)
	}
	return &result, nil
}
