// Package hierarchy walks issue trees through an external paginated
// tree-query source, collecting descendants downward and ancestor keys
// upward.
package hierarchy

import (
	"context"

	"github.com/rollup-metrics/rollup/internal/debug"
	"github.com/rollup-metrics/rollup/internal/types"
)

// Page is one page of children reported by a TreeSource. Total is the
// source-reported number of children for the queried parent, across all
// pages.
type Page struct {
	Records []types.Record
	Total   int
}

// TreeSource is the external tree-query collaborator. Implementations
// page results however the backing API dictates; the walker keeps asking
// from startAt until it has Total records or a fetch fails.
type TreeSource interface {
	// FetchChildren returns the direct children of parentKey starting at
	// the given offset. pointsField names the numeric field to include on
	// each record.
	FetchChildren(ctx context.Context, parentKey, pointsField string, startAt int) (*Page, error)

	// FetchParentKey returns the parent of key, or "" for a root.
	FetchParentKey(ctx context.Context, key string) (string, error)
}

// Walker traverses hierarchies depth-first with a depth bound and a
// cycle guard.
type Walker struct {
	source TreeSource
}

// NewWalker creates a walker over the given tree source.
func NewWalker(source TreeSource) *Walker {
	return &Walker{source: source}
}

// Descendants collects every record reachable downward from rootKey
// within maxDepth levels. Depth 1 is the direct children of the root.
//
// A visited set spans the whole call: the source hierarchy should be
// acyclic, but reparented or concurrently mutated data can form a cycle,
// and a key already seen is never re-fetched or re-emitted. A failed page
// fetch stops pagination for that parent only; the traversal proceeds
// with whatever was collected. Partial results are the documented policy,
// not a failure.
func (w *Walker) Descendants(ctx context.Context, rootKey string, maxDepth int, pointsField string) []types.Record {
	visited := map[string]bool{rootKey: true}
	var out []types.Record
	w.collect(ctx, rootKey, 1, maxDepth, pointsField, visited, &out)
	return out
}

func (w *Walker) collect(ctx context.Context, parentKey string, depth, maxDepth int, pointsField string, visited map[string]bool, out *[]types.Record) {
	if depth > maxDepth {
		return
	}
	for _, child := range w.fetchAllChildren(ctx, parentKey, pointsField) {
		if visited[child.Key] {
			continue
		}
		visited[child.Key] = true
		*out = append(*out, child)
		w.collect(ctx, child.Key, depth+1, maxDepth, pointsField, visited, out)
	}
}

// fetchAllChildren pages through the source until the reported total is
// reached. On a fetch error it returns what it has.
func (w *Walker) fetchAllChildren(ctx context.Context, parentKey, pointsField string) []types.Record {
	var all []types.Record
	startAt := 0
	for {
		page, err := w.source.FetchChildren(ctx, parentKey, pointsField, startAt)
		if err != nil {
			debug.Logf("hierarchy: fetch children of %s at offset %d: %v\n", parentKey, startAt, err)
			return all
		}
		all = append(all, page.Records...)
		// An empty page before the reported total means the source is
		// done regardless; avoid spinning on a lying Total.
		if len(page.Records) == 0 || len(all) >= page.Total {
			return all
		}
		startAt += len(page.Records)
	}
}

// Ancestors walks single-parent links upward from leafKey and returns the
// ancestor keys in order, closest first. The walk stops at a record with
// no parent, after maxDepth steps, or on a lookup failure (partial chain,
// same policy as Descendants). A seen-set guards against parent-link
// cycles.
func (w *Walker) Ancestors(ctx context.Context, leafKey string, maxDepth int) []string {
	seen := map[string]bool{leafKey: true}
	var out []string
	current := leafKey
	for step := 0; step < maxDepth; step++ {
		parent, err := w.source.FetchParentKey(ctx, current)
		if err != nil {
			debug.Logf("hierarchy: fetch parent of %s: %v\n", current, err)
			break
		}
		if parent == "" || seen[parent] {
			break
		}
		seen[parent] = true
		out = append(out, parent)
		current = parent
	}
	return out
}
