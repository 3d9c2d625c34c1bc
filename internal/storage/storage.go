// Package storage provides the key-value store contract shared by the
// recompute coordinator and its backends.
//
// The concrete implementations live in the memory and sqlite sub-packages.
// The store holds metric results and debounce lock timestamps under
// separate key prefixes; it deliberately exposes no transactions and no
// compare-and-set, matching what the hosting platforms actually provide.
// Callers must not assume check-then-write sequences are atomic.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("not found")

// Store is a flat key-value store. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
