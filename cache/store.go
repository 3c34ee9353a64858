// Package cache persists order search results so a melody is only analyzed
// once. Values live in a small key-value store: badger on disk, or a map
// in tests and offline runs.
package cache

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("cache: not found")

// Key is a hierarchical path, e.g. {"order", "<fingerprint>"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, ":")
}

func (k Key) encode() []byte {
	return []byte(k.String())
}

// Store is a minimal key-value store.
type Store interface {
	// Get returns ErrNotFound for missing keys.
	Get(ctx context.Context, key Key) ([]byte, error)
	Set(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, key Key) error
	Close() error
}
