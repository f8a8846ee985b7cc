// Package cache keeps results of external AI calls keyed by their exact input.
package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
)

// DefaultMaxEntries bounds in-memory caches when no size is configured.
const DefaultMaxEntries = 512

// Cache stores values by key. Implementations never return errors: a cache
// that cannot be reached behaves like an empty one.
type Cache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V)
}

// Key builds a fixed-size key from the ordered parts.
func Key(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return fmt.Sprintf("%x", sum[:])
}

// Nop is a cache that never stores anything.
type Nop[V any] struct{}

func (Nop[V]) Get(context.Context, string) (V, bool) {
	var zero V
	return zero, false
}

func (Nop[V]) Set(context.Context, string, V) {}
