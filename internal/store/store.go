// Package store provides the key-value persistence boundary for session
// fields. Values are opaque JSON documents; interpreting them, and falling
// back when they are corrupt, is the caller's job.
package store

import "context"

// KV is a flat key-value store.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key.
	Clear(ctx context.Context) error
}
