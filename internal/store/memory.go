package store

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryKV keeps values in process memory. Nothing expires.
type MemoryKV struct {
	c *gocache.Cache
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryKV {
	return &MemoryKV{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b := v.([]byte)
	return append([]byte(nil), b...), true, nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.c.Set(key, append([]byte(nil), value...), gocache.NoExpiration)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

func (m *MemoryKV) Clear(context.Context) error {
	m.c.Flush()
	return nil
}
