package images

import (
	"context"
	"fmt"
	"sync"

	"github.com/dofliu/InduSpect/pkg/models"
)

// MemoryStore keeps photos in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, key string, data []byte, mimeType string) (models.ImageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return models.ImageRef{Key: key, MIMEType: mimeType}, nil
}

func (s *MemoryStore) Get(_ context.Context, ref models.ImageRef) (models.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[ref.Key]
	if !ok {
		return models.Image{}, fmt.Errorf("%w: %s", ErrNotFound, ref.Key)
	}
	return models.Image{Data: append([]byte(nil), data...), MIMEType: ref.MIMEType}, nil
}

func (s *MemoryStore) Delete(_ context.Context, ref models.ImageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref.Key)
	return nil
}

// Len returns the number of stored photos.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
