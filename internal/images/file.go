package images

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dofliu/InduSpect/pkg/models"
)

// FileStore keeps photos under a local directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if strings.Contains(key, "..") || clean == "/" {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

// Put writes the photo to disk.
func (s *FileStore) Put(_ context.Context, key string, data []byte, mimeType string) (models.ImageRef, error) {
	p, err := s.path(key)
	if err != nil {
		return models.ImageRef{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return models.ImageRef{}, fmt.Errorf("failed to create image dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return models.ImageRef{}, fmt.Errorf("failed to write image: %w", err)
	}
	return models.ImageRef{Key: key, MIMEType: mimeType}, nil
}

// Get reads the photo back.
func (s *FileStore) Get(_ context.Context, ref models.ImageRef) (models.Image, error) {
	p, err := s.path(ref.Key)
	if err != nil {
		return models.Image{}, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Image{}, fmt.Errorf("%w: %s", ErrNotFound, ref.Key)
	}
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to read image: %w", err)
	}
	return models.Image{Data: data, MIMEType: ref.MIMEType}, nil
}

// Delete removes the photo. Missing files are not an error.
func (s *FileStore) Delete(_ context.Context, ref models.ImageRef) error {
	p, err := s.path(ref.Key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
