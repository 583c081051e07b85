package images

import (
	"context"
	"errors"

	"github.com/dofliu/InduSpect/pkg/models"
)

var ErrNotFound = errors.New("image not found")

// Store keeps photo bytes outside the session state.
type Store interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (models.ImageRef, error)
	Get(ctx context.Context, ref models.ImageRef) (models.Image, error)
	Delete(ctx context.Context, ref models.ImageRef) error
}
