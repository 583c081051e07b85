// Package images decodes captured photos and stores them as blobs that
// checklist items reference by key.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dofliu/InduSpect/pkg/geometry"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrEmpty = errors.New("image is empty")

var mimeTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// Info is what capture needs from a photo header.
type Info struct {
	Size     geometry.Size
	MIMEType string
}

// Decode reads the image header and reports its native size and MIME type.
func Decode(data []byte) (Info, error) {
	if len(data) == 0 {
		return Info{}, ErrEmpty
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("failed to decode image: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("failed to decode image: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	mime, ok := mimeTypes[format]
	if !ok {
		mime = "image/" + format
	}
	return Info{
		Size:     geometry.Size{Width: float64(cfg.Width), Height: float64(cfg.Height)},
		MIMEType: mime,
	}, nil
}
