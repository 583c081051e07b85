package images

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	info, err := Decode(encodePNG(t, 640, 480))
	require.NoError(t, err)
	assert.Equal(t, 640.0, info.Size.Width)
	assert.Equal(t, 480.0, info.Size.Height)
	assert.Equal(t, "image/png", info.MIMEType)
}

func TestDecode_BMP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 12, 7))))

	info, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "image/bmp", info.MIMEType)
	assert.Equal(t, 12.0, info.Size.Width)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = Decode([]byte("definitely not an image"))
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Put(ctx, "items/a/photo.png", []byte("data"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "items/a/photo.png", ref.Key)

	img, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), img.Data)
	assert.Equal(t, "image/png", img.MIMEType)

	require.NoError(t, s.Delete(ctx, ref))
	require.NoError(t, s.Delete(ctx, ref), "deleting twice is fine")

	_, err = s.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Put(ctx, "../escape", []byte("x"), "image/png")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	ref, err := s.Put(ctx, "k", []byte{1, 2, 3}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())

	img, err := s.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, img.Data)

	require.NoError(t, s.Delete(ctx, ref))
	_, err = s.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
}
