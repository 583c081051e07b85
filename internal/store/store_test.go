package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testKV exercises the KV contract against any backend.
func testKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "mode")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "mode", []byte(`"CAPTURE"`)))
	require.NoError(t, kv.Set(ctx, "report", []byte(`null`)))

	v, ok, err := kv.Get(ctx, "mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"CAPTURE"`, string(v))

	require.NoError(t, kv.Set(ctx, "mode", []byte(`"REVIEW"`)))
	v, _, _ = kv.Get(ctx, "mode")
	assert.Equal(t, `"REVIEW"`, string(v))

	require.NoError(t, kv.Delete(ctx, "mode"))
	_, ok, _ = kv.Get(ctx, "mode")
	assert.False(t, ok)
	require.NoError(t, kv.Delete(ctx, "mode"))

	require.NoError(t, kv.Clear(ctx))
	_, ok, _ = kv.Get(ctx, "report")
	assert.False(t, ok)
}

func TestMemoryKV(t *testing.T) {
	testKV(t, NewMemory())
}

func TestMemoryKV_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	kv := NewMemory()
	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf))
	buf[0] = 'z'

	v, _, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(v))
}

func TestFileKV(t *testing.T) {
	kv, err := NewFile(t.TempDir())
	require.NoError(t, err)
	testKV(t, kv)
}

func TestFileKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	kv, err := NewFile(dir)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "confirmedRecords", []byte(`[]`)))

	reopened, err := NewFile(dir)
	require.NoError(t, err)
	v, ok, err := reopened.Get(ctx, "confirmedRecords")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", string(v))
}

func TestFileKV_RejectsBadKeys(t *testing.T) {
	kv, err := NewFile(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, kv.Set(context.Background(), "../etc/passwd", []byte("x")))
	_, _, err = kv.Get(context.Background(), "a/b")
	assert.Error(t, err)
}

func TestPostgresKV(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	require.NoError(t, Migrate(dbURL))

	kv, err := NewPostgres(context.Background(), dbURL)
	require.NoError(t, err)
	t.Cleanup(kv.Close)

	testKV(t, kv)
}
