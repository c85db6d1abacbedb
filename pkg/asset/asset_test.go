package asset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srunlabs/srun/pkg/srunerr"
	"github.com/srunlabs/srun/pkg/task"
)

func TestPrepareDataURLAsset(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)
	defer m.Close()

	err = m.Prepare(context.Background(), task.AssetMap{
		"hello.txt": "data:text/plain;base64,aGVsbG8=",
	})
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(m.Path(), "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestPrepareUnknownSchemeFails(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)
	defer m.Close()

	err = m.Prepare(context.Background(), task.AssetMap{
		"x": "ftp://example.com/thing",
	})
	require.Error(t, err)

	kind, ok := srunerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, srunerr.Spec, kind)
}

func TestPrepareWritesNestedParentDirectories(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)
	defer m.Close()

	err = m.Prepare(context.Background(), task.AssetMap{
		"nested/dir/file.txt": "data:text/plain;base64,b2s=",
	})
	require.NoError(t, err)

	body, err := os.ReadFile(filepath.Join(m.Path(), "nested", "dir", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestCacheStaleWithoutTTLIsNeverStale(t *testing.T) {
	m, err := New(Options{CacheDir: t.TempDir()})
	require.NoError(t, err)
	defer m.Close()

	assert.False(t, m.cacheStale("https://example.com/asset"))
}

func TestCacheStaleBeforeFirstFetchIsStale(t *testing.T) {
	m, err := New(Options{CacheDir: t.TempDir(), CacheTTL: time.Hour})
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.cacheStale("https://example.com/asset"))
}

func TestTouchCacheEntryClearsStaleness(t *testing.T) {
	m, err := New(Options{CacheDir: t.TempDir(), CacheTTL: time.Hour})
	require.NoError(t, err)
	defer m.Close()

	m.touchCacheEntry("https://example.com/asset")
	assert.False(t, m.cacheStale("https://example.com/asset"))
}

func TestCacheStaleRespectsTTLExpiry(t *testing.T) {
	m, err := New(Options{CacheDir: t.TempDir(), CacheTTL: time.Millisecond})
	require.NoError(t, err)
	defer m.Close()

	m.touchCacheEntry("https://example.com/asset")
	time.Sleep(5 * time.Millisecond)
	assert.True(t, m.cacheStale("https://example.com/asset"))
}

func TestCloseIsIdempotent(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = os.Stat(m.Path())
	assert.True(t, os.IsNotExist(err))
}
