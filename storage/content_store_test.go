package storage

import (
	"context"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"meta-anchor/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBlobStore(t *testing.T) (*BlobContentStore, string) {
	t.Helper()
	dir := t.TempDir()
	local, err := NewLocalStorage(dir)
	require.NoError(t, err)
	return NewBlobContentStore(local, "local", "content/"), dir
}

func TestBlobContentStoreRoundTrip(t *testing.T) {
	store, _ := newBlobStore(t)
	ctx := context.Background()

	random := make([]byte, 4096)
	_, err := rand.Read(random)
	require.NoError(t, err)

	payloads := [][]byte{
		[]byte(`{"x":1}`),
		{},
		{0x00, 0xff, 0x10},
		random,
	}
	for _, p := range payloads {
		fp, err := store.Put(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, BlobFingerprint(p), fp)

		got, err := store.Get(ctx, fp)
		require.NoError(t, err)
		assert.Equal(t, len(p), len(got))
		assert.Equal(t, string(p), string(got))
	}
}

func TestBlobContentStoreIdenticalContent(t *testing.T) {
	store, _ := newBlobStore(t)
	ctx := context.Background()

	a, err := store.Put(ctx, []byte("same"))
	require.NoError(t, err)
	b, err := store.Put(ctx, []byte("same"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBlobContentStoreNotFound(t *testing.T) {
	store, _ := newBlobStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, BlobFingerprint([]byte("never stored")))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, common.ErrNotFound)

	for _, bad := range []Fingerprint{"", "../../etc/passwd", "zz", Fingerprint(make([]byte, 64))} {
		_, err := store.Get(ctx, bad)
		assert.ErrorIs(t, err, ErrNotFound, "fingerprint %q", bad)
	}
}

func TestBlobContentStoreID(t *testing.T) {
	store, dir := newBlobStore(t)
	ctx := context.Background()

	id, err := store.ID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "blob:local", id)

	require.NoError(t, os.RemoveAll(dir))
	_, err = store.ID(ctx)
	assert.Error(t, err)
}

func TestLocalStorageOverwrite(t *testing.T) {
	dir := t.TempDir()
	local, err := NewLocalStorage(dir)
	require.NoError(t, err)

	require.NoError(t, local.Save("a/b.bin", []byte("one")))
	require.NoError(t, local.Save("a/b.bin", []byte("two")))
	got, err := local.Get("a/b.bin")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "a"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	assert.True(t, local.Exists("a/b.bin"))
	assert.False(t, local.Exists("a/c.bin"))

	_, err = local.Get("a/c.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}
