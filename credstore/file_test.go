package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devmarvs/digibank/config"
)

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")

	first, err := NewFileStore(FileOptions{Path: path})
	require.NoError(t, err)
	require.NoError(t, first.Store(ctx, NewTokenPair("A1", "R1")))

	second, err := NewFileStore(FileOptions{Path: path})
	require.NoError(t, err)
	access, err := second.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "A1", access.Unveil())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"accessToken":"A1","refreshToken":"R1"}`, string(raw))
}

func TestFileStoreHalfPairIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"accessToken":"A1","refreshToken":""}`), 0o600))

	store, err := NewFileStore(FileOptions{Path: path})
	require.NoError(t, err)
	_, err = store.AccessToken(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	store, err := NewFileStore(FileOptions{Path: path})
	require.NoError(t, err)
	_, err = store.AccessToken(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSealedFileWrongKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.json")
	var keyA, keyB [32]byte
	keyB[0] = 1

	sealed, err := NewFileStore(FileOptions{Path: path, SealKey: &keyA})
	require.NoError(t, err)
	require.NoError(t, sealed.Store(ctx, NewTokenPair("A1", "R1")))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "A1")

	other, err := NewFileStore(FileOptions{Path: path, SealKey: &keyB})
	require.NoError(t, err)
	_, err = other.Load(ctx)
	assert.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.CredentialStoreConfig{Driver: config.DriverMemory}, "default", nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	path := filepath.Join(t.TempDir(), "tokens.json")
	store, err = Open(ctx, config.CredentialStoreConfig{Driver: config.DriverFile, Path: path}, "default", nil)
	require.NoError(t, err)
	fileStore, ok := store.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, path, fileStore.Path())

	_, err = Open(ctx, config.CredentialStoreConfig{Driver: config.DriverFile, Path: path, SealKey: "zz"}, "default", nil)
	assert.Error(t, err)

	_, err = Open(ctx, config.CredentialStoreConfig{Driver: "etcd"}, "default", nil)
	assert.Error(t, err)
}
