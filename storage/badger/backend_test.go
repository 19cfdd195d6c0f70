package badger

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOpenBackend_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	backend, err := OpenBackend(file, false)
	assert.Error(t, err)
	assert.Nil(t, backend)
}

func TestBackendClose(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)

	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())

	err = backend.WithTx(func(tx *badger.Txn) error { return nil }, false)
	assert.ErrorIs(t, err, badger.ErrDBClosed)
}

func TestBackend_DeletePrefix(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	err = backend.WithTx(func(tx *badger.Txn) error {
		for i := 0; i < 5; i++ {
			if err := tx.Set([]byte(fmt.Sprintf("a:%d", i)), []byte("v")); err != nil {
				return err
			}
		}
		if err := tx.Set([]byte("b:0"), []byte("v")); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	n, err := backend.DeletePrefix([]byte("a:"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = backend.DeletePrefix([]byte("a:"))
	require.NoError(t, err)
	assert.Zero(t, n)

	err = backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get([]byte("b:0"))
		return err
	}, false)
	assert.NoError(t, err, "other prefixes survive")
}
