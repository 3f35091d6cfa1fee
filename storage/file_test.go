package storage_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amorimbar/barpos/core"
	"github.com/amorimbar/barpos/storage"
)

func TestFileSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	stg, err := storage.NewFile(path, nil)
	require.NoError(t, err)
	ctx := context.Background()

	// No prior state: absent, not an error.
	state, err := stg.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state)

	saved := core.DefaultState()
	saved.Cashier.IsOpen = true
	saved.Cashier.CurrentBalance = 145.5
	require.NoError(t, stg.Save(ctx, saved))

	loaded, err := stg.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestFileSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	stg, err := storage.NewFile(path, nil)
	require.NoError(t, err)
	ctx := context.Background()

	first := core.DefaultState()
	require.NoError(t, stg.Save(ctx, first))

	second := core.DefaultState()
	second.Products = second.Products[:1]
	require.NoError(t, stg.Save(ctx, second))

	loaded, err := stg.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded.Products, 1)
}

func TestFileCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	stg, err := storage.NewFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, stg.Save(context.Background(), core.DefaultState()))

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestFileLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	stg, err := storage.NewFile(path, nil)
	require.NoError(t, err)

	_, err = stg.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrCorruptSnapshot)
}

func TestFileRequiresPath(t *testing.T) {
	_, err := storage.NewFile("", nil)
	require.Error(t, err)
}
