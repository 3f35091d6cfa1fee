package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/amorimbar/barpos/core"
)

// File stores the snapshot in a single JSON file. Saves go through a
// temporary file and an atomic rename so a crash mid-write leaves the
// previous snapshot intact.
type File struct {
	path   string
	logger core.Logger
}

// NewFile creates a file-backed Storage at path. The parent directory is
// created if needed.
func NewFile(path string, logger core.Logger) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path is required", core.ErrInvalidInput)
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		}
	}
	return &File{path: path, logger: logger}, nil
}

// Save replaces the snapshot file with the encoded state.
func (f *File) Save(ctx context.Context, state *core.AppState) error {
	data, err := core.EncodeState(state)
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}

	f.logger.Debug("Snapshot saved", map[string]interface{}{
		"path":       f.path,
		"value_size": len(data),
	})
	return nil
}

// Load reads the snapshot file. A missing file means no prior state and
// returns (nil, nil).
func (f *File) Load(ctx context.Context) (*core.AppState, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
	return core.DecodeState(data)
}

var _ core.Storage = (*File)(nil)
