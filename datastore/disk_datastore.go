package datastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

type (
	// DiskDataStore writes to the local filesystem, paths are used as given
	DiskDataStore struct{}
)

func NewDiskDataStore() *DiskDataStore {
	return &DiskDataStore{}
}

func (dds *DiskDataStore) IsFileStore() bool {
	return true
}

func (dds *DiskDataStore) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error in os.Stat: %w", err)
	}
	return true, nil
}

func (dds *DiskDataStore) Mkdir(_ context.Context, path string) error {
	err := os.MkdirAll(path, 0o755)
	if err != nil {
		return fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	logger.Debug().Str("path", path).Msg("created directory")
	return nil
}

func (dds *DiskDataStore) Create(_ context.Context, path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("error in os.Create: %w", err)
	}
	return f, nil
}

func (dds *DiskDataStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error in os.Open: %w", err)
	}
	return f, nil
}
