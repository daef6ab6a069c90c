package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage local file system storage
type LocalStorage struct {
	basePath string
}

// NewLocalStorage create local storage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if basePath == "" {
		basePath = "./data/files"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base path: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save writes through a temp file so readers never see a partial blob
func (s *LocalStorage) Save(key string, data []byte) error {
	filePath := filepath.Join(s.basePath, key)

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), filePath); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Get get file
func (s *LocalStorage) Get(key string) ([]byte, error) {
	filePath := filepath.Join(s.basePath, key)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return data, nil
}

// Exists check if file exists
func (s *LocalStorage) Exists(key string) bool {
	_, err := os.Stat(filepath.Join(s.basePath, key))
	return err == nil
}

// Ping checks the base directory is still reachable
func (s *LocalStorage) Ping(ctx context.Context) error {
	info, err := os.Stat(s.basePath)
	if err != nil {
		return fmt.Errorf("local storage unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("local storage base path %s is not a directory", s.basePath)
	}
	return nil
}
