package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/index-compare/internal/config"
	"github.com/yourorg/index-compare/internal/model"
)

// LocalStorage implements the Storage interface for local filesystem
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new LocalStorage
func NewLocalStorage(cfg *config.LocalStorageConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalStorage{
		basePath: cfg.BasePath,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

func (s *LocalStorage) path(id string) string {
	return filepath.Join(s.basePath, id+pngExt)
}

// Store writes the image under a new id
func (s *LocalStorage) Store(ctx context.Context, data []byte) (*model.ChartSnapshot, error) {
	id := uuid.New().String()
	filePath := s.path(id)

	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	return &model.ChartSnapshot{
		ID:          id,
		URL:         fmt.Sprintf("%s/%s", s.baseURL, id),
		StoragePath: filePath,
		StorageType: "local",
		Size:        int64(len(data)),
		CreatedAt:   time.Now(),
	}, nil
}

// Get opens a stored snapshot
func (s *LocalStorage) Get(ctx context.Context, id string) (io.ReadCloser, *model.ChartSnapshot, error) {
	if err := validID(id); err != nil {
		return nil, nil, err
	}

	filePath := s.path(id)
	info, err := os.Stat(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open snapshot: %w", err)
	}

	return file, &model.ChartSnapshot{
		ID:          id,
		URL:         fmt.Sprintf("%s/%s", s.baseURL, id),
		StoragePath: filePath,
		StorageType: "local",
		Size:        info.Size(),
		CreatedAt:   info.ModTime(),
	}, nil
}

// Delete removes a stored snapshot
func (s *LocalStorage) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
