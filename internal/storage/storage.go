// Package storage keeps rendered chart snapshots on the local filesystem or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/yourorg/index-compare/internal/config"
	"github.com/yourorg/index-compare/internal/model"
)

// ErrNotFound is returned when no snapshot exists for an id
var ErrNotFound = errors.New("snapshot not found")

const pngExt = ".png"

// Storage defines the chart snapshot storage operations
type Storage interface {
	// Store saves a PNG image and returns metadata about the stored snapshot
	Store(ctx context.Context, data []byte) (*model.ChartSnapshot, error)

	// Get retrieves a snapshot by id
	Get(ctx context.Context, id string) (io.ReadCloser, *model.ChartSnapshot, error)

	// Delete removes a snapshot
	Delete(ctx context.Context, id string) error
}

// NewStorage creates a storage implementation based on the configuration
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "s3":
		return NewS3Storage(&cfg.S3)
	default:
		return NewLocalStorage(&cfg.Local)
	}
}

// validID rejects anything that is not a generated snapshot id, so ids can be
// used directly in paths and object keys
func validID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
