package repository

import (
	"context"
	"io"

	"github.com/romariotrain/visa-docs/internal/media/models"
)

// MediaRepository is the Record Store. Create assigns ID and timestamps.
// Delete and SetPath return models.ErrNotFound for unknown ids.
type MediaRepository interface {
	Create(ctx context.Context, m *models.Media) error
	GetByID(ctx context.Context, id int64) (*models.Media, error)
	List(ctx context.Context) ([]*models.Media, error)
	SetPath(ctx context.Context, id int64, path string) (*models.Media, error)
	Delete(ctx context.Context, id int64) error
}

// BlobStore is key-addressed file storage. Put returns the key the content
// was stored under; Delete of a missing key is not an error.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
