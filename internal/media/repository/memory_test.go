package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romariotrain/visa-docs/internal/media/domain"
	"github.com/romariotrain/visa-docs/internal/media/models"
)

func newTestRepo() *MemoryRepository {
	r := NewMemoryRepository()
	fixed := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	r.clock = func() time.Time { return fixed }
	return r
}

func TestMemoryRepository_CreateAssignsIDAndTimestamps(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()

	first := &models.Media{OriginalName: "a.jpg", Category: domain.Photo}
	second := &models.Media{OriginalName: "b.pdf", Category: domain.Visa}
	require.NoError(t, r.Create(ctx, first))
	require.NoError(t, r.Create(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)
	assert.Nil(t, first.Path)
}

func TestMemoryRepository_CreateNil(t *testing.T) {
	err := newTestRepo().Create(context.Background(), nil)
	require.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestMemoryRepository_SetPathAndGet(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()

	m := &models.Media{OriginalName: "a.jpg", Category: domain.Photo}
	require.NoError(t, r.Create(ctx, m))

	updated, err := r.SetPath(ctx, m.ID, "media/1/x.jpg")
	require.NoError(t, err)
	require.NotNil(t, updated.Path)
	assert.Equal(t, "media/1/x.jpg", *updated.Path)

	got, err := r.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "media/1/x.jpg", got.PathValue())

	// Mutating the returned copy must not leak into the store.
	*got.Path = "tampered"
	again, err := r.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "media/1/x.jpg", again.PathValue())
}

func TestMemoryRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()

	_, err := r.GetByID(ctx, 42)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = r.SetPath(ctx, 42, "k")
	require.ErrorIs(t, err, models.ErrNotFound)

	require.ErrorIs(t, r.Delete(ctx, 42), models.ErrNotFound)
}

func TestMemoryRepository_ListInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo()

	for _, c := range []domain.Category{domain.Passport, domain.Visa, domain.Photo, domain.Passport} {
		require.NoError(t, r.Create(ctx, &models.Media{Category: c}))
	}
	require.NoError(t, r.Delete(ctx, 2))

	got, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)
	assert.Equal(t, int64(4), got[2].ID)
}

func TestMemoryRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestRepo().Create(ctx, &models.Media{})
	require.ErrorIs(t, err, context.Canceled)
}
