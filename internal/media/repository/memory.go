package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/romariotrain/visa-docs/internal/media/models"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*models.Media
	clock  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		data:  make(map[int64]*models.Media),
		clock: time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, m *models.Media) error {
	if m == nil {
		return models.ErrInvalidArgument
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := r.clock().UTC()
	m.ID = r.nextID
	m.CreatedAt = now
	m.UpdatedAt = now

	r.data[m.ID] = clone(m)
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(m), nil
}

// List returns records in insertion (id) order.
func (r *MemoryRepository) List(ctx context.Context) ([]*models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Media, 0, len(r.data))
	for _, m := range r.data {
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepository) SetPath(ctx context.Context, id int64, path string) (*models.Media, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.data[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	p := path
	m.Path = &p
	m.UpdatedAt = r.clock().UTC()
	return clone(m), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[id]; !ok {
		return models.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// clone keeps callers from mutating stored records, Path included.
func clone(m *models.Media) *models.Media {
	cp := *m
	if m.Path != nil {
		p := *m.Path
		cp.Path = &p
	}
	return &cp
}
