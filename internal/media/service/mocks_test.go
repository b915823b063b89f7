package service

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/romariotrain/visa-docs/internal/media/models"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) Create(ctx context.Context, media *models.Media) error {
	args := m.Called(ctx, media)
	return args.Error(0)
}

func (m *StoreMock) GetByID(ctx context.Context, id int64) (*models.Media, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) List(ctx context.Context) ([]*models.Media, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) SetPath(ctx context.Context, id int64, path string) (*models.Media, error) {
	args := m.Called(ctx, id, path)
	if v := args.Get(0); v != nil {
		return v.(*models.Media), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type BlobMock struct {
	mock.Mock
}

func (m *BlobMock) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, key, r, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *BlobMock) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *BlobMock) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *BlobMock) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}

// memBlobs is a working blob store with switchable failures.
type memBlobs struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPut  error
	failDel  error
	emptyKey bool
	panicPut bool
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objects: make(map[string][]byte)}
}

func (b *memBlobs) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if b.panicPut {
		panic("disk on fire")
	}
	if b.failPut != nil {
		return "", b.failPut
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = buf.Bytes()
	if b.emptyKey {
		return "", nil
	}
	return key, nil
}

func (b *memBlobs) Exists(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[key]
	return ok, nil
}

func (b *memBlobs) Delete(_ context.Context, key string) error {
	if b.failDel != nil {
		return b.failDel
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

func (b *memBlobs) URL(key string) string {
	return "http://localhost/storage/" + key
}

func (b *memBlobs) has(key string) bool {
	ok, _ := b.Exists(context.Background(), key)
	return ok
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
