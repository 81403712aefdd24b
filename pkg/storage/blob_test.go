package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemoryBlobs() *memoryBlobs {
	return &memoryBlobs{objects: make(map[string][]byte)}
}

func (m *memoryBlobs) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *memoryBlobs) GetObject(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memoryBlobs) DeleteObject(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryBlobs) Ping(ctx context.Context) error { return nil }

func TestWithBlobs(t *testing.T) {
	storeContract(t, NewWithBlobs(NewMemoryStore(), newMemoryBlobs()))
}

func TestWithBlobs_OriginalLivesInBlobStore(t *testing.T) {
	ctx := context.Background()
	meta := NewMemoryStore()
	blobs := newMemoryBlobs()
	store := NewWithBlobs(meta, blobs)

	d := newDescription("Pets")
	require.NoError(t, store.Put(ctx, d))

	assert.Equal(t, d.Original, blobs.objects[OriginalKey(d.ID)])
	raw, err := meta.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Empty(t, raw.Original)
}

func TestWithBlobs_UploadFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	meta := NewMemoryStore()
	blobs := newMemoryBlobs()
	blobs.putErr = errors.New("bucket gone")
	store := NewWithBlobs(meta, blobs)

	require.Error(t, store.Put(ctx, newDescription("Pets")))
	list, err := meta.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}
