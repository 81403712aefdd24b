package storage

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps descriptions in process memory. Contents are lost on exit.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Description
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]*Description)}
}

func clone(d *Description) *Description {
	c := *d
	c.Original = append([]byte(nil), d.Original...)
	c.Compiled = append([]byte(nil), d.Compiled...)
	return &c
}

// Put implements Store.Put
func (s *MemoryStore) Put(ctx context.Context, d *Description) error {
	if err := Prepare(d); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[d.ID] = clone(d)
	return nil
}

// Get implements Store.Get
func (s *MemoryStore) Get(ctx context.Context, id string) (*Description, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(d), nil
}

// List implements Store.List
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]*Description, error) {
	s.mu.RLock()
	out := make([]*Description, 0, len(s.items))
	for _, d := range s.items {
		out = append(out, d.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return Page(out, limit, offset), nil
}

// Delete implements Store.Delete
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := CheckID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// Ping implements Store.Ping
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close implements Store.Close
func (s *MemoryStore) Close() error { return nil }
