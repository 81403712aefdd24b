package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	metaFile     = "description.json"
	originalFile = "original"
)

// FileSystemStore keeps each description in its own directory under the root
type FileSystemStore struct {
	rootDir string
}

// NewFileSystemStore creates a new filesystem-based store
func NewFileSystemStore(rootDir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root directory: %w", err)
	}
	return &FileSystemStore{rootDir: rootDir}, nil
}

// Put implements Store.Put
func (s *FileSystemStore) Put(ctx context.Context, d *Description) error {
	if err := Prepare(d); err != nil {
		return err
	}
	dir := filepath.Join(s.rootDir, d.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create description directory: %w", err)
	}

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal description: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, originalFile), d.Original, 0644); err != nil {
		return fmt.Errorf("failed to write original description: %w", err)
	}
	// metadata last: a directory without it is not listed
	if err := os.WriteFile(filepath.Join(dir, metaFile), data, 0644); err != nil {
		return fmt.Errorf("failed to write description file: %w", err)
	}
	return nil
}

// Get implements Store.Get
func (s *FileSystemStore) Get(ctx context.Context, id string) (*Description, error) {
	if err := CheckID(id); err != nil {
		return nil, err
	}
	d, err := s.readMeta(id)
	if err != nil {
		return nil, err
	}
	original, err := os.ReadFile(filepath.Join(s.rootDir, id, originalFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read original description: %w", err)
	}
	d.Original = original
	return d, nil
}

func (s *FileSystemStore) readMeta(id string) (*Description, error) {
	data, err := os.ReadFile(filepath.Join(s.rootDir, id, metaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read description file: %w", err)
	}

	var d Description
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal description: %w", err)
	}
	return &d, nil
}

// List implements Store.List
func (s *FileSystemStore) List(ctx context.Context, limit, offset int) ([]*Description, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read root directory: %w", err)
	}

	var out []*Description
	for _, entry := range entries {
		if !entry.IsDir() || CheckID(entry.Name()) != nil {
			continue
		}
		d, err := s.readMeta(entry.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get description %s: %w", entry.Name(), err)
		}
		out = append(out, d.Summary())
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return Page(out, limit, offset), nil
}

// Delete implements Store.Delete
func (s *FileSystemStore) Delete(ctx context.Context, id string) error {
	if err := CheckID(id); err != nil {
		return err
	}
	dir := filepath.Join(s.rootDir, id)
	if _, err := os.Stat(filepath.Join(dir, metaFile)); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove description: %w", err)
	}
	return nil
}

// Ping implements Store.Ping
func (s *FileSystemStore) Ping(ctx context.Context) error {
	info, err := os.Stat(s.rootDir)
	if err != nil {
		return fmt.Errorf("storage root unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("storage root %s is not a directory", s.rootDir)
	}
	return nil
}

// Close implements Store.Close
func (s *FileSystemStore) Close() error { return nil }

// Page applies limit and offset to list. A limit <= 0 means no limit.
func Page(list []*Description, limit, offset int) []*Description {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return []*Description{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
