package storage

import (
	"context"
	"errors"
	"fmt"
)

// OriginalKey is the blob key of a description's original document
func OriginalKey(id string) string {
	return "descriptions/" + id + "/original"
}

// WithBlobs keeps original documents in a BlobStore and everything else in the
// metadata store
type WithBlobs struct {
	meta  Store
	blobs BlobStore
}

// NewWithBlobs combines a metadata store and a blob store
func NewWithBlobs(meta Store, blobs BlobStore) *WithBlobs {
	return &WithBlobs{meta: meta, blobs: blobs}
}

// Put implements Store.Put. The original is uploaded first so a stored record
// always has its document.
func (s *WithBlobs) Put(ctx context.Context, d *Description) error {
	if err := Prepare(d); err != nil {
		return err
	}
	if err := s.blobs.PutObject(ctx, OriginalKey(d.ID), d.Original, d.ContentType); err != nil {
		return fmt.Errorf("failed to upload original description: %w", err)
	}

	meta := *d
	meta.Original = nil
	if err := s.meta.Put(ctx, &meta); err != nil {
		_ = s.blobs.DeleteObject(ctx, OriginalKey(d.ID))
		return err
	}
	return nil
}

// Get implements Store.Get
func (s *WithBlobs) Get(ctx context.Context, id string) (*Description, error) {
	d, err := s.meta.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	original, err := s.blobs.GetObject(ctx, OriginalKey(id))
	if err != nil {
		return nil, fmt.Errorf("failed to download original description: %w", err)
	}
	d.Original = original
	return d, nil
}

// List implements Store.List
func (s *WithBlobs) List(ctx context.Context, limit, offset int) ([]*Description, error) {
	return s.meta.List(ctx, limit, offset)
}

// Delete implements Store.Delete
func (s *WithBlobs) Delete(ctx context.Context, id string) error {
	if err := s.meta.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.DeleteObject(ctx, OriginalKey(id)); err != nil {
		return fmt.Errorf("failed to delete original description: %w", err)
	}
	return nil
}

// Ping implements Store.Ping
func (s *WithBlobs) Ping(ctx context.Context) error {
	return errors.Join(s.meta.Ping(ctx), s.blobs.Ping(ctx))
}

// Close implements Store.Close
func (s *WithBlobs) Close() error { return s.meta.Close() }
