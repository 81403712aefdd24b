// Package sqlstore keeps descriptions in PostgreSQL or SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/platinummonkey/apicatalog/pkg/storage"
)

// Store implements storage.Store on database/sql
type Store struct {
	dialect Dialect
	conns   *connections
}

// Open connects to the primary at dsn and to any replicas in opts, then
// creates the schema
func Open(ctx context.Context, d Dialect, dsn string, opts Options) (*Store, error) {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.MaxConns == 0 {
		opts.MaxConns = DefaultOptions().MaxConns
	}

	primary, err := openPool(ctx, d, dsn, opts.MaxConns, opts)
	if err != nil {
		return nil, err
	}
	conns := &connections{primary: primary}

	// replicas are sized at half the primary and skipped when unreachable
	replicaConns := max(opts.MaxConns/2, 2)
	for _, url := range opts.ReplicaURLs {
		replica, err := openPool(ctx, d, url, replicaConns, opts)
		if err != nil {
			continue
		}
		conns.replicas = append(conns.replicas, replica)
	}

	s := &Store{dialect: d, conns: conns}
	if err := s.Migrate(ctx); err != nil {
		conns.close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database without replicas. The schema is not created.
func New(db *sql.DB, d Dialect) *Store {
	return &Store{dialect: d, conns: &connections{primary: db}}
}

// Replicas returns the number of read replicas in use
func (s *Store) Replicas() int { return len(s.conns.replicas) }

// Migrate creates the descriptions table when missing
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.conns.primary.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// Put implements storage.Store.Put. An existing row with the same id is replaced.
func (s *Store) Put(ctx context.Context, d *storage.Description) error {
	if err := storage.Prepare(d); err != nil {
		return err
	}
	query := s.dialect.bind(`
		INSERT INTO descriptions (id, title, version, content_type, original, compiled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			version = excluded.version,
			content_type = excluded.content_type,
			original = excluded.original,
			compiled = excluded.compiled`)

	_, err := s.conns.primary.ExecContext(ctx, query,
		d.ID,
		d.Title,
		d.Version,
		d.ContentType,
		d.Original,
		string(d.Compiled),
		d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store description: %w", err)
	}
	return nil
}

// Get implements storage.Store.Get
func (s *Store) Get(ctx context.Context, id string) (*storage.Description, error) {
	if err := storage.CheckID(id); err != nil {
		return nil, err
	}
	query := s.dialect.bind(`
		SELECT id, title, version, content_type, original, compiled, created_at
		FROM descriptions
		WHERE id = ?`)

	var (
		d        storage.Description
		compiled string
	)
	err := s.conns.reader().QueryRowContext(ctx, query, id).Scan(
		&d.ID,
		&d.Title,
		&d.Version,
		&d.ContentType,
		&d.Original,
		&compiled,
		&d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get description: %w", err)
	}
	d.Compiled = []byte(compiled)
	return &d, nil
}

// List implements storage.Store.List
func (s *Store) List(ctx context.Context, limit, offset int) ([]*storage.Description, error) {
	query := `
		SELECT id, title, version, content_type, created_at
		FROM descriptions
		ORDER BY created_at DESC, id` + s.dialect.limit(limit, offset)

	rows, err := s.conns.reader().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list descriptions: %w", err)
	}
	defer rows.Close()

	out := []*storage.Description{}
	for rows.Next() {
		var d storage.Description
		if err := rows.Scan(&d.ID, &d.Title, &d.Version, &d.ContentType, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan description: %w", err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list descriptions: %w", err)
	}
	return out, nil
}

// Delete implements storage.Store.Delete
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := storage.CheckID(id); err != nil {
		return err
	}
	res, err := s.conns.primary.ExecContext(ctx, s.dialect.bind(`DELETE FROM descriptions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete description: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete description: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Ping implements storage.Store.Ping
func (s *Store) Ping(ctx context.Context) error { return s.conns.ping(ctx) }

// Close implements storage.Store.Close
func (s *Store) Close() error { return s.conns.close() }
