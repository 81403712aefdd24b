package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no description has the requested id
var ErrNotFound = errors.New("description not found")

// ErrInvalidID is returned for ids that are not 24 hex characters
var ErrInvalidID = errors.New("invalid description id")

// Description is a stored API description: the document as submitted and the
// compiled metadata object
type Description struct {
	ID          string          `json:"id"`
	Title       string          `json:"title,omitempty"`
	Version     string          `json:"version,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	Original    []byte          `json:"-"`
	Compiled    json.RawMessage `json:"compiled,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Summary drops the payloads, as returned by List
func (d *Description) Summary() *Description {
	return &Description{
		ID:          d.ID,
		Title:       d.Title,
		Version:     d.Version,
		ContentType: d.ContentType,
		CreatedAt:   d.CreatedAt,
	}
}

// Store persists descriptions
type Store interface {
	// Put stores d. An empty ID is assigned before writing.
	Put(ctx context.Context, d *Description) error
	Get(ctx context.Context, id string) (*Description, error)
	// List returns summaries, newest first
	List(ctx context.Context, limit, offset int) ([]*Description, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// BlobStore holds original descriptions outside the metadata store
type BlobStore interface {
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Config for storage backend
type Config struct {
	Type string // "filesystem", "memory", "postgres", "sqlite"

	// Filesystem config
	FilesystemRoot string

	// SQL config
	PostgresURL         string
	PostgresReplicaURLs string // comma separated
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration
	SQLitePath          string

	// S3 config for original descriptions
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	// Redis config
	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	// Cache config
	CacheEnabled bool
	CacheTTL     time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:             "filesystem",
		FilesystemRoot:   "/tmp/apicatalog",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		SQLitePath:       "apicatalog.db",
		S3Region:         "us-east-1",
		RedisDB:          0,
		RedisMaxRetries:  3,
		RedisPoolSize:    10,
		CacheEnabled:     false,
		CacheTTL:         time.Hour,
	}
}

// IDLength is the length of a description id
const IDLength = 24

// NewID returns a new 24 character hex id
func NewID() string {
	u := uuid.New()
	return hex.EncodeToString(u[:IDLength/2])
}

// CheckID rejects ids that are not 24 hex characters. Backends call it before
// using an id as a key or a path.
func CheckID(id string) error {
	if len(id) != IDLength {
		return ErrInvalidID
	}
	if _, err := hex.DecodeString(id); err != nil {
		return ErrInvalidID
	}
	return nil
}

// Prepare assigns an id and a creation time to d when missing
func Prepare(d *Description) error {
	if d.ID == "" {
		d.ID = NewID()
	} else if err := CheckID(d.ID); err != nil {
		return err
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	return nil
}
