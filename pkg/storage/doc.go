// Package storage persists API descriptions: the document as submitted and its
// compiled metadata object.
//
// # Backends
//
// Every backend implements Store:
//
//   - FileSystemStore keeps one directory per description under a root.
//   - MemoryStore keeps everything in process memory, for tests and dry runs.
//   - sqlstore.Store keeps rows in PostgreSQL or SQLite.
//
// Decorators add behaviour on top of any Store:
//
//   - WithBlobs moves original documents to a BlobStore (blob.S3Store).
//   - cache.RedisCache serves Get from Redis.
//   - Instrumented records spans, Prometheus metrics and OTel instruments.
//
// backend.Open assembles the stack from a Config.
//
// # Identifiers
//
// Descriptions are keyed by 24 hex characters drawn from a random UUID
// (NewID). Backends reject anything else with ErrInvalidID before the id
// reaches a path or a query.
package storage
