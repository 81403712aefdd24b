// Package config loads service configuration from APICATALOG_* environment
// variables.
//
// Server settings:
//
//	APICATALOG_HOST="0.0.0.0"
//	APICATALOG_PORT="8080"
//	APICATALOG_HEALTH_PORT="9090"
//	APICATALOG_MAX_BODY_BYTES="10485760"
//
// Storage settings:
//
//	APICATALOG_STORAGE_TYPE="sqlite"  # filesystem, memory, postgres, sqlite
//	APICATALOG_FILESYSTEM_ROOT="/var/lib/apicatalog"
//	APICATALOG_POSTGRES_URL="postgres://localhost/apicatalog?sslmode=disable"
//	APICATALOG_POSTGRES_REPLICA_URLS="postgres://replica1/apicatalog,postgres://replica2/apicatalog"
//	APICATALOG_SQLITE_PATH="/var/lib/apicatalog/catalog.db"
//	APICATALOG_S3_BUCKET="api-descriptions"  # originals go to S3 when set
//
// Cache settings:
//
//	APICATALOG_CACHE_ENABLED="true"
//	APICATALOG_REDIS_URL="redis://localhost:6379"
//	APICATALOG_CACHE_TTL="1h"
//	APICATALOG_COMPILE_CACHE_SIZE="256"
//
// Compiler settings:
//
//	APICATALOG_MAX_VARIANTS="10000"
//	APICATALOG_MAX_DEPTH="64"
//
// Observability settings:
//
//	APICATALOG_LOG_LEVEL="info"  # debug, info, warn, error
//	APICATALOG_METRICS_ENABLED="true"
//	APICATALOG_OTEL_ENABLED="true"
//	APICATALOG_OTEL_ENDPOINT="otel-collector:4317"
//
// Malformed numbers and durations fall back to their defaults.
package config
