package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
	"github.com/platinummonkey/apicatalog/pkg/middleware"
	"github.com/platinummonkey/apicatalog/pkg/observability"
	"github.com/platinummonkey/apicatalog/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config

	// Compiler configuration
	Compiler CompilerConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Rate limit of the compiling routes; zero requests disables it
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int
}

// RateLimit returns the limiter settings
func (s ServerConfig) RateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		RequestsPerWindow: s.RateLimitRequests,
		WindowDuration:    s.RateLimitWindow,
		BurstSize:         s.RateLimitBurst,
	}
}

// CompilerConfig bounds compilation and sizes the compiled-description cache
type CompilerConfig struct {
	MaxVariants int
	MaxDepth    int

	CacheSize int
	CacheTTL  time.Duration
}

// Limits returns the compiler limits
func (c CompilerConfig) Limits() compiler.Limits {
	return compiler.Limits{MaxVariants: c.MaxVariants, MaxDepth: c.MaxDepth}
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
	OTelSampleRatio    float64
}

// OTel returns the settings for observability.InitOTel
func (c ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
		SampleRatio:    c.OTelSampleRatio,
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Compiler:      loadCompilerConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("APICATALOG_HOST", "0.0.0.0"),
		Port:            getEnv("APICATALOG_PORT", "8080"),
		ReadTimeout:     getEnvDuration("APICATALOG_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("APICATALOG_WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:     getEnvDuration("APICATALOG_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("APICATALOG_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxBodyBytes:    getEnvInt64("APICATALOG_MAX_BODY_BYTES", 10<<20),
		HealthPort:      getEnv("APICATALOG_HEALTH_PORT", "9090"),

		RateLimitRequests: getEnvInt("APICATALOG_RATE_LIMIT_REQUESTS", 0),
		RateLimitWindow:   getEnvDuration("APICATALOG_RATE_LIMIT_WINDOW", time.Minute),
		RateLimitBurst:    getEnvInt("APICATALOG_RATE_LIMIT_BURST", 10),
	}
}

func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	cfg.Type = getEnv("APICATALOG_STORAGE_TYPE", cfg.Type)
	cfg.FilesystemRoot = getEnv("APICATALOG_FILESYSTEM_ROOT", cfg.FilesystemRoot)

	// SQL
	cfg.PostgresURL = getEnv("APICATALOG_POSTGRES_URL", cfg.PostgresURL)
	cfg.PostgresReplicaURLs = getEnv("APICATALOG_POSTGRES_REPLICA_URLS", cfg.PostgresReplicaURLs)
	if maxConns := getEnvInt("APICATALOG_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("APICATALOG_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	cfg.PostgresTimeout = getEnvDuration("APICATALOG_POSTGRES_TIMEOUT", cfg.PostgresTimeout)
	cfg.SQLitePath = getEnv("APICATALOG_SQLITE_PATH", cfg.SQLitePath)

	// S3
	cfg.S3Endpoint = getEnv("APICATALOG_S3_ENDPOINT", cfg.S3Endpoint)
	cfg.S3Region = getEnv("APICATALOG_S3_REGION", cfg.S3Region)
	cfg.S3Bucket = getEnv("APICATALOG_S3_BUCKET", cfg.S3Bucket)
	cfg.S3AccessKey = getEnv("APICATALOG_S3_ACCESS_KEY", cfg.S3AccessKey)
	cfg.S3SecretKey = getEnv("APICATALOG_S3_SECRET_KEY", cfg.S3SecretKey)
	cfg.S3UsePathStyle = getEnvBool("APICATALOG_S3_USE_PATH_STYLE", cfg.S3UsePathStyle)

	// Redis
	cfg.RedisURL = getEnv("APICATALOG_REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv("APICATALOG_REDIS_PASSWORD", cfg.RedisPassword)
	if redisDB := getEnvInt("APICATALOG_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if retries := getEnvInt("APICATALOG_REDIS_MAX_RETRIES", 0); retries > 0 {
		cfg.RedisMaxRetries = retries
	}
	if poolSize := getEnvInt("APICATALOG_REDIS_POOL_SIZE", 0); poolSize > 0 {
		cfg.RedisPoolSize = poolSize
	}
	cfg.CacheEnabled = getEnvBool("APICATALOG_CACHE_ENABLED", cfg.CacheEnabled)
	cfg.CacheTTL = getEnvDuration("APICATALOG_CACHE_TTL", cfg.CacheTTL)

	return cfg
}

func loadCompilerConfig() CompilerConfig {
	return CompilerConfig{
		MaxVariants: getEnvInt("APICATALOG_MAX_VARIANTS", compiler.DefaultMaxVariants),
		MaxDepth:    getEnvInt("APICATALOG_MAX_DEPTH", compiler.DefaultMaxDepth),
		CacheSize:   getEnvInt("APICATALOG_COMPILE_CACHE_SIZE", 256),
		CacheTTL:    getEnvDuration("APICATALOG_COMPILE_CACHE_TTL", 10*time.Minute),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("APICATALOG_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("APICATALOG_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("APICATALOG_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("APICATALOG_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("APICATALOG_OTEL_SERVICE_NAME", "apicatalog"),
		OTelServiceVersion: getEnv("APICATALOG_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("APICATALOG_OTEL_INSECURE", true),
		OTelSampleRatio:    getEnvFloat("APICATALOG_OTEL_SAMPLE_RATIO", 1),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body size must be positive")
	}
	if c.Server.RateLimitRequests < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}

	switch c.Storage.Type {
	case "filesystem":
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be filesystem, memory, postgres, or sqlite)", c.Storage.Type)
	}
	if c.Storage.S3Bucket != "" && c.Storage.S3Region == "" {
		return fmt.Errorf("S3 region is required when an S3 bucket is set")
	}
	if c.Storage.CacheEnabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when the cache is enabled")
	}

	if c.Compiler.MaxVariants <= 0 {
		return fmt.Errorf("max variants must be positive")
	}
	if c.Compiler.MaxDepth <= 0 {
		return fmt.Errorf("max depth must be positive")
	}
	if c.Compiler.CacheSize < 0 {
		return fmt.Errorf("compile cache size must not be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// Addr returns the listen address of the API server
func (s ServerConfig) Addr() string { return s.Host + ":" + s.Port }

// HealthAddr returns the listen address of the health and metrics server
func (s ServerConfig) HealthAddr() string { return s.Host + ":" + s.HealthPort }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
