package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Options configures the connection pools
type Options struct {
	ReplicaURLs []string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// DefaultOptions returns the pool settings used when none are given
func DefaultOptions() Options {
	return Options{
		MaxConns:    20,
		MinConns:    2,
		Timeout:     10 * time.Second,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}
}

// connections holds the primary and the read replicas. Reads rotate over the
// replicas and fall back to the primary when there are none.
type connections struct {
	primary  *sql.DB
	replicas []*sql.DB
	current  uint32
}

func (c *connections) reader() *sql.DB {
	if len(c.replicas) == 0 {
		return c.primary
	}
	i := atomic.AddUint32(&c.current, 1)
	return c.replicas[int(i%uint32(len(c.replicas)))]
}

// ping fails when the primary is down or when every replica is
func (c *connections) ping(ctx context.Context) error {
	if err := c.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("primary unhealthy: %w", err)
	}
	var unhealthy []string
	for i, r := range c.replicas {
		if err := r.PingContext(ctx); err != nil {
			unhealthy = append(unhealthy, fmt.Sprintf("replica-%d", i))
		}
	}
	if len(unhealthy) > 0 && len(unhealthy) == len(c.replicas) {
		return fmt.Errorf("all replicas unhealthy: %s", strings.Join(unhealthy, ", "))
	}
	return nil
}

func (c *connections) close() error {
	errs := []error{c.primary.Close()}
	for _, r := range c.replicas {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

func openPool(ctx context.Context, d Dialect, dsn string, maxConns int, opts Options) (*sql.DB, error) {
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", d.Name, err)
	}
	if d.singleCon {
		maxConns = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(min(opts.MinConns, maxConns))
	db.SetConnMaxLifetime(opts.MaxLifetime)
	db.SetConnMaxIdleTime(opts.MaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", d.Name, err)
	}
	return db, nil
}

// ParseReplicaURLs parses a comma-separated list of replica URLs
func ParseReplicaURLs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}
