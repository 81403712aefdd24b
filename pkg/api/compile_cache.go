package api

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/platinummonkey/apicatalog/pkg/compiler"
	"github.com/platinummonkey/apicatalog/pkg/document"
	"github.com/platinummonkey/apicatalog/pkg/observability"
)

const compileCacheName = "compile"

// compiled is a finished compilation, shared read-only between requests
type compiled struct {
	doc   *document.Object
	json  []byte
	stats compiler.Stats
}

// compileCache maps the hash of a submitted document to its compilation.
// A nil cache never hits.
type compileCache struct {
	entries *lru.LRU[string, *compiled]
	metrics *observability.Metrics
}

func newCompileCache(size int, ttl time.Duration, metrics *observability.Metrics) *compileCache {
	if size <= 0 {
		return nil
	}
	return &compileCache{
		entries: lru.NewLRU[string, *compiled](size, nil, ttl),
		metrics: metrics,
	}
}

func cacheKey(raw []byte, limits compiler.Limits) string {
	h := sha256.New()
	h.Write(raw)
	var lim [16]byte
	for i, v := range []int{limits.MaxVariants, limits.MaxDepth} {
		for b := 0; b < 8; b++ {
			lim[i*8+b] = byte(v >> (8 * b))
		}
	}
	h.Write(lim[:])
	return hex.EncodeToString(h.Sum(nil))
}

func (c *compileCache) get(key string) (*compiled, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.entries.Get(key)
	c.metrics.ObserveCache(compileCacheName, ok)
	return v, ok
}

func (c *compileCache) add(key string, v *compiled) {
	if c == nil {
		return
	}
	c.entries.Add(key, v)
}

func (c *compileCache) len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
