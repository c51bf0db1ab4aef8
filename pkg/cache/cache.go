// Package cache provides an optional Redis-backed cache of pipeline
// Decisions. The cache is best-effort: a miss or a Redis fault just means
// the pipeline runs again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/datamoat/moat/pkg/pipeline"
	"github.com/datamoat/moat/pkg/policy"
)

const keyPrefix = "moat:decision:"

// Cache stores Decisions keyed by content hash with a bounded TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to the configured Redis instance.
func New(cfg policy.CacheSettings) *Cache {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return &Cache{rdb: rdb, ttl: cfg.TTL}
}

// NewWithClient wraps an existing client. Tests use this with miniredis.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for one analysis. The policy revision is part of
// the key so a hot reload invalidates every cached decision at once.
func Key(text, rawURL string, revision uint64) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(rawURL))
	h.Write([]byte{0})
	fmt.Fprintf(h, "%d", revision)
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached Decision for key, or false on a miss or any error.
func (c *Cache) Get(ctx context.Context, key string) (*pipeline.Decision, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("[CACHE] get failed: %v", err)
		}
		return nil, false
	}
	var d pipeline.Decision
	if err := json.Unmarshal(data, &d); err != nil {
		log.Printf("[CACHE] corrupt entry dropped: %v", err)
		return nil, false
	}
	return &d, true
}

// Put stores a Decision under key for the configured TTL. Failures are
// logged and swallowed.
func (c *Cache) Put(ctx context.Context, key string, d pipeline.Decision) {
	data, err := json.Marshal(d)
	if err != nil {
		log.Printf("[CACHE] marshal failed: %v", err)
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[CACHE] set failed: %v", err)
	}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
