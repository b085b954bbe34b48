package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/cruxreport/core/fetch"
	"github.com/huangsam/cruxreport/internal/contract"
	"github.com/huangsam/cruxreport/schema"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 1

// cachedClient serves CrUX lookups from the response cache and falls through to next on a miss.
type cachedClient struct {
	next  fetch.Client
	store contract.CacheStore
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

var _ fetch.Client = &cachedClient{} // Compile-time check

// newCachedClient wraps next with the cache. A nil store returns next unchanged.
func newCachedClient(next fetch.Client, store contract.CacheStore, ttl time.Duration, log *slog.Logger) fetch.Client {
	if store == nil {
		return next
	}
	return &cachedClient{next: next, store: store, ttl: ttl, log: log, now: time.Now}
}

// Query implements fetch.Client.
func (c *cachedClient) Query(ctx context.Context, q fetch.Query) (schema.MetricSet, error) {
	key := generateCacheKey(q)

	if data, ok := c.checkCacheHit(key); ok {
		c.log.Debug("cache hit", "url", q.URL)
		return data, nil
	}

	return c.computeAndStore(ctx, q, key)
}

// checkCacheHit attempts to retrieve and validate a cached result
func (c *cachedClient) checkCacheHit(key string) (schema.MetricSet, bool) {
	data, version, ts, err := c.store.Get(key)
	if err != nil {
		return nil, false // Cache miss
	}

	// Validate version and staleness
	if version != currentCacheVersion || c.now().Sub(time.Unix(ts, 0)) > c.ttl {
		return nil, false
	}

	var result schema.MetricSet
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	if result == nil {
		result = schema.MetricSet{}
	}
	return result, true
}

// computeAndStore performs the lookup and caches it on success
func (c *cachedClient) computeAndStore(ctx context.Context, q fetch.Query, key string) (schema.MetricSet, error) {
	result, err := c.next.Query(ctx, q)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.store.Set(key, data, currentCacheVersion, c.now().Unix()); err != nil {
			c.log.Warn("cache write failed", "url", q.URL, "error", err)
		}
	}

	return result, nil
}

// generateCacheKey creates a unique key based on query parameters
func generateCacheKey(q fetch.Query) string {
	metrics := schema.MetricNames(q.Metrics)
	slices.Sort(metrics)

	key := fmt.Sprintf("%s|%s|%s|v%d",
		q.URL,
		q.FormFactor.WireValue(),
		strings.Join(metrics, ","),
		currentCacheVersion,
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}
