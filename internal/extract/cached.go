package extract

import (
	"context"
	"encoding/json"
	"time"

	"templatefill-backend/internal/shared/cache"
	"templatefill-backend/internal/shared/metrics"
	"templatefill-backend/internal/shared/telemetry"
)

const cacheKeyPrefix = "placeholders:"

// Cached memoizes extraction results by content fingerprint. Cache failures
// are logged and bypassed.
type Cached struct {
	inner Extractor
	store cache.Store
	ttl   time.Duration
}

// NewCached wraps inner with a fingerprint-keyed cache.
func NewCached(inner Extractor, store cache.Store, ttl time.Duration) *Cached {
	return &Cached{inner: inner, store: store, ttl: ttl}
}

// Extract implements Extractor.
func (c *Cached) Extract(ctx context.Context, data []byte) ([]string, error) {
	key := cacheKeyPrefix + Fingerprint(data)

	raw, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		telemetry.Warn("extract.cache_get_failed", map[string]any{"key": key, "error": err.Error()})
	case ok:
		var names []string
		if err := json.Unmarshal(raw, &names); err == nil && names != nil {
			metrics.PlaceholderCache.WithLabelValues("hit").Inc()
			return names, nil
		}
		telemetry.Warn("extract.cache_corrupt", map[string]any{"key": key})
	}
	metrics.PlaceholderCache.WithLabelValues("miss").Inc()

	names, err := c.inner.Extract(ctx, data)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(names)
	if err == nil {
		err = c.store.Set(ctx, key, encoded, c.ttl)
	}
	if err != nil {
		telemetry.Warn("extract.cache_set_failed", map[string]any{"key": key, "error": err.Error()})
	}
	return names, nil
}
