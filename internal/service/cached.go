package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/observability"
)

// readCache wraps an optional cache.Store. Cache trouble is logged and
// swallowed; the store of record always answers.
type readCache struct {
	store cache.Store
	ttl   time.Duration
	log   *slog.Logger
	prom  *observability.Prom
}

// tombstone marks a key invalidated by a write. It is not valid JSON, so it
// never decodes as a cached value.
var tombstone = []byte("\x00invalidated")

// invalidationHold outlives any in-flight load, so a reader that fetched the
// row before the write cannot put the old version back.
const invalidationHold = 10 * time.Second

func isTombstone(raw []byte) bool {
	return bytes.Equal(raw, tombstone)
}

func readThrough[T any](ctx context.Context, c readCache, entity, key string, load func(context.Context) (T, error)) (T, error) {
	if c.store == nil {
		return load(ctx)
	}

	raw, ok, err := c.store.Get(ctx, key)
	switch {
	case err != nil:
		c.prom.CacheResult(entity, "error")
		logger(c.log).WarnContext(ctx, "cache get failed", "key", key, "err", err)
	case ok && isTombstone(raw):
		// recently written; serve from the store and leave the marker alone
		c.prom.CacheResult(entity, "miss")
		return load(ctx)
	case ok:
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.prom.CacheResult(entity, "hit")
			return v, nil
		}
		c.prom.CacheResult(entity, "error")
		// a fill cannot overwrite, so drop the undecodable entry first
		_ = c.store.Delete(ctx, key)
	default:
		c.prom.CacheResult(entity, "miss")
	}

	v, err := load(ctx)
	if err != nil {
		return v, err
	}

	if b, err := json.Marshal(v); err == nil {
		// fills never overwrite, so a tombstone set meanwhile wins
		if _, err := c.store.SetIfAbsent(ctx, key, b, c.ttl); err != nil {
			logger(c.log).WarnContext(ctx, "cache set failed", "key", key, "err", err)
		}
	}
	return v, nil
}

func (c readCache) invalidate(ctx context.Context, keys ...string) {
	if c.store == nil || len(keys) == 0 {
		return
	}
	for _, key := range keys {
		if err := c.store.Set(ctx, key, tombstone, invalidationHold); err != nil {
			logger(c.log).WarnContext(ctx, "cache invalidate failed", "key", key, "err", err)
			// fall back to dropping the entry
			_ = c.store.Delete(ctx, key)
		}
	}
}
