package service

import (
	"log/slog"
	"time"

	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/observability"
)

// storeTimeout bounds every repository call made by a service.
const storeTimeout = 3 * time.Second

// Options are the cross-cutting collaborators shared by all services. Every
// field is optional.
type Options struct {
	Logger   *slog.Logger
	Prom     *observability.Prom
	Cache    cache.Store
	CacheTTL time.Duration
	// StoreTimeout overrides the per-call repository deadline.
	StoreTimeout time.Duration
}

func (o Options) storeTimeout() time.Duration {
	if o.StoreTimeout > 0 {
		return o.StoreTimeout
	}
	return storeTimeout
}

func (o Options) readCache() readCache {
	return readCache{store: o.Cache, ttl: o.CacheTTL, log: o.Logger, prom: o.Prom}
}
