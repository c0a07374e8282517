package messaging

import (
	"context"

	"go.uber.org/zap"

	"catgraph/application/ports"
	"catgraph/domain/events"
)

// CacheInvalidator drops cached read-model entries when an event that
// changes them is published. The query cache is TTL-bound, so without this
// a cached aggregate view (the category tree) could serve pre-mutation
// state for the remainder of its TTL.
type CacheInvalidator struct {
	cache  ports.Cache
	keys   []string
	logger *zap.Logger
}

var _ ports.EventHandler = (*CacheInvalidator)(nil)

// NewCacheInvalidator creates an invalidator that deletes the given cache
// keys whenever a subscribed event arrives.
func NewCacheInvalidator(cache ports.Cache, logger *zap.Logger, keys ...string) *CacheInvalidator {
	return &CacheInvalidator{
		cache:  cache,
		keys:   keys,
		logger: logger,
	}
}

// Handle drops every configured key. A failed delete is logged and skipped;
// the entry then ages out on its TTL instead.
func (c *CacheInvalidator) Handle(ctx context.Context, event events.DomainEvent) error {
	for _, key := range c.keys {
		if err := c.cache.Delete(ctx, key); err != nil {
			c.logger.Warn("Failed to invalidate cache entry",
				zap.String("key", key),
				zap.String("eventType", event.GetEventType()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// CanHandle accepts every type; the subscription list decides which events
// reach the invalidator.
func (c *CacheInvalidator) CanHandle(string) bool { return true }
