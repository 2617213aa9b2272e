package gate

import (
	"context"
	"errors"
	"log/slog"

	id "trustgate/pkg/domain"
	"trustgate/pkg/platform/circuit"
)

// ErrCacheOpen is returned while the cache circuit is open. The service
// treats it like any cache failure and computes from the store.
var ErrCacheOpen = errors.New("gate cache circuit open")

// BreakerCache guards a remote cache with a circuit breaker so an outage
// costs one fast failure per read instead of a network timeout. Delete
// always reaches the inner cache so superseded entries are dropped as soon
// as it answers again.
type BreakerCache struct {
	inner   Cache
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewBreakerCache(inner Cache, breaker *circuit.Breaker, logger *slog.Logger) *BreakerCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &BreakerCache{inner: inner, breaker: breaker, logger: logger}
}

func (c *BreakerCache) Get(ctx context.Context, accountID id.AccountID) (Entry, bool, error) {
	if !c.breaker.Allow() {
		return Entry{}, false, ErrCacheOpen
	}
	entry, ok, err := c.inner.Get(ctx, accountID)
	c.record(ctx, err)
	return entry, ok, err
}

func (c *BreakerCache) Set(ctx context.Context, accountID id.AccountID, entry Entry) error {
	if c.breaker.IsOpen() {
		return ErrCacheOpen
	}
	err := c.inner.Set(ctx, accountID, entry)
	c.record(ctx, err)
	return err
}

func (c *BreakerCache) Delete(ctx context.Context, accountID id.AccountID) error {
	err := c.inner.Delete(ctx, accountID)
	c.record(ctx, err)
	return err
}

func (c *BreakerCache) record(ctx context.Context, err error) {
	if err == nil {
		if _, change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "gate cache circuit closed", "breaker", c.breaker.Name())
		}
		return
	}
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "gate cache circuit opened", "breaker", c.breaker.Name(), "error", err)
	}
}
