package gate

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	id "trustgate/pkg/domain"
)

// MemoryCache keeps gates in process. Entries expire after ttl.
type MemoryCache struct {
	entries *gocache.Cache
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, 2*ttl)}
}

func (c *MemoryCache) Get(_ context.Context, accountID id.AccountID) (Entry, bool, error) {
	if v, ok := c.entries.Get(accountID.String()); ok {
		return v.(Entry), true, nil
	}
	return Entry{}, false, nil
}

func (c *MemoryCache) Set(_ context.Context, accountID id.AccountID, entry Entry) error {
	c.entries.SetDefault(accountID.String(), entry)
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, accountID id.AccountID) error {
	c.entries.Delete(accountID.String())
	return nil
}
