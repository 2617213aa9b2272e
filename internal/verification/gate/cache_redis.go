package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "trustgate/pkg/domain"
)

const entryKeyPrefix = "trustgate:gate:"

// RedisCache shares gates between instances.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func entryKey(accountID id.AccountID) string { return entryKeyPrefix + accountID.String() }

func (c *RedisCache) Get(ctx context.Context, accountID id.AccountID) (Entry, bool, error) {
	raw, err := c.client.Get(ctx, entryKey(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read gate entry: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		return Entry{}, false, nil
	}
	return entry, true, nil
}

func (c *RedisCache) Set(ctx context.Context, accountID id.AccountID, entry Entry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode gate entry: %w", err)
	}
	if err := c.client.Set(ctx, entryKey(accountID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("write gate entry: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, accountID id.AccountID) error {
	if err := c.client.Del(ctx, entryKey(accountID)).Err(); err != nil {
		return fmt.Errorf("delete gate entry: %w", err)
	}
	return nil
}
