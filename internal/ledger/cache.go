package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BalanceCache keeps computed balances in Redis with per-lease version
// counters. A write against a lease bumps its version, which retires every
// cached balance for it without scanning keys.
type BalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBalanceCache instantiates the cache helper. A nil client disables
// caching and every fetch falls through to the loader.
func NewBalanceCache(client *redis.Client, ttl time.Duration) *BalanceCache {
	return &BalanceCache{client: client, ttl: ttl}
}

func versionKey(leaseID int64) string {
	return fmt.Sprintf("ledger:lease:%d:ver", leaseID)
}

func (c *BalanceCache) version(ctx context.Context, leaseID int64) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(leaseID)).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, versionKey(leaseID), 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// FetchBalance loads a cached balance or populates it using the loader.
func (c *BalanceCache) FetchBalance(ctx context.Context, leaseID int64, asOf time.Time, loader func(context.Context) (*Balance, error)) (*Balance, error) {
	if loader == nil {
		return nil, errors.New("ledger: cache loader required")
	}
	if c == nil || c.client == nil {
		return loader(ctx)
	}

	ver, err := c.version(ctx, leaseID)
	if err != nil {
		return loader(ctx)
	}
	key := fmt.Sprintf("ledger:balance:%d:%s:%d", leaseID, asOf.Format("2006-01-02"), ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached Balance
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	} else if err != redis.Nil {
		return loader(ctx)
	}

	balance, err := loader(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(balance); err == nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
	}
	return balance, nil
}

// Invalidate retires all cached balances for a lease.
func (c *BalanceCache) Invalidate(ctx context.Context, leaseID int64) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Incr(ctx, versionKey(leaseID)).Err()
}
