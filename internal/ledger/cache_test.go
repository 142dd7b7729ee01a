package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *BalanceCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewBalanceCache(client, time.Minute)
}

func countingLoader(balance *Balance) (func(context.Context) (*Balance, error), *int) {
	calls := 0
	return func(context.Context) (*Balance, error) {
		calls++
		return balance, nil
	}, &calls
}

func TestFetchBalanceCachesResult(t *testing.T) {
	cache := newTestCache(t)
	asOf := date(2024, time.February, 7)
	loader, calls := countingLoader(&Balance{LeaseID: 1, AsOf: asOf, Outstanding: 1200})

	first, err := cache.FetchBalance(context.Background(), 1, asOf, loader)
	require.NoError(t, err)
	require.Equal(t, 1200.0, first.Outstanding)
	require.Equal(t, 1, *calls)

	second, err := cache.FetchBalance(context.Background(), 1, asOf, loader)
	require.NoError(t, err)
	require.Equal(t, 1200.0, second.Outstanding)
	require.Equal(t, 1, *calls, "second fetch must come from cache")
}

func TestInvalidateRetiresCachedBalances(t *testing.T) {
	cache := newTestCache(t)
	asOf := date(2024, time.February, 7)
	loader, calls := countingLoader(&Balance{LeaseID: 1, AsOf: asOf, Outstanding: 1200})

	_, err := cache.FetchBalance(context.Background(), 1, asOf, loader)
	require.NoError(t, err)

	cache.Invalidate(context.Background(), 1)

	_, err = cache.FetchBalance(context.Background(), 1, asOf, loader)
	require.NoError(t, err)
	require.Equal(t, 2, *calls, "invalidate must force a reload")
}

func TestFetchBalanceScopedPerLease(t *testing.T) {
	cache := newTestCache(t)
	asOf := date(2024, time.February, 7)
	loaderA, callsA := countingLoader(&Balance{LeaseID: 1, AsOf: asOf, Outstanding: 100})
	loaderB, callsB := countingLoader(&Balance{LeaseID: 2, AsOf: asOf, Outstanding: 200})

	_, err := cache.FetchBalance(context.Background(), 1, asOf, loaderA)
	require.NoError(t, err)
	_, err = cache.FetchBalance(context.Background(), 2, asOf, loaderB)
	require.NoError(t, err)

	cache.Invalidate(context.Background(), 1)

	got, err := cache.FetchBalance(context.Background(), 2, asOf, loaderB)
	require.NoError(t, err)
	require.Equal(t, 200.0, got.Outstanding)
	require.Equal(t, 1, *callsB, "lease 2 must stay cached")

	_, err = cache.FetchBalance(context.Background(), 1, asOf, loaderA)
	require.NoError(t, err)
	require.Equal(t, 2, *callsA, "lease 1 must reload after invalidate")
}

func TestNilCacheFallsThrough(t *testing.T) {
	var cache *BalanceCache
	asOf := date(2024, time.February, 7)
	loader, calls := countingLoader(&Balance{LeaseID: 1, AsOf: asOf})

	_, err := cache.FetchBalance(context.Background(), 1, asOf, loader)
	require.NoError(t, err)
	_, err = cache.FetchBalance(context.Background(), 1, asOf, loader)
	require.NoError(t, err)
	require.Equal(t, 2, *calls)

	cache.Invalidate(context.Background(), 1) // must not panic
}
