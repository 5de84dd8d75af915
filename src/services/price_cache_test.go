package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cryptofolio/src/clients/coingecko/coingeckotest"
	"cryptofolio/src/models"
	"cryptofolio/src/services"
	"cryptofolio/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bitcoinSnapshot(price string) *models.Asset {
	return &models.Asset{Name: "Bitcoin", Symbol: "BTC", CurrentPrice: dec(price)}
}

func TestPriceCache(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		release := make(chan struct{})
		client.SnapshotHook = func(string) { <-release }
		cache := services.NewPriceCache(client, nil, time.Minute, quietLogger())

		var wg sync.WaitGroup
		results := make([]*models.Asset, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, err := cache.Get(ctx, "bitcoin")
				assert.NoError(t, err)
				results[i] = a
			}(i)
		}
		require.Eventually(t, func() bool { return client.SnapshotCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), client.SnapshotCalls.Load())
		for _, a := range results {
			require.NotNil(t, a)
			assert.True(t, dec("45000").Equal(a.CurrentPrice))
		}
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("hits do not call upstream and return copies", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		cache := services.NewPriceCache(client, nil, time.Minute, quietLogger())

		first, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		first.CurrentPrice = dec("1")

		second, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.True(t, dec("45000").Equal(second.CurrentPrice))
		assert.Equal(t, int32(1), client.SnapshotCalls.Load())
	})

	t.Run("failures are not cached", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		cache := services.NewPriceCache(client, nil, time.Minute, quietLogger())

		_, err := cache.Get(ctx, "bitcoin")
		assert.True(t, errors.Is(err, utils.ErrNotFound))
		assert.Equal(t, 0, cache.Len())

		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		a, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.Equal(t, "BTC", a.Symbol)
		assert.Equal(t, int32(2), client.SnapshotCalls.Load())
	})

	t.Run("entries expire after the ttl", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		cache := services.NewPriceCache(client, nil, 5*time.Minute, quietLogger())

		var mu sync.Mutex
		now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		cache.SetClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		})
		advance := func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		}

		_, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		advance(4 * time.Minute)
		_, err = cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.Equal(t, int32(1), client.SnapshotCalls.Load())

		advance(2 * time.Minute)
		assert.Equal(t, 0, cache.Len())
		client.SetSnapshot("bitcoin", bitcoinSnapshot("46000"))
		a, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.True(t, dec("46000").Equal(a.CurrentPrice))
		assert.Equal(t, int32(2), client.SnapshotCalls.Load())
	})

	t.Run("invalidate all drops entries and health", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		client.SetSnapshot("ethereum", &models.Asset{Name: "Ethereum", Symbol: "ETH", CurrentPrice: dec("3200")})
		cache := services.NewPriceCache(client, nil, time.Minute, quietLogger())

		_, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		_, err = cache.Get(ctx, "ethereum")
		require.NoError(t, err)
		assert.Equal(t, 2, cache.Len())

		cache.InvalidateAll(ctx)
		assert.Equal(t, 0, cache.Len())
		assert.Equal(t, int32(1), client.ResetCalls.Load())

		_, err = cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.Equal(t, int32(3), client.SnapshotCalls.Load())
	})

	t.Run("invalidate one entry", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		cache := services.NewPriceCache(client, nil, time.Minute, quietLogger())

		_, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		cache.Invalidate(ctx, "bitcoin")
		assert.Equal(t, 0, cache.Len())
	})

	t.Run("invalidating a key discards its in-flight fetch", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		release := make(chan struct{})
		client.SnapshotHook = func(string) { <-release }
		cache := services.NewPriceCache(client, nil, time.Minute, quietLogger())

		done := make(chan struct{})
		go func() {
			defer close(done)
			a, err := cache.Get(ctx, "bitcoin")
			assert.NoError(t, err)
			assert.NotNil(t, a)
		}()
		require.Eventually(t, func() bool { return client.SnapshotCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

		cache.Invalidate(ctx, "bitcoin")
		close(release)
		<-done
		assert.Equal(t, 0, cache.Len())

		client.SnapshotHook = nil
		client.SetSnapshot("bitcoin", bitcoinSnapshot("47000"))
		a, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.True(t, dec("47000").Equal(a.CurrentPrice))
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("mirror is consulted before upstream", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		mirror := newMapMirror()
		require.NoError(t, mirror.Set(ctx, "snapshot:bitcoin", bitcoinSnapshot("44000"), time.Minute))
		cache := services.NewPriceCache(client, mirror, time.Minute, quietLogger())

		a, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.True(t, dec("44000").Equal(a.CurrentPrice))
		assert.Equal(t, int32(0), client.SnapshotCalls.Load())

		cache.InvalidateAll(ctx)
		assert.Equal(t, 0, mirror.len())
	})

	t.Run("upstream results are written to the mirror", func(t *testing.T) {
		client := coingeckotest.NewFakeClient()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))
		mirror := newMapMirror()
		cache := services.NewPriceCache(client, mirror, time.Minute, quietLogger())

		_, err := cache.Get(ctx, "bitcoin")
		require.NoError(t, err)
		assert.Equal(t, 1, mirror.len())
	})
}
