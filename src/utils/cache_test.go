package utils_test

import (
	"testing"
	"time"

	"cryptofolio/src/utils"

	"github.com/stretchr/testify/assert"
)

func TestCache(t *testing.T) {
	t.Run("should return the cached string value if valid", func(t *testing.T) {
		cache := utils.NewCache[string]()
		cache.Set("test value", 1*time.Minute)

		value, found := cache.Get()
		assert.True(t, found)
		assert.Equal(t, "test value", value)
	})

	t.Run("should miss once the expiration has passed", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		cache := utils.NewCacheWithClock[string](func() time.Time { return now })
		cache.Set("test value", 1*time.Second)

		now = now.Add(999 * time.Millisecond)
		_, found := cache.Get()
		assert.True(t, found)

		now = now.Add(time.Millisecond)
		value, found := cache.Get()
		assert.False(t, found)
		assert.Empty(t, value)
	})

	t.Run("should miss when empty or cleared", func(t *testing.T) {
		cache := utils.NewCache[int]()
		_, found := cache.Get()
		assert.False(t, found)
		assert.True(t, cache.CachedAt().IsZero())

		cache.Set(42, time.Minute)
		assert.False(t, cache.CachedAt().IsZero())
		cache.Clear()
		_, found = cache.Get()
		assert.False(t, found)
	})

	t.Run("should return the cached struct value if valid", func(t *testing.T) {
		type coin struct {
			ID     string
			Symbol string
		}
		cache := utils.NewCache[coin]()
		cache.Set(coin{ID: "bitcoin", Symbol: "btc"}, 1*time.Minute)

		value, found := cache.Get()
		assert.True(t, found)
		assert.Equal(t, "bitcoin", value.ID)
	})
}
