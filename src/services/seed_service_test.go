package services_test

import (
	"context"
	"testing"

	"cryptofolio/src/repositories"
	"cryptofolio/src/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedService(t *testing.T) {
	ctx := context.Background()

	t.Run("fills empty tables and values portfolios", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		portfolios := services.NewPortfolioService(store, nil, quietLogger())
		seed := services.NewSeedService(store, portfolios, quietLogger())
		require.NoError(t, seed.Seed(ctx))

		assets, err := store.Assets().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), assets)
		n, err := store.Transactions().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		conservative, err := store.Portfolios().GetByName(ctx, "Portfólio Conservador")
		require.NoError(t, err)
		assert.Equal(t, "10900", conservative.TotalValue.String())

		// 1000 ADA at 0.45, BTC was only sold
		aggressive, err := store.Portfolios().GetByName(ctx, "Portfólio Agressivo")
		require.NoError(t, err)
		assert.Equal(t, "450", aggressive.TotalValue.String())

		defi, err := store.Portfolios().GetByName(ctx, "Portfólio DeFi")
		require.NoError(t, err)
		assert.True(t, defi.TotalValue.IsZero())
	})

	t.Run("is idempotent", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		portfolios := services.NewPortfolioService(store, nil, quietLogger())
		seed := services.NewSeedService(store, portfolios, quietLogger())
		require.NoError(t, seed.Seed(ctx))
		require.NoError(t, seed.Seed(ctx))

		n, err := store.Portfolios().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		n, err = store.Transactions().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("leaves existing cryptos alone", func(t *testing.T) {
		store := repositories.NewMemoryStore()
		createAsset(t, store, "Bitcoin", "BTC", "50000")
		portfolios := services.NewPortfolioService(store, nil, quietLogger())
		require.NoError(t, services.NewSeedService(store, portfolios, quietLogger()).Seed(ctx))

		n, err := store.Assets().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		// the ETH purchase is skipped without its crypto
		conservative, err := store.Portfolios().GetByName(ctx, "Portfólio Conservador")
		require.NoError(t, err)
		assert.Equal(t, "5000", conservative.TotalValue.String())
	})
}
