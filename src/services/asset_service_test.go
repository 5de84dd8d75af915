package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptofolio/src/clients/coingecko/coingeckotest"
	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	"cryptofolio/src/schemas"
	"cryptofolio/src/services"
	"cryptofolio/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cryptoRequest(name, symbol, price string) schemas.CryptoRequest {
	return schemas.CryptoRequest{Name: name, Symbol: symbol, CurrentPrice: dec(price)}
}

func TestAssetService(t *testing.T) {
	ctx := context.Background()
	newService := func() (*services.AssetService, *repositories.MemoryStore, *coingeckotest.FakeClient) {
		store := repositories.NewMemoryStore()
		client := coingeckotest.NewFakeClient()
		cache := services.NewPriceCache(client, nil, time.Minute, quietLogger())
		return services.NewAssetService(store, cache, quietLogger()), store, client
	}

	t.Run("create normalizes the symbol", func(t *testing.T) {
		svc, _, _ := newService()
		a, err := svc.Create(ctx, cryptoRequest(" Bitcoin ", " btc ", "45000"))
		require.NoError(t, err)
		assert.Equal(t, "BTC", a.Symbol)
		assert.Equal(t, "Bitcoin", a.Name)
		assert.NotZero(t, a.ID)

		found, err := svc.GetBySymbol(ctx, "btc")
		require.NoError(t, err)
		assert.Equal(t, a.ID, found.ID)
	})

	t.Run("duplicate symbol or name conflicts", func(t *testing.T) {
		svc, _, _ := newService()
		_, err := svc.Create(ctx, cryptoRequest("Bitcoin", "BTC", "45000"))
		require.NoError(t, err)

		_, err = svc.Create(ctx, cryptoRequest("Bitcoin Two", "btc", "1"))
		assert.True(t, errors.Is(err, utils.ErrConflict))
		_, err = svc.Create(ctx, cryptoRequest("Bitcoin", "BTC2", "1"))
		assert.True(t, errors.Is(err, utils.ErrConflict))
	})

	t.Run("update may keep its own symbol", func(t *testing.T) {
		svc, _, _ := newService()
		a, err := svc.Create(ctx, cryptoRequest("Bitcoin", "BTC", "45000"))
		require.NoError(t, err)
		_, err = svc.Create(ctx, cryptoRequest("Ethereum", "ETH", "3200"))
		require.NoError(t, err)

		req := cryptoRequest("Bitcoin", "BTC", "47000")
		req.Change24h = nullDec("-3.5")
		updated, err := svc.Update(ctx, a.ID, req)
		require.NoError(t, err)
		assert.Equal(t, "47000", updated.CurrentPrice.String())

		_, err = svc.Update(ctx, a.ID, cryptoRequest("Bitcoin", "ETH", "47000"))
		assert.True(t, errors.Is(err, utils.ErrConflict))
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, _ := newService()
		cases := map[string]schemas.CryptoRequest{
			"no name":     cryptoRequest("", "BTC", "1"),
			"long symbol": cryptoRequest("Bitcoin", "BTCBTCBTCBTC", "1"),
			"zero price":  cryptoRequest("Bitcoin", "BTC", "0"),
			"change too low": func() schemas.CryptoRequest {
				r := cryptoRequest("Bitcoin", "BTC", "1")
				r.Change24h = nullDec("-100.5")
				return r
			}(),
		}
		for name, req := range cases {
			_, err := svc.Create(ctx, req)
			assert.True(t, errors.Is(err, utils.ErrInvalidArgument), name)
		}
	})

	t.Run("list filters and range checks", func(t *testing.T) {
		svc, _, _ := newService()
		for _, r := range []schemas.CryptoRequest{
			cryptoRequest("Bitcoin", "BTC", "45000"),
			cryptoRequest("Ethereum", "ETH", "3200"),
			cryptoRequest("Cardano", "ADA", "0.45"),
		} {
			_, err := svc.Create(ctx, r)
			require.NoError(t, err)
		}

		cheap, err := svc.List(ctx, schemas.CryptoFilter{MaxPrice: nullDec("5000")})
		require.NoError(t, err)
		assert.Len(t, cheap, 2)

		search, err := svc.List(ctx, schemas.CryptoFilter{Search: "eth"})
		require.NoError(t, err)
		require.Len(t, search, 1)
		assert.Equal(t, "ETH", search[0].Symbol)

		_, err = svc.List(ctx, schemas.CryptoFilter{MinPrice: nullDec("10"), MaxPrice: nullDec("1")})
		assert.True(t, errors.Is(err, utils.ErrInvalidArgument))
	})

	t.Run("stats aggregate every portfolio", func(t *testing.T) {
		svc, store, _ := newService()
		btc := createAsset(t, store, "Bitcoin", "BTC", "45000")
		a := createPortfolio(t, store, "A")
		b := createPortfolio(t, store, "B")
		for _, tr := range []models.Transaction{
			{PortfolioID: a.ID, AssetID: btc.ID, Type: models.Buy, Quantity: dec("0.5"), PricePerUnit: dec("40000")},
			{PortfolioID: b.ID, AssetID: btc.ID, Type: models.Buy, Quantity: dec("0.3"), PricePerUnit: dec("42000")},
			{PortfolioID: a.ID, AssetID: btc.ID, Type: models.Sell, Quantity: dec("0.2"), PricePerUnit: dec("46000")},
		} {
			tr := tr
			tr.TransactionDate = time.Now()
			tr.Recompute()
			require.NoError(t, store.Transactions().Create(ctx, &tr))
		}

		stats, err := svc.Stats(ctx, btc.ID)
		require.NoError(t, err)
		assert.Equal(t, "0.8", stats.TotalBought.String())
		assert.Equal(t, "0.2", stats.TotalSold.String())
		assert.Equal(t, "0.6", stats.NetQuantity.String())
		assert.Equal(t, "27000", stats.HeldValue.String())
		assert.Equal(t, 2, stats.PortfolioCount)
	})

	t.Run("stats of unknown crypto", func(t *testing.T) {
		svc, _, _ := newService()
		_, err := svc.Stats(ctx, 7)
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})

	t.Run("snapshot goes through the cache", func(t *testing.T) {
		svc, _, client := newService()
		client.SetSnapshot("bitcoin", bitcoinSnapshot("45000"))

		for i := 0; i < 3; i++ {
			a, err := svc.Snapshot(ctx, " Bitcoin ")
			require.NoError(t, err)
			assert.Equal(t, "BTC", a.Symbol)
		}
		assert.Equal(t, int32(1), client.SnapshotCalls.Load())

		_, err := svc.Snapshot(ctx, "  ")
		assert.True(t, errors.Is(err, utils.ErrInvalidArgument))
	})
}
