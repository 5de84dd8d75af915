package coingecko_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/config"
	"cryptofolio/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tweak ...func(*config.Config)) *coingecko.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.ExternalClients.CoinGecko.BaseURL = server.URL
	cfg.ExternalClients.CoinGecko.Timeout = 2 * time.Second
	cfg.ExternalClients.CoinGecko.VsCurrency = "usd"
	for _, fn := range tweak {
		fn(cfg)
	}

	client, err := coingecko.NewClient(cfg, quietLogger())
	require.NoError(t, err)
	return client
}

func serveFile(t *testing.T, name string) http.HandlerFunc {
	body, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

func TestFetchMarket(t *testing.T) {
	t.Run("skips records without current_price", func(t *testing.T) {
		var query string
		serve := serveFile(t, "markets_five.json")
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/coins/markets", r.URL.Path)
			query = r.URL.RawQuery
			serve(w, r)
		})

		assets := client.FetchMarket(context.Background(), []string{"bitcoin", "ethereum"}, 5)
		require.Len(t, assets, 4)

		assert.Equal(t, "BTC", assets[0].Symbol)
		assert.True(t, assets[0].CurrentPrice.Equal(decimal.RequireFromString("45000.12")))
		require.NotNil(t, assets[0].ImageURL)
		assert.Equal(t, "ADA", assets[2].Symbol)
		assert.False(t, assets[2].Change24h.Valid)
		assert.False(t, assets[3].MarketCap.Valid)

		assert.Contains(t, query, "per_page=5")
		assert.Contains(t, query, "ids=bitcoin%2Cethereum")
		assert.Contains(t, query, "order=market_cap_desc")
	})

	t.Run("skips records with a non-positive current_price", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[
				{"id":"bitcoin","name":"Bitcoin","symbol":"btc","current_price":0},
				{"id":"ethereum","name":"Ethereum","symbol":"eth","current_price":-3},
				{"id":"cardano","name":"Cardano","symbol":"ada","current_price":0.45}
			]`))
		})
		assets := client.FetchMarket(context.Background(), []string{"bitcoin", "ethereum", "cardano"}, 3)
		require.Len(t, assets, 1)
		assert.Equal(t, "ADA", assets[0].Symbol)
	})

	t.Run("per_page is capped", func(t *testing.T) {
		var perPage string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			perPage = r.URL.Query().Get("per_page")
			_, _ = w.Write([]byte(`[]`))
		})
		assets := client.FetchTopByMarketCap(context.Background(), 1000)
		assert.Empty(t, assets)
		assert.Equal(t, "250", perPage)
	})

	t.Run("error object yields empty list", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":{"error_code":429,"error_message":"slow down"}}`))
		})
		assets := client.FetchMarket(context.Background(), []string{"bitcoin"}, 1)
		assert.NotNil(t, assets)
		assert.Empty(t, assets)
	})

	t.Run("malformed JSON yields empty list", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"id": "bitcoin", `))
		})
		assert.Empty(t, client.FetchMarket(context.Background(), []string{"bitcoin"}, 1))
	})

	t.Run("server errors yield empty list", func(t *testing.T) {
		for _, status := range []int{http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusNotFound} {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			})
			assert.Empty(t, client.FetchMarket(context.Background(), []string{"bitcoin"}, 1), "status %d", status)
		}
	})

	t.Run("oversized response yields empty list", func(t *testing.T) {
		client := newTestClient(t, serveFile(t, "markets_five.json"), func(cfg *config.Config) {
			cfg.ExternalClients.CoinGecko.MaxResponseBytes = 64
		})
		assert.Empty(t, client.FetchMarket(context.Background(), []string{"bitcoin"}, 5))
	})
}

func TestFetchSnapshot(t *testing.T) {
	t.Run("parses nested fields", func(t *testing.T) {
		serve := serveFile(t, "coin_bitcoin.json")
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/coins/bitcoin", r.URL.Path)
			serve(w, r)
		})

		asset, err := client.FetchSnapshot(context.Background(), "bitcoin")
		require.NoError(t, err)
		assert.Equal(t, "Bitcoin", asset.Name)
		assert.Equal(t, "BTC", asset.Symbol)
		assert.True(t, asset.CurrentPrice.Equal(decimal.RequireFromString("45000.5")))
		assert.True(t, asset.MarketCap.Decimal.Equal(decimal.RequireFromString("880000000000")))
		assert.True(t, asset.Change24h.Decimal.Equal(decimal.RequireFromString("2.5")))
		require.NotNil(t, asset.ImageURL)
		assert.Equal(t, "https://example.com/small.png", *asset.ImageURL)
		require.NotNil(t, asset.Description)
	})

	t.Run("missing market data is not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"bitcoin","symbol":"btc","name":"Bitcoin","market_data":{"current_price":{"usd":1}}}`))
		})
		asset, err := client.FetchSnapshot(context.Background(), "bitcoin")
		assert.Nil(t, asset)
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})

	t.Run("upstream failure is not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := client.FetchSnapshot(context.Background(), "bitcoin")
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})

	t.Run("blank id is invalid", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := client.FetchSnapshot(context.Background(), "  ")
		assert.True(t, errors.Is(err, utils.ErrInvalidArgument))
	})
}

func TestIsHealthy(t *testing.T) {
	t.Run("healthy answer is cached", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, _ = w.Write([]byte(`{"gecko_says":"(V3) To the Moon!"}`))
		})
		assert.True(t, client.IsHealthy(context.Background()))
		assert.True(t, client.IsHealthy(context.Background()))
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
	})

	t.Run("failure is cached as false", func(t *testing.T) {
		var calls int32
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
		})
		assert.False(t, client.IsHealthy(context.Background()))
		assert.False(t, client.IsHealthy(context.Background()))
		assert.EqualValues(t, 1, atomic.LoadInt32(&calls))

		client.ResetHealth()
		assert.False(t, client.IsHealthy(context.Background()))
		assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
	})

	t.Run("unexpected body is unhealthy", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"gecko_says":"maintenance"}`))
		})
		assert.False(t, client.IsHealthy(context.Background()))
	})
}

func TestSearch(t *testing.T) {
	t.Run("blank query is invalid", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("no request expected")
		})
		_, err := client.Search(context.Background(), "   ")
		assert.True(t, errors.Is(err, utils.ErrInvalidArgument))
	})

	t.Run("parses coins", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "bit", r.URL.Query().Get("query"))
			_, _ = w.Write([]byte(`{"coins":[{"id":"bitcoin","name":"Bitcoin","symbol":"BTC","market_cap_rank":1}],"nfts":[],"categories":[{"id":1,"name":"Layer 1","slug":"layer-1"}]}`))
		})
		result, err := client.Search(context.Background(), "bit")
		require.NoError(t, err)
		require.Len(t, result.Coins, 1)
		assert.Equal(t, "bitcoin", result.Coins[0].ID)
		require.NotNil(t, result.Coins[0].MarketCapRank)
		assert.Equal(t, 1, *result.Coins[0].MarketCapRank)
		assert.Len(t, result.Categories, 1)
	})

	t.Run("upstream failure is an empty result", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		result, err := client.Search(context.Background(), "bit")
		require.NoError(t, err)
		assert.Empty(t, result.Coins)
	})
}

func TestFetchSimplePrices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "eur", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"bitcoin":{"eur":41000.5,"eur_market_cap":800000000000,"eur_24h_vol":1000,"eur_24h_change":-0.5,"last_updated_at":1700000000}}`))
	})

	prices := client.FetchSimplePrices(context.Background(), []string{"bitcoin"}, "EUR")
	require.Contains(t, prices, "bitcoin")
	btc := prices["bitcoin"]
	assert.True(t, btc.Price.Decimal.Equal(decimal.RequireFromString("41000.5")))
	assert.True(t, btc.Change24h.Decimal.Equal(decimal.RequireFromString("-0.5")))
	require.NotNil(t, btc.LastUpdatedAt)
	assert.Equal(t, int64(1700000000), btc.LastUpdatedAt.Unix())

	assert.Empty(t, client.FetchSimplePrices(context.Background(), nil, "usd"))
}

func TestTrackedCoinsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "coins.csv")
	require.NoError(t, os.WriteFile(path, []byte("coin_id,symbol\nbitcoin,btc\nmatic-network,matic\n"), 0o600))

	client := newTestClient(t, serveFile(t, "markets_five.json"), func(cfg *config.Config) {
		cfg.ExternalClients.CoinGecko.TrackedCoinsFile = path
	})
	assert.ElementsMatch(t, []string{"bitcoin", "matic-network"}, client.TrackedCoins())

	defaults := newTestClient(t, serveFile(t, "markets_five.json"))
	assert.Len(t, defaults.TrackedCoins(), 35)
}
