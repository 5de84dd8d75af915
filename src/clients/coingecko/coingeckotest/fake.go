// Package coingeckotest provides an in-memory MarketDataClientI for tests.
package coingeckotest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/models"
	"cryptofolio/src/utils"

	"github.com/shopspring/decimal"
)

// FakeClient serves canned market data and counts calls.
type FakeClient struct {
	mu        sync.Mutex
	healthy   bool
	market    []models.Asset
	snapshots map[string]*models.Asset
	tracked   []string

	// SnapshotHook runs inside FetchSnapshot before the lookup, letting tests block or slow it.
	SnapshotHook func(coinID string)
	// MarketHook runs inside FetchMarket before the payload is returned.
	MarketHook func()

	HealthCalls   atomic.Int32
	MarketCalls   atomic.Int32
	SnapshotCalls atomic.Int32
	ResetCalls    atomic.Int32
}

var _ coingecko.MarketDataClientI = (*FakeClient)(nil)

func NewFakeClient(tracked ...string) *FakeClient {
	return &FakeClient{healthy: true, snapshots: map[string]*models.Asset{}, tracked: tracked}
}

func (f *FakeClient) SetHealthy(healthy bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthy = healthy
}

// SetMarket replaces the payload returned by FetchMarket and FetchTopByMarketCap.
func (f *FakeClient) SetMarket(assets ...models.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.market = assets
}

func (f *FakeClient) SetSnapshot(coinID string, asset *models.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[coinID] = asset
}

func (f *FakeClient) FetchSnapshot(_ context.Context, coinID string) (*models.Asset, error) {
	f.SnapshotCalls.Add(1)
	if f.SnapshotHook != nil {
		f.SnapshotHook(coinID)
	}
	if strings.TrimSpace(coinID) == "" {
		return nil, fmt.Errorf("coin id is required: %w", utils.ErrInvalidArgument)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.snapshots[coinID]
	if !ok {
		return nil, fmt.Errorf("coin %s: %w", coinID, utils.ErrNotFound)
	}
	return a.Clone(), nil
}

func (f *FakeClient) copyMarket(limit int) []models.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Asset{}
	for i, a := range f.market {
		if limit > 0 && i >= limit {
			break
		}
		out = append(out, *a.Clone())
	}
	return out
}

func (f *FakeClient) FetchMarket(_ context.Context, _ []string, limit int) []models.Asset {
	f.MarketCalls.Add(1)
	if f.MarketHook != nil {
		f.MarketHook()
	}
	return f.copyMarket(limit)
}

func (f *FakeClient) FetchTopByMarketCap(_ context.Context, limit int) []models.Asset {
	f.MarketCalls.Add(1)
	return f.copyMarket(limit)
}

func (f *FakeClient) FetchSimplePrices(_ context.Context, ids []string, _ string) map[string]coingecko.SimplePrice {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]coingecko.SimplePrice{}
	for _, id := range ids {
		if a, ok := f.snapshots[id]; ok {
			out[id] = coingecko.SimplePrice{Price: nullOf(a), MarketCap: a.MarketCap, Volume24h: a.Volume24h, Change24h: a.Change24h}
		}
	}
	return out
}

func (f *FakeClient) Search(_ context.Context, query string) (*coingecko.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is required: %w", utils.ErrInvalidArgument)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	result := &coingecko.SearchResult{Coins: []coingecko.SearchCoin{}, NFTs: []coingecko.SearchNFT{}, Categories: []coingecko.SearchCategory{}}
	for id, a := range f.snapshots {
		if strings.Contains(strings.ToLower(a.Name), strings.ToLower(query)) {
			result.Coins = append(result.Coins, coingecko.SearchCoin{ID: id, Name: a.Name, Symbol: a.Symbol})
		}
	}
	return result, nil
}

func (f *FakeClient) IsHealthy(context.Context) bool {
	f.HealthCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy
}

func (f *FakeClient) ResetHealth() { f.ResetCalls.Add(1) }

func (f *FakeClient) TrackedCoins() []string {
	out := make([]string, len(f.tracked))
	copy(out, f.tracked)
	return out
}

func (f *FakeClient) BaseURL() string { return "http://coingecko.test" }

func nullOf(a *models.Asset) decimal.NullDecimal {
	return decimal.NewNullDecimal(a.CurrentPrice)
}
