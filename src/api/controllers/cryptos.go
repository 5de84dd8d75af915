package controllers

import (
	"context"
	"fmt"
	"strings"

	"cryptofolio/src/clients/coingecko"
	"cryptofolio/src/models"
	"cryptofolio/src/schemas"
	"cryptofolio/src/services"
	"cryptofolio/src/utils"
)

const (
	defaultTopLimit = 50
	maxTopLimit     = coingecko.MaxPerPage
)

type CryptosControllerI interface {
	GetAllCryptos(ctx context.Context, filter schemas.CryptoFilter) ([]models.Asset, error)
	GetCryptoByID(ctx context.Context, id int64) (*models.Asset, error)
	GetCryptoBySymbol(ctx context.Context, symbol string) (*models.Asset, error)
	CreateCrypto(ctx context.Context, req schemas.CryptoRequest) (*models.Asset, error)
	UpdateCrypto(ctx context.Context, id int64, req schemas.CryptoRequest) (*models.Asset, error)
	DeleteCrypto(ctx context.Context, id int64) error
	GetCryptoStats(ctx context.Context, id int64) (*schemas.CryptoStatsResponse, error)
	GetLiveSnapshot(ctx context.Context, coinID string) (*models.Asset, error)
	GetTopByMarketCap(ctx context.Context, limit int) (*schemas.MarketListResponse, error)
	GetSimplePrices(ctx context.Context, ids []string, vsCurrency string) (*schemas.SimplePriceResponse, error)
	SearchMarket(ctx context.Context, query string) (*schemas.SearchResponse, error)
}

type CryptosController struct {
	Assets     services.AssetServiceI
	Market     coingecko.MarketDataClientI
	VsCurrency string
}

func NewCryptosController(assets services.AssetServiceI, market coingecko.MarketDataClientI, vsCurrency string) *CryptosController {
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	return &CryptosController{Assets: assets, Market: market, VsCurrency: vsCurrency}
}

func (c *CryptosController) GetAllCryptos(ctx context.Context, filter schemas.CryptoFilter) ([]models.Asset, error) {
	return c.Assets.List(ctx, filter)
}

func (c *CryptosController) GetCryptoByID(ctx context.Context, id int64) (*models.Asset, error) {
	return c.Assets.Get(ctx, id)
}

func (c *CryptosController) GetCryptoBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	return c.Assets.GetBySymbol(ctx, symbol)
}

func (c *CryptosController) CreateCrypto(ctx context.Context, req schemas.CryptoRequest) (*models.Asset, error) {
	return c.Assets.Create(ctx, req)
}

func (c *CryptosController) UpdateCrypto(ctx context.Context, id int64, req schemas.CryptoRequest) (*models.Asset, error) {
	return c.Assets.Update(ctx, id, req)
}

func (c *CryptosController) DeleteCrypto(ctx context.Context, id int64) error {
	return c.Assets.Delete(ctx, id)
}

func (c *CryptosController) GetCryptoStats(ctx context.Context, id int64) (*schemas.CryptoStatsResponse, error) {
	return c.Assets.Stats(ctx, id)
}

func (c *CryptosController) GetLiveSnapshot(ctx context.Context, coinID string) (*models.Asset, error) {
	return c.Assets.Snapshot(ctx, coinID)
}

func (c *CryptosController) GetTopByMarketCap(ctx context.Context, limit int) (*schemas.MarketListResponse, error) {
	if limit <= 0 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		return nil, fmt.Errorf("limit must not exceed %d: %w", maxTopLimit, utils.ErrInvalidArgument)
	}
	assets := c.Market.FetchTopByMarketCap(ctx, limit)
	if len(assets) == 0 {
		return nil, fmt.Errorf("no market data received: %w", utils.ErrUpstreamUnavailable)
	}
	return &schemas.MarketListResponse{Count: len(assets), Data: assets}, nil
}

func (c *CryptosController) GetSimplePrices(ctx context.Context, ids []string, vsCurrency string) (*schemas.SimplePriceResponse, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.ToLower(strings.TrimSpace(id)); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("ids is required: %w", utils.ErrInvalidArgument)
	}
	vs := strings.ToLower(strings.TrimSpace(vsCurrency))
	if vs == "" {
		vs = c.VsCurrency
	}

	prices := c.Market.FetchSimplePrices(ctx, cleaned, vs)
	return &schemas.SimplePriceResponse{
		Success:    len(prices) > 0,
		Count:      len(prices),
		VsCurrency: vs,
		Data:       prices,
	}, nil
}

func (c *CryptosController) SearchMarket(ctx context.Context, query string) (*schemas.SearchResponse, error) {
	result, err := c.Market.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return &schemas.SearchResponse{
		Success: true,
		Query:   strings.TrimSpace(query),
		Data:    result,
		Counts: map[string]int{
			"coins":      len(result.Coins),
			"nfts":       len(result.NFTs),
			"categories": len(result.Categories),
		},
	}, nil
}
