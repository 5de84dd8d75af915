package coingecko

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptofolio/src/config"
	"cryptofolio/src/models"
	"cryptofolio/src/utils"
	"cryptofolio/src/utils/requests"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	// MaxPerPage is the largest page the markets endpoint serves.
	MaxPerPage = 250

	DefaultHealthTTL = 60 * time.Second

	pingMarker = "To the Moon"
)

// DefaultTrackedCoins is used when neither the config nor the tracked coins file lists any coin.
var DefaultTrackedCoins = []string{
	"bitcoin", "ethereum", "binancecoin", "cardano", "solana",
	"ripple", "polkadot", "dogecoin", "avalanche-2", "shiba-inu",
	"tron", "chainlink", "polygon", "litecoin", "uniswap",
	"bitcoin-cash", "stellar", "ethereum-classic", "monero", "cosmos",
	"algorand", "vechain", "filecoin", "theta-token", "aave",
	"eos", "tezos", "axie-infinity", "the-sandbox", "decentraland",
	"gala", "enjincoin", "mana", "flow", "near",
}

// MarketDataClientI is the upstream market-data contract. No method returns
// transport or parse errors: failures are logged and turned into empty
// results, false, or utils.ErrNotFound.
type MarketDataClientI interface {
	FetchSnapshot(ctx context.Context, coinID string) (*models.Asset, error)
	FetchMarket(ctx context.Context, ids []string, limit int) []models.Asset
	FetchTopByMarketCap(ctx context.Context, limit int) []models.Asset
	FetchSimplePrices(ctx context.Context, ids []string, vsCurrency string) map[string]SimplePrice
	Search(ctx context.Context, query string) (*SearchResult, error)
	IsHealthy(ctx context.Context) bool
	ResetHealth()
	TrackedCoins() []string
	BaseURL() string
}

// Client talks to the CoinGecko v3 API.
type Client struct {
	API          *requests.ExternalAPIService
	baseURL      string
	vsCurrency   string
	trackedCoins []string
	symbolByCoin map[string]string

	health    *utils.Cache[bool]
	healthTTL time.Duration

	log *logrus.Logger
}

// NewClient creates a new instance of Client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	cgCfg := cfg.ExternalClients.CoinGecko

	var headers map[string]string
	if cgCfg.APIKey != "" {
		headers = map[string]string{"x-cg-demo-api-key": cgCfg.APIKey}
	}

	symbolByCoin := map[string]string{}
	if cgCfg.TrackedCoinsFile != "" {
		fromFile, err := utils.CSVToMap(cgCfg.TrackedCoinsFile)
		if err != nil {
			return nil, err
		}
		for coin, symbol := range fromFile {
			symbolByCoin[coin] = models.NormalizeSymbol(symbol)
		}
	}

	tracked := cgCfg.TrackedCoins
	if len(tracked) == 0 && len(symbolByCoin) > 0 {
		tracked = make([]string, 0, len(symbolByCoin))
		for coin := range symbolByCoin {
			tracked = append(tracked, coin)
		}
	}
	if len(tracked) == 0 {
		tracked = DefaultTrackedCoins
	}

	healthTTL := cfg.Sync.HealthTTL
	if healthTTL <= 0 {
		healthTTL = DefaultHealthTTL
	}
	vs := strings.ToLower(cgCfg.VsCurrency)
	if vs == "" {
		vs = "usd"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Client{
		API:          requests.NewExternalAPIService(cgCfg.Timeout, cgCfg.MaxResponseBytes, headers),
		baseURL:      strings.TrimRight(cgCfg.BaseURL, "/"),
		vsCurrency:   vs,
		trackedCoins: tracked,
		symbolByCoin: symbolByCoin,
		health:       utils.NewCache[bool](),
		healthTTL:    healthTTL,
		log:          logger,
	}, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

// TrackedCoins returns a copy of the coin ids synced every cycle.
func (c *Client) TrackedCoins() []string {
	out := make([]string, len(c.trackedCoins))
	copy(out, c.trackedCoins)
	return out
}

// get performs a GET and classifies non-2xx answers as ErrRateLimited or ErrUpstreamUnavailable.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	resp, err := c.API.Get(ctx, c.baseURL+path, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrUpstreamUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: GET %s", utils.ErrRateLimited, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: GET %s returned HTTP %d", utils.ErrUpstreamUnavailable, path, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *Client) logUpstreamError(op string, err error) {
	if errors.Is(err, utils.ErrRateLimited) {
		c.log.WithField("op", op).Warn("CoinGecko rate limit exceeded, backing off until the next cycle")
		return
	}
	c.log.WithField("op", op).WithError(err).Error("CoinGecko request failed")
}

// FetchSnapshot fetches the full detail of one coin. Any missing required
// field yields utils.ErrNotFound instead of a partial asset.
func (c *Client) FetchSnapshot(ctx context.Context, coinID string) (*models.Asset, error) {
	coinID = strings.TrimSpace(coinID)
	if coinID == "" {
		return nil, fmt.Errorf("coin id is required: %w", utils.ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("tickers", "false")
	params.Set("market_data", "true")
	params.Set("community_data", "false")
	params.Set("developer_data", "false")
	params.Set("sparkline", "false")

	body, err := c.get(ctx, "/coins/"+url.PathEscape(coinID), params)
	if err != nil {
		c.logUpstreamError("snapshot", err)
		return nil, fmt.Errorf("coin %s: %w", coinID, utils.ErrNotFound)
	}

	asset, err := c.parseSnapshot(body)
	if err != nil {
		c.log.WithField("coin", coinID).WithError(err).Warn("Discarding incomplete coin snapshot")
		return nil, fmt.Errorf("coin %s: %w", coinID, utils.ErrNotFound)
	}
	if override, ok := c.symbolByCoin[coinID]; ok {
		asset.Symbol = override
	}

	c.log.WithFields(logrus.Fields{"coin": coinID, "price": asset.CurrentPrice.String()}).Info("Parsed coin snapshot")
	return asset, nil
}

func (c *Client) parseSnapshot(body []byte) (*models.Asset, error) {
	var detail coinDetail
	if err := decode(body, &detail); err != nil {
		return nil, err
	}
	if detail.Name == nil || detail.Symbol == nil {
		return nil, errors.New("missing name or symbol")
	}
	if detail.MarketData == nil {
		return nil, errors.New("missing market_data")
	}

	price, ok := detail.MarketData.CurrentPrice[c.vsCurrency]
	if !ok {
		return nil, errors.New("missing market_data.current_price")
	}
	marketCap, ok := detail.MarketData.MarketCap[c.vsCurrency]
	if !ok {
		return nil, errors.New("missing market_data.market_cap")
	}
	volume, ok := detail.MarketData.TotalVolume[c.vsCurrency]
	if !ok {
		return nil, errors.New("missing market_data.total_volume")
	}

	asset := &models.Asset{
		Name:   *detail.Name,
		Symbol: models.NormalizeSymbol(*detail.Symbol),
	}
	var err error
	if asset.CurrentPrice, err = decimal.NewFromString(price.String()); err != nil {
		return nil, fmt.Errorf("current_price: %w", err)
	}
	if asset.MarketCap, err = toNullDecimal(&marketCap); err != nil {
		return nil, fmt.Errorf("market_cap: %w", err)
	}
	if asset.Volume24h, err = toNullDecimal(&volume); err != nil {
		return nil, fmt.Errorf("total_volume: %w", err)
	}
	if asset.Change24h, err = toNullDecimal(detail.MarketData.PriceChangePercentage24h); err != nil {
		return nil, fmt.Errorf("price_change_percentage_24h: %w", err)
	}

	if en := detail.Description["en"]; en != "" {
		asset.Description = &en
	}
	if img := parseImage(detail.Image); img != "" {
		asset.ImageURL = &img
	}
	return asset, nil
}

func parseImage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var nested coinImage
	if err := json.Unmarshal(raw, &nested); err == nil && nested.Small != "" {
		return nested.Small
	}
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return plain
	}
	return ""
}

// FetchMarket returns market snapshots for ids ordered by descending market
// cap, at most min(limit, MaxPerPage). Malformed records are skipped.
func (c *Client) FetchMarket(ctx context.Context, ids []string, limit int) []models.Asset {
	params := c.marketParams(limit)
	params.Set("ids", strings.Join(ids, ","))
	return c.fetchMarkets(ctx, "market", params)
}

// FetchTopByMarketCap returns the top coins by market cap without an id filter.
func (c *Client) FetchTopByMarketCap(ctx context.Context, limit int) []models.Asset {
	return c.fetchMarkets(ctx, "top_market", c.marketParams(limit))
}

func (c *Client) marketParams(limit int) url.Values {
	if limit <= 0 || limit > MaxPerPage {
		limit = MaxPerPage
	}
	params := url.Values{}
	params.Set("vs_currency", c.vsCurrency)
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(limit))
	params.Set("page", "1")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")
	return params
}

func (c *Client) fetchMarkets(ctx context.Context, op string, params url.Values) []models.Asset {
	c.log.WithFields(logrus.Fields{"op": op, "per_page": params.Get("per_page")}).Info("Fetching market data")

	body, err := c.get(ctx, "/coins/markets", params)
	if err != nil {
		c.logUpstreamError(op, err)
		return []models.Asset{}
	}

	assets := c.parseMarkets(body)
	if len(assets) == 0 {
		c.log.WithFields(logrus.Fields{"op": op, "response": truncate(body, 500)}).Warn("No assets parsed from market response")
	} else {
		c.log.WithFields(logrus.Fields{"op": op, "count": len(assets)}).Info("Parsed market data")
	}
	return assets
}

func (c *Client) parseMarkets(body []byte) []models.Asset {
	assets := []models.Asset{}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		c.log.Warn("Empty market response")
		return assets
	}
	if trimmed[0] != '[' {
		c.log.WithField("response", truncate(trimmed, 200)).Error("Market response is not an array")
		return assets
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		c.log.WithError(err).WithField("response", truncate(trimmed, 500)).Error("Malformed market response")
		return assets
	}

	for _, raw := range records {
		var rec marketRecord
		if err := decode(raw, &rec); err != nil {
			c.log.WithError(err).Error("Skipping unparsable market record")
			continue
		}
		if rec.Name == nil || rec.Symbol == nil || rec.CurrentPrice == nil {
			c.log.WithField("record", truncate(raw, 200)).Warn("Skipping market record without name, symbol or current_price")
			continue
		}

		asset := models.Asset{Name: *rec.Name, Symbol: models.NormalizeSymbol(*rec.Symbol)}
		if override, ok := c.symbolByCoin[rec.ID]; ok {
			asset.Symbol = override
		}

		var err error
		if asset.CurrentPrice, err = decimal.NewFromString(rec.CurrentPrice.String()); err != nil {
			c.log.WithError(err).WithField("coin", rec.ID).Warn("Skipping market record with invalid current_price")
			continue
		}
		if !asset.CurrentPrice.IsPositive() {
			c.log.WithFields(logrus.Fields{"coin": rec.ID, "price": asset.CurrentPrice.String()}).Warn("Skipping market record with non-positive current_price")
			continue
		}
		if asset.MarketCap, err = toNullDecimal(rec.MarketCap); err != nil {
			c.log.WithError(err).WithField("coin", rec.ID).Warn("Skipping market record with invalid market_cap")
			continue
		}
		if asset.Volume24h, err = toNullDecimal(rec.TotalVolume); err != nil {
			c.log.WithError(err).WithField("coin", rec.ID).Warn("Skipping market record with invalid total_volume")
			continue
		}
		if asset.Change24h, err = toNullDecimal(rec.PriceChangePercentage24h); err != nil {
			c.log.WithError(err).WithField("coin", rec.ID).Warn("Skipping market record with invalid price change")
			continue
		}
		if rec.Image != nil && *rec.Image != "" {
			img := *rec.Image
			asset.ImageURL = &img
		}

		assets = append(assets, asset)
		c.log.WithFields(logrus.Fields{"name": asset.Name, "symbol": asset.Symbol, "price": asset.CurrentPrice.String()}).Debug("Parsed market record")
	}
	return assets
}

// FetchSimplePrices returns the compact /simple/price view keyed by coin id.
func (c *Client) FetchSimplePrices(ctx context.Context, ids []string, vsCurrency string) map[string]SimplePrice {
	result := map[string]SimplePrice{}
	vs := strings.ToLower(strings.TrimSpace(vsCurrency))
	if vs == "" {
		vs = c.vsCurrency
	}
	if len(ids) == 0 {
		return result
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", vs)
	params.Set("include_market_cap", "true")
	params.Set("include_24hr_vol", "true")
	params.Set("include_24hr_change", "true")
	params.Set("include_last_updated_at", "true")

	body, err := c.get(ctx, "/simple/price", params)
	if err != nil {
		c.logUpstreamError("simple_price", err)
		return result
	}

	var raw map[string]map[string]json.Number
	if err := decode(body, &raw); err != nil {
		c.log.WithError(err).Error("Malformed simple price response")
		return result
	}

	for coin, fields := range raw {
		var entry SimplePrice
		entry.Price = numberField(fields, vs)
		entry.MarketCap = numberField(fields, vs+"_market_cap")
		entry.Volume24h = numberField(fields, vs+"_24h_vol")
		entry.Change24h = numberField(fields, vs+"_24h_change")
		if ts, ok := fields["last_updated_at"]; ok {
			if secs, err := ts.Int64(); err == nil {
				at := time.Unix(secs, 0).UTC()
				entry.LastUpdatedAt = &at
			}
		}
		result[coin] = entry
	}

	c.log.WithField("count", len(result)).Info("Fetched simple prices")
	return result
}

func numberField(fields map[string]json.Number, key string) decimal.NullDecimal {
	n, ok := fields[key]
	if !ok {
		return decimal.NullDecimal{}
	}
	d, err := toNullDecimal(&n)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return d
}

// Search looks coins, NFTs and categories up by free text.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is required: %w", utils.ErrInvalidArgument)
	}

	result := &SearchResult{Coins: []SearchCoin{}, NFTs: []SearchNFT{}, Categories: []SearchCategory{}}

	params := url.Values{}
	params.Set("query", query)
	body, err := c.get(ctx, "/search", params)
	if err != nil {
		c.logUpstreamError("search", err)
		return result, nil
	}

	var resp searchResponse
	if err := decode(body, &resp); err != nil {
		c.log.WithError(err).Error("Malformed search response")
		return result, nil
	}

	for _, rec := range resp.Coins {
		item := rec
		if rec.Item != nil {
			item = *rec.Item
		}
		coin := SearchCoin{ID: item.ID, Name: item.Name, Symbol: item.Symbol, MarketCapRank: item.MarketCapRank}
		if item.Data != nil {
			coin.Price, _ = toNullDecimal(item.Data.Price)
			coin.MarketCap = item.Data.MarketCap
		}
		result.Coins = append(result.Coins, coin)
	}
	if resp.NFTs != nil {
		result.NFTs = resp.NFTs
	}
	if resp.Categories != nil {
		result.Categories = resp.Categories
	}

	c.log.WithFields(logrus.Fields{
		"query":      query,
		"coins":      len(result.Coins),
		"nfts":       len(result.NFTs),
		"categories": len(result.Categories),
	}).Info("Search completed")
	return result, nil
}

// IsHealthy pings the API. The answer, including failures, is cached for
// the health TTL so repeated checks do not hit the upstream.
func (c *Client) IsHealthy(ctx context.Context) bool {
	if healthy, ok := c.health.Get(); ok {
		c.log.Debug("Returning cached CoinGecko health status")
		return healthy
	}

	body, err := c.get(ctx, "/ping", nil)
	if err != nil {
		if errors.Is(err, utils.ErrRateLimited) {
			c.log.Debug("Rate limited while checking CoinGecko health")
		} else {
			c.log.WithError(err).Error("CoinGecko health check failed")
		}
		c.health.Set(false, c.healthTTL)
		return false
	}

	healthy := bytes.Contains(body, []byte(pingMarker))
	c.health.Set(healthy, c.healthTTL)
	if healthy {
		c.log.Debug("CoinGecko API is healthy")
	} else {
		c.log.Warn("CoinGecko API answered the ping unexpectedly")
	}
	return healthy
}

// ResetHealth drops the cached health status.
func (c *Client) ResetHealth() {
	c.health.Clear()
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func toNullDecimal(n *json.Number) (decimal.NullDecimal, error) {
	if n == nil || n.String() == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
