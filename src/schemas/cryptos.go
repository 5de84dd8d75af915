package schemas

import (
	"strings"

	"cryptofolio/src/models"

	"github.com/shopspring/decimal"
)

// CryptoRequest is the body of create and update calls on /api/cryptos.
type CryptoRequest struct {
	Name         string              `json:"name"`
	Symbol       string              `json:"symbol"`
	CurrentPrice decimal.Decimal     `json:"currentPrice"`
	MarketCap    decimal.NullDecimal `json:"marketCap"`
	Volume24h    decimal.NullDecimal `json:"volume24h"`
	Change24h    decimal.NullDecimal `json:"change24h"`
	Description  *string             `json:"description"`
	ImageURL     *string             `json:"imageUrl"`
}

// Normalize trims text fields and upper-cases the symbol.
func (r *CryptoRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Symbol = models.NormalizeSymbol(r.Symbol)
	if r.Description != nil {
		d := strings.TrimSpace(*r.Description)
		r.Description = &d
	}
}

func (r *CryptoRequest) Validate() error {
	var p problems
	if r.Name == "" {
		p.add("name is required")
	}
	p.maxLen("name", r.Name, models.AssetNameMaxLength)
	if r.Symbol == "" {
		p.add("symbol is required")
	}
	p.maxLen("symbol", r.Symbol, models.AssetSymbolMaxLength)
	if !r.CurrentPrice.IsPositive() {
		p.add("currentPrice must be greater than zero")
	}
	if r.MarketCap.Valid && r.MarketCap.Decimal.IsNegative() {
		p.add("marketCap must not be negative")
	}
	if r.Volume24h.Valid && r.Volume24h.Decimal.IsNegative() {
		p.add("volume24h must not be negative")
	}
	if r.Change24h.Valid && (r.Change24h.Decimal.LessThan(models.MinChange24h) || r.Change24h.Decimal.GreaterThan(models.MaxChange24h)) {
		p.add("change24h must be between %s and %s", models.MinChange24h, models.MaxChange24h)
	}
	if r.Description != nil {
		p.maxLen("description", *r.Description, models.AssetDescriptionMaxLength)
	}
	return p.err()
}

// Apply copies the request onto asset.
func (r *CryptoRequest) Apply(asset *models.Asset) {
	asset.Name = r.Name
	asset.Symbol = r.Symbol
	asset.CurrentPrice = r.CurrentPrice
	asset.MarketCap = r.MarketCap
	asset.Volume24h = r.Volume24h
	asset.Change24h = r.Change24h
	asset.Description = r.Description
	asset.ImageURL = r.ImageURL
}

// CryptoFilter mirrors the query string of GET /api/cryptos.
type CryptoFilter struct {
	Search    string
	Order     string
	MinPrice  decimal.NullDecimal
	MaxPrice  decimal.NullDecimal
	MinChange decimal.NullDecimal
	MaxChange decimal.NullDecimal
}

type CryptoStatsResponse struct {
	CryptoID       int64           `json:"cryptoId"`
	Symbol         string          `json:"symbol"`
	TotalBought    decimal.Decimal `json:"totalBought"`
	TotalSold      decimal.Decimal `json:"totalSold"`
	NetQuantity    decimal.Decimal `json:"netQuantity"`
	CurrentPrice   decimal.Decimal `json:"currentPrice"`
	HeldValue      decimal.Decimal `json:"heldValue"`
	PortfolioCount int             `json:"portfolioCount"`
}
