package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Asset is a tracked cryptocurrency with its latest market snapshot.
type Asset struct {
	ID           int64               `db:"id" json:"id"`
	Name         string              `db:"name" json:"name"`
	Symbol       string              `db:"symbol" json:"symbol"`
	CurrentPrice decimal.Decimal     `db:"current_price" json:"currentPrice"`
	MarketCap    decimal.NullDecimal `db:"market_cap" json:"marketCap"`
	Volume24h    decimal.NullDecimal `db:"volume_24h" json:"volume24h"`
	Change24h    decimal.NullDecimal `db:"change_24h" json:"change24h"`
	Description  *string             `db:"description" json:"description,omitempty"`
	ImageURL     *string             `db:"image_url" json:"imageUrl,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updatedAt"`
}

const (
	AssetNameMaxLength        = 100
	AssetSymbolMaxLength      = 10
	AssetDescriptionMaxLength = 500
)

var (
	MinChange24h = decimal.NewFromInt(-100)
	MaxChange24h = decimal.NewFromInt(10000)
)

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// MarketFields is the mutable subset of an Asset refreshed by a sync cycle.
type MarketFields struct {
	CurrentPrice decimal.Decimal
	MarketCap    decimal.NullDecimal
	Volume24h    decimal.NullDecimal
	Change24h    decimal.NullDecimal
}

// MarketFields extracts the snapshot fields that a sync cycle copies onto the stored asset.
func (a *Asset) MarketFields() MarketFields {
	return MarketFields{
		CurrentPrice: a.CurrentPrice,
		MarketCap:    a.MarketCap,
		Volume24h:    a.Volume24h,
		Change24h:    a.Change24h,
	}
}

// Clone returns a deep copy so cached snapshots are never shared.
func (a *Asset) Clone() *Asset {
	if a == nil {
		return nil
	}
	c := *a
	if a.Description != nil {
		d := *a.Description
		c.Description = &d
	}
	if a.ImageURL != nil {
		u := *a.ImageURL
		c.ImageURL = &u
	}
	return &c
}
