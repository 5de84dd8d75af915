package coingecko

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// marketRecord is one element of the /coins/markets array. Pointers let the
// parser tell a missing field from a zero value.
type marketRecord struct {
	ID                       string       `json:"id"`
	Name                     *string      `json:"name"`
	Symbol                   *string      `json:"symbol"`
	Image                    *string      `json:"image"`
	CurrentPrice             *json.Number `json:"current_price"`
	MarketCap                *json.Number `json:"market_cap"`
	TotalVolume              *json.Number `json:"total_volume"`
	PriceChangePercentage24h *json.Number `json:"price_change_percentage_24h"`
}

// coinDetail is the subset of /coins/{id} that makes up a snapshot.
type coinDetail struct {
	ID          string            `json:"id"`
	Name        *string           `json:"name"`
	Symbol      *string           `json:"symbol"`
	MarketData  *coinMarketData   `json:"market_data"`
	Description map[string]string `json:"description"`
	Image       json.RawMessage   `json:"image"`
}

type coinMarketData struct {
	CurrentPrice             map[string]json.Number `json:"current_price"`
	MarketCap                map[string]json.Number `json:"market_cap"`
	TotalVolume              map[string]json.Number `json:"total_volume"`
	PriceChangePercentage24h *json.Number           `json:"price_change_percentage_24h"`
}

type coinImage struct {
	Small string `json:"small"`
}

// SimplePrice is one entry of the /simple/price response.
type SimplePrice struct {
	Price         decimal.NullDecimal `json:"price"`
	MarketCap     decimal.NullDecimal `json:"marketCap"`
	Volume24h     decimal.NullDecimal `json:"volume24h"`
	Change24h     decimal.NullDecimal `json:"change24h"`
	LastUpdatedAt *time.Time          `json:"lastUpdatedAt,omitempty"`
}

// SearchResult groups the /search matches by kind.
type SearchResult struct {
	Coins      []SearchCoin     `json:"coins"`
	NFTs       []SearchNFT      `json:"nfts"`
	Categories []SearchCategory `json:"categories"`
}

type SearchCoin struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Symbol        string              `json:"symbol"`
	MarketCapRank *int                `json:"market_cap_rank,omitempty"`
	Price         decimal.NullDecimal `json:"price"`
	MarketCap     string              `json:"market_cap,omitempty"`
}

type SearchNFT struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type SearchCategory struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
	Slug string      `json:"slug"`
}

type searchCoinRecord struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Symbol        string            `json:"symbol"`
	MarketCapRank *int              `json:"market_cap_rank"`
	Item          *searchCoinRecord `json:"item"`
	Data          *struct {
		Price     *json.Number `json:"price"`
		MarketCap string       `json:"market_cap"`
	} `json:"data"`
}

type searchResponse struct {
	Coins      []searchCoinRecord `json:"coins"`
	NFTs       []SearchNFT        `json:"nfts"`
	Categories []SearchCategory   `json:"categories"`
}
