package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	Buy  TransactionType = "BUY"
	Sell TransactionType = "SELL"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == Buy || t == Sell
}

const (
	QuantityScale           = 8
	TransactionNotesMaxSize = 500
)

type Transaction struct {
	ID              int64           `db:"id" json:"id"`
	PortfolioID     int64           `db:"portfolio_id" json:"portfolioId"`
	AssetID         int64           `db:"crypto_id" json:"cryptoId"`
	Type            TransactionType `db:"type" json:"type"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	PricePerUnit    decimal.Decimal `db:"price_per_unit" json:"pricePerUnit"`
	TotalValue      decimal.Decimal `db:"total_value" json:"totalValue"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	TransactionDate time.Time       `db:"transaction_date" json:"transactionDate"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
}

// Recompute sets TotalValue to Quantity × PricePerUnit after rounding the
// quantity to its stored scale.
func (t *Transaction) Recompute() {
	t.Quantity = t.Quantity.Round(QuantityScale)
	t.TotalValue = t.Quantity.Mul(t.PricePerUnit)
}
