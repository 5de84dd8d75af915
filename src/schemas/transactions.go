package schemas

import (
	"strings"
	"time"

	"cryptofolio/src/models"

	"github.com/shopspring/decimal"
)

type TransactionRequest struct {
	PortfolioID  int64           `json:"portfolioId"`
	CryptoID     int64           `json:"cryptoId"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit"`
	// TotalValue is honoured on create only; updates always recompute it.
	TotalValue      decimal.NullDecimal `json:"totalValue"`
	Notes           *string             `json:"notes"`
	TransactionDate *time.Time          `json:"transactionDate"`
}

func (r *TransactionRequest) Normalize() {
	r.Type = strings.ToUpper(strings.TrimSpace(r.Type))
	if r.Notes != nil {
		n := strings.TrimSpace(*r.Notes)
		r.Notes = &n
	}
}

func (r *TransactionRequest) Validate() error {
	var p problems
	if r.PortfolioID <= 0 {
		p.add("portfolioId is required")
	}
	if r.CryptoID <= 0 {
		p.add("cryptoId is required")
	}
	if !models.TransactionType(r.Type).Valid() {
		p.add("type must be BUY or SELL")
	}
	if !r.Quantity.IsPositive() {
		p.add("quantity must be greater than zero")
	} else if !r.Quantity.Round(models.QuantityScale).IsPositive() {
		p.add("quantity must be at least 0.00000001")
	}
	if !r.PricePerUnit.IsPositive() {
		p.add("pricePerUnit must be greater than zero")
	}
	if r.TotalValue.Valid && r.TotalValue.Decimal.IsNegative() {
		p.add("totalValue must not be negative")
	}
	if r.Notes != nil {
		p.maxLen("notes", *r.Notes, models.TransactionNotesMaxSize)
	}
	return p.err()
}

type TransactionFilter struct {
	PortfolioID *int64
	CryptoID    *int64
	Type        string
	Start       *time.Time
	End         *time.Time
}
