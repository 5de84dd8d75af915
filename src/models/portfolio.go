package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio groups transactions. TotalValue is derived by the ledger and
// only reflects the last revaluation.
type Portfolio struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	TotalValue  decimal.Decimal `db:"total_value" json:"totalValue"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

const (
	PortfolioNameMaxLength        = 100
	PortfolioDescriptionMaxLength = 500
)
