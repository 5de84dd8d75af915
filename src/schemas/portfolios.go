package schemas

import (
	"strings"

	"cryptofolio/src/ledger"
	"cryptofolio/src/models"

	"github.com/shopspring/decimal"
)

type PortfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *PortfolioRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *PortfolioRequest) Validate() error {
	var p problems
	if r.Name == "" {
		p.add("name is required")
	}
	p.maxLen("name", r.Name, models.PortfolioNameMaxLength)
	if r.Description == "" {
		p.add("description is required")
	}
	p.maxLen("description", r.Description, models.PortfolioDescriptionMaxLength)
	return p.err()
}

type PortfolioFilter struct {
	Search   string
	Order    string
	MinValue decimal.NullDecimal
	MaxValue decimal.NullDecimal
}

// HoldingResponse is a ledger holding enriched with the asset identity.
type HoldingResponse struct {
	ledger.Holding
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// PortfolioValuation is the payload of GET /api/portfolios/{id}/valuation
// and of portfolio_update events.
type PortfolioValuation struct {
	Portfolio             models.Portfolio  `json:"portfolio"`
	Holdings              []HoldingResponse `json:"holdings"`
	TotalInvested         decimal.Decimal   `json:"totalInvested"`
	TotalDivested         decimal.Decimal   `json:"totalDivested"`
	CurrentValue          decimal.Decimal   `json:"currentValue"`
	InvestedMinusDivested decimal.Decimal   `json:"investedMinusDivested"`
	TransactionCount      int               `json:"transactionCount"`
}
