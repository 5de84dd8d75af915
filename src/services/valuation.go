package services

import (
	"context"

	"cryptofolio/src/ledger"
	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	"cryptofolio/src/schemas"

	"github.com/shopspring/decimal"
)

// valuate prices the history of portfolio with the stored asset prices.
func valuate(ctx context.Context, store repositories.Store, portfolio *models.Portfolio) (*schemas.PortfolioValuation, error) {
	transactions, err := store.Transactions().GetByPortfolioID(ctx, portfolio.ID)
	if err != nil {
		return nil, err
	}

	seen := map[int64]bool{}
	ids := []int64{}
	for _, t := range transactions {
		if !seen[t.AssetID] {
			seen[t.AssetID] = true
			ids = append(ids, t.AssetID)
		}
	}
	assets, err := store.Assets().GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	prices := make(map[int64]decimal.Decimal, len(assets))
	byID := make(map[int64]models.Asset, len(assets))
	for _, a := range assets {
		prices[a.ID] = a.CurrentPrice
		byID[a.ID] = a
	}

	summary := ledger.Summarize(transactions, prices)
	holdings := make([]schemas.HoldingResponse, 0, len(summary.Holdings))
	for _, h := range summary.Holdings {
		a := byID[h.AssetID]
		holdings = append(holdings, schemas.HoldingResponse{Holding: h, Name: a.Name, Symbol: a.Symbol})
	}

	return &schemas.PortfolioValuation{
		Portfolio:             *portfolio,
		Holdings:              holdings,
		TotalInvested:         summary.TotalInvested,
		TotalDivested:         summary.TotalDivested,
		CurrentValue:          summary.CurrentValue,
		InvestedMinusDivested: summary.InvestedMinusDivested,
		TransactionCount:      len(transactions),
	}, nil
}

// revalue locks the portfolio row, recomputes its value and stores it. store
// should be bound to a transaction so the lock spans the read and the write.
func revalue(ctx context.Context, store repositories.Store, portfolioID int64) (*schemas.PortfolioValuation, error) {
	portfolio, err := store.Portfolios().GetByIDForUpdate(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	valuation, err := valuate(ctx, store, portfolio)
	if err != nil {
		return nil, err
	}
	updated, err := store.Portfolios().UpdateTotalValue(ctx, portfolioID, valuation.CurrentValue)
	if err != nil {
		return nil, err
	}
	valuation.Portfolio = *updated
	return valuation, nil
}
