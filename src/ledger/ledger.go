// Package ledger derives portfolio holdings and valuations from a
// transaction history. Every function is pure: the same transactions and
// prices always produce the same result.
package ledger

import (
	"sort"

	"cryptofolio/src/models"

	"github.com/shopspring/decimal"
)

// NetPosition returns, per asset, the sum of BUY quantities minus the sum of
// SELL quantities. Other transaction types are ignored. Negative positions
// are returned as-is.
func NetPosition(transactions []models.Transaction) map[int64]decimal.Decimal {
	positions := make(map[int64]decimal.Decimal)
	for _, t := range transactions {
		switch t.Type {
		case models.Buy:
			positions[t.AssetID] = positions[t.AssetID].Add(t.Quantity)
		case models.Sell:
			positions[t.AssetID] = positions[t.AssetID].Sub(t.Quantity)
		}
	}
	return positions
}

// CurrentValue sums net quantity × current price over assets with a strictly
// positive net position. A missing price counts as zero.
func CurrentValue(transactions []models.Transaction, prices map[int64]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for assetID, qty := range NetPosition(transactions) {
		if !qty.IsPositive() {
			continue
		}
		total = total.Add(qty.Mul(prices[assetID]))
	}
	return total
}

// TotalInvested is the sum of TotalValue over BUY transactions.
func TotalInvested(transactions []models.Transaction) decimal.Decimal {
	return sumTotals(transactions, models.Buy)
}

// TotalDivested is the sum of TotalValue over SELL transactions.
func TotalDivested(transactions []models.Transaction) decimal.Decimal {
	return sumTotals(transactions, models.Sell)
}

func sumTotals(transactions []models.Transaction, kind models.TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, t := range transactions {
		if t.Type == kind {
			total = total.Add(t.TotalValue)
		}
	}
	return total
}

// Holding is the valued net position of one asset.
type Holding struct {
	AssetID     int64           `json:"cryptoId"`
	NetQuantity decimal.Decimal `json:"netQuantity"`
	Price       decimal.Decimal `json:"price"`
	Value       decimal.Decimal `json:"value"`
}

// Summary is a full valuation of a transaction history.
type Summary struct {
	Holdings      []Holding       `json:"holdings"`
	TotalInvested decimal.Decimal `json:"totalInvested"`
	TotalDivested decimal.Decimal `json:"totalDivested"`
	CurrentValue  decimal.Decimal `json:"currentValue"`
	// InvestedMinusDivested is the older aggregate valuation, kept for cross-checks.
	InvestedMinusDivested decimal.Decimal `json:"investedMinusDivested"`
}

// Summarize values every position. Holdings are sorted by asset id; only
// positive positions carry a value.
func Summarize(transactions []models.Transaction, prices map[int64]decimal.Decimal) Summary {
	positions := NetPosition(transactions)

	holdings := make([]Holding, 0, len(positions))
	for assetID, qty := range positions {
		h := Holding{AssetID: assetID, NetQuantity: qty, Price: prices[assetID], Value: decimal.Zero}
		if qty.IsPositive() {
			h.Value = qty.Mul(h.Price)
		}
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].AssetID < holdings[j].AssetID })

	invested := TotalInvested(transactions)
	divested := TotalDivested(transactions)
	return Summary{
		Holdings:              holdings,
		TotalInvested:         invested,
		TotalDivested:         divested,
		CurrentValue:          CurrentValue(transactions, prices),
		InvestedMinusDivested: invested.Sub(divested),
	}
}
