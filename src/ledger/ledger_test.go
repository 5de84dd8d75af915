package ledger_test

import (
	"testing"

	"cryptofolio/src/ledger"
	"cryptofolio/src/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	btc int64 = 1
	eth int64 = 2
	ada int64 = 4
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func tx(assetID int64, kind models.TransactionType, qty, price string) models.Transaction {
	t := models.Transaction{AssetID: assetID, Type: kind, Quantity: dec(qty), PricePerUnit: dec(price)}
	t.Recompute()
	return t
}

func TestNetPosition(t *testing.T) {
	t.Run("buys minus sells per asset", func(t *testing.T) {
		history := []models.Transaction{
			tx(btc, models.Buy, "0.5", "40000"),
			tx(btc, models.Sell, "0.2", "42000"),
			tx(eth, models.Buy, "3", "3000"),
		}
		positions := ledger.NetPosition(history)
		require.Len(t, positions, 2)
		assert.True(t, dec("0.3").Equal(positions[btc]))
		assert.True(t, dec("3").Equal(positions[eth]))
	})

	t.Run("order does not matter", func(t *testing.T) {
		history := []models.Transaction{
			tx(btc, models.Sell, "0.2", "42000"),
			tx(eth, models.Buy, "3", "3000"),
			tx(btc, models.Buy, "0.5", "40000"),
			tx(eth, models.Sell, "1", "3100"),
		}
		reversed := make([]models.Transaction, len(history))
		for i := range history {
			reversed[len(history)-1-i] = history[i]
		}
		a := ledger.NetPosition(history)
		b := ledger.NetPosition(reversed)
		require.Len(t, b, len(a))
		for id, qty := range a {
			assert.True(t, qty.Equal(b[id]), "asset %d", id)
		}
	})

	t.Run("oversold positions stay negative", func(t *testing.T) {
		history := []models.Transaction{
			tx(btc, models.Buy, "1", "40000"),
			tx(btc, models.Sell, "1.5", "41000"),
		}
		assert.True(t, dec("-0.5").Equal(ledger.NetPosition(history)[btc]))
	})

	t.Run("unknown types are ignored", func(t *testing.T) {
		history := []models.Transaction{
			tx(btc, models.Buy, "1", "40000"),
			{AssetID: btc, Type: "TRANSFER", Quantity: dec("5")},
		}
		assert.True(t, dec("1").Equal(ledger.NetPosition(history)[btc]))
	})
}

func TestCurrentValue(t *testing.T) {
	t.Run("conservative portfolio scenario", func(t *testing.T) {
		history := []models.Transaction{
			tx(btc, models.Buy, "0.1", "44000"),
			tx(eth, models.Buy, "2.0", "3100"),
		}
		prices := map[int64]decimal.Decimal{btc: dec("45000"), eth: dec("3200")}
		assert.Equal(t, "10900", ledger.CurrentValue(history, prices).String())
	})

	t.Run("closed position contributes nothing", func(t *testing.T) {
		history := []models.Transaction{
			tx(ada, models.Buy, "1000", "0.40"),
			tx(ada, models.Sell, "1000", "0.50"),
		}
		assert.True(t, ledger.NetPosition(history)[ada].IsZero())
		for _, price := range []string{"0", "0.45", "100"} {
			prices := map[int64]decimal.Decimal{ada: dec(price)}
			assert.True(t, ledger.CurrentValue(history, prices).IsZero(), "price %s", price)
		}
	})

	t.Run("negative positions are excluded", func(t *testing.T) {
		history := []models.Transaction{
			tx(btc, models.Sell, "1", "40000"),
			tx(eth, models.Buy, "1", "3000"),
		}
		prices := map[int64]decimal.Decimal{btc: dec("50000"), eth: dec("3000")}
		assert.Equal(t, "3000", ledger.CurrentValue(history, prices).String())
	})

	t.Run("missing price counts as zero", func(t *testing.T) {
		history := []models.Transaction{tx(btc, models.Buy, "1", "40000")}
		assert.True(t, ledger.CurrentValue(history, nil).IsZero())
	})

	t.Run("repeated calls agree", func(t *testing.T) {
		history := []models.Transaction{
			tx(btc, models.Buy, "0.12345678", "44000.5"),
			tx(eth, models.Buy, "2.5", "3100"),
			tx(eth, models.Sell, "0.5", "3300"),
		}
		prices := map[int64]decimal.Decimal{btc: dec("45000.25"), eth: dec("3200")}
		first := ledger.CurrentValue(history, prices)
		for i := 0; i < 20; i++ {
			assert.True(t, first.Equal(ledger.CurrentValue(history, prices)))
		}
	})
}

func TestTotals(t *testing.T) {
	history := []models.Transaction{
		tx(btc, models.Buy, "0.1", "44000"),
		tx(eth, models.Buy, "2.0", "3100"),
		tx(btc, models.Sell, "0.05", "46000"),
	}
	assert.Equal(t, "10600", ledger.TotalInvested(history).String())
	assert.Equal(t, "2300", ledger.TotalDivested(history).String())

	summary := ledger.Summarize(history, map[int64]decimal.Decimal{btc: dec("45000"), eth: dec("3200")})
	require.Len(t, summary.Holdings, 2)
	assert.Equal(t, btc, summary.Holdings[0].AssetID)
	assert.Equal(t, "2250", summary.Holdings[0].Value.String())
	assert.Equal(t, "8650", summary.CurrentValue.String())
	assert.Equal(t, "8300", summary.InvestedMinusDivested.String())
}
