package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptofolio/src/broadcast"
	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	"cryptofolio/src/schemas"
	"cryptofolio/src/services"
	"cryptofolio/src/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	store        *repositories.MemoryStore
	events       *recorder
	portfolios   *services.PortfolioService
	transactions *services.TransactionService
	btc, eth     *models.Asset
	ada          *models.Asset
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	store := repositories.NewMemoryStore()
	events := &recorder{}
	return &ledgerFixture{
		store:        store,
		events:       events,
		portfolios:   services.NewPortfolioService(store, events, quietLogger()),
		transactions: services.NewTransactionService(store, events, quietLogger()),
		btc:          createAsset(t, store, "Bitcoin", "BTC", "45000"),
		eth:          createAsset(t, store, "Ethereum", "ETH", "3200"),
		ada:          createAsset(t, store, "Cardano", "ADA", "0.45"),
	}
}

func (f *ledgerFixture) record(t *testing.T, portfolioID int64, asset *models.Asset, kind models.TransactionType, qty, price string) *models.Transaction {
	t.Helper()
	tr, err := f.transactions.Create(context.Background(), schemas.TransactionRequest{
		PortfolioID:  portfolioID,
		CryptoID:     asset.ID,
		Type:         string(kind),
		Quantity:     dec(qty),
		PricePerUnit: dec(price),
	})
	require.NoError(t, err)
	return tr
}

func (f *ledgerFixture) value(t *testing.T, portfolioID int64) string {
	t.Helper()
	p, err := f.portfolios.Get(context.Background(), portfolioID)
	require.NoError(t, err)
	return p.TotalValue.String()
}

// lockRecorder notes every portfolio row locked inside its transactions.
type lockRecorder struct {
	*repositories.MemoryStore
	locked []int64
}

func (s *lockRecorder) WithinTx(ctx context.Context, fn func(repositories.Store) error) error {
	return s.MemoryStore.WithinTx(ctx, func(tx repositories.Store) error {
		return fn(&lockingTx{Store: tx, rec: s})
	})
}

type lockingTx struct {
	repositories.Store
	rec *lockRecorder
}

func (tx *lockingTx) Portfolios() repositories.PortfolioRepository {
	return &lockingPortfolios{PortfolioRepository: tx.Store.Portfolios(), rec: tx.rec}
}

type lockingPortfolios struct {
	repositories.PortfolioRepository
	rec *lockRecorder
}

func (r *lockingPortfolios) GetByIDForUpdate(ctx context.Context, id int64) (*models.Portfolio, error) {
	r.rec.locked = append(r.rec.locked, id)
	return r.PortfolioRepository.GetByIDForUpdate(ctx, id)
}

func TestPortfolioService(t *testing.T) {
	ctx := context.Background()

	t.Run("create rejects duplicate names", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.portfolios.Create(ctx, schemas.PortfolioRequest{Name: " Long term ", Description: "hodl"})
		require.NoError(t, err)

		_, err = f.portfolios.Create(ctx, schemas.PortfolioRequest{Name: "Long term", Description: "again"})
		assert.True(t, errors.Is(err, utils.ErrConflict))
	})

	t.Run("create validates input", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.portfolios.Create(ctx, schemas.PortfolioRequest{Name: "", Description: ""})
		assert.True(t, errors.Is(err, utils.ErrInvalidArgument))
	})

	t.Run("update keeps the derived value", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Growth")
		f.record(t, p.ID, f.eth, models.Buy, "1", "3000")

		updated, err := f.portfolios.Update(ctx, p.ID, schemas.PortfolioRequest{Name: "Growth II", Description: "renamed"})
		require.NoError(t, err)
		assert.Equal(t, "Growth II", updated.Name)
		assert.Equal(t, "3200", updated.TotalValue.String())
	})

	t.Run("update to a taken name conflicts", func(t *testing.T) {
		f := newLedgerFixture(t)
		createPortfolio(t, f.store, "A")
		b := createPortfolio(t, f.store, "B")
		_, err := f.portfolios.Update(ctx, b.ID, schemas.PortfolioRequest{Name: "A", Description: "x"})
		assert.True(t, errors.Is(err, utils.ErrConflict))
	})

	t.Run("delete removes transactions", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Doomed")
		keep := createPortfolio(t, f.store, "Kept")
		f.record(t, p.ID, f.btc, models.Buy, "0.1", "44000")
		f.record(t, p.ID, f.eth, models.Buy, "2", "3100")
		f.record(t, keep.ID, f.eth, models.Buy, "1", "3100")

		require.NoError(t, f.portfolios.Delete(ctx, p.ID))

		_, err := f.portfolios.Get(ctx, p.ID)
		assert.True(t, errors.Is(err, utils.ErrNotFound))
		n, err := f.transactions.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("delete unknown portfolio", func(t *testing.T) {
		f := newLedgerFixture(t)
		assert.True(t, errors.Is(f.portfolios.Delete(ctx, 99), utils.ErrNotFound))
	})

	t.Run("valuation details holdings without persisting", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Conservative")
		f.record(t, p.ID, f.btc, models.Buy, "0.1", "44000")
		f.record(t, p.ID, f.eth, models.Buy, "2", "3100")

		_, err := f.store.Assets().UpdateMarketFields(ctx, "BTC", models.MarketFields{CurrentPrice: dec("50000")})
		require.NoError(t, err)

		v, err := f.portfolios.Valuation(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "11400", v.CurrentValue.String())
		assert.Equal(t, "10600", v.TotalInvested.String())
		assert.Equal(t, 2, v.TransactionCount)
		require.Len(t, v.Holdings, 2)
		assert.Equal(t, "10900", f.value(t, p.ID))

		revalued, err := f.portfolios.Revalue(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "11400", revalued.Portfolio.TotalValue.String())
		assert.Equal(t, "11400", f.value(t, p.ID))
	})

	t.Run("revalue holding touches only affected portfolios", func(t *testing.T) {
		f := newLedgerFixture(t)
		withBTC := createPortfolio(t, f.store, "BTC fans")
		withETH := createPortfolio(t, f.store, "ETH fans")
		f.record(t, withBTC.ID, f.btc, models.Buy, "1", "40000")
		f.record(t, withETH.ID, f.eth, models.Buy, "1", "3000")

		_, err := f.store.Assets().UpdateMarketFields(ctx, "BTC", models.MarketFields{CurrentPrice: dec("47000")})
		require.NoError(t, err)
		before := len(f.events.ofKind(broadcast.PortfolioUpdate))

		valuations, err := f.portfolios.RevalueHolding(ctx, []int64{f.btc.ID})
		require.NoError(t, err)
		require.Len(t, valuations, 1)
		assert.Equal(t, withBTC.ID, valuations[0].Portfolio.ID)
		assert.Equal(t, "47000", f.value(t, withBTC.ID))
		assert.Equal(t, "3200", f.value(t, withETH.ID))
		assert.Len(t, f.events.ofKind(broadcast.PortfolioUpdate), before+1)
	})

	t.Run("transactions of unknown portfolio", func(t *testing.T) {
		f := newLedgerFixture(t)
		_, err := f.portfolios.Transactions(ctx, 42)
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})
}

func TestTransactionService(t *testing.T) {
	ctx := context.Background()

	t.Run("conservative portfolio is valued at current prices", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Conservative")
		buy := f.record(t, p.ID, f.btc, models.Buy, "0.1", "44000")
		f.record(t, p.ID, f.eth, models.Buy, "2.0", "3100")

		assert.Equal(t, "4400", buy.TotalValue.String())
		assert.Equal(t, "10900", f.value(t, p.ID))
		assert.Len(t, f.events.ofKind(broadcast.PortfolioUpdate), 2)
	})

	t.Run("closed positions are worth nothing", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Aggressive")
		f.record(t, p.ID, f.ada, models.Buy, "1000", "0.40")
		assert.Equal(t, "450", f.value(t, p.ID))

		f.record(t, p.ID, f.ada, models.Sell, "1000", "0.50")
		assert.Equal(t, "0", f.value(t, p.ID))
	})

	t.Run("oversold positions are ignored", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Short")
		f.record(t, p.ID, f.btc, models.Sell, "0.05", "46000")
		f.record(t, p.ID, f.eth, models.Buy, "1", "3000")
		assert.Equal(t, "3200", f.value(t, p.ID))
	})

	t.Run("missing references are not found", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Main")

		_, err := f.transactions.Create(ctx, schemas.TransactionRequest{
			PortfolioID: 999, CryptoID: f.btc.ID, Type: "BUY", Quantity: dec("1"), PricePerUnit: dec("1"),
		})
		assert.True(t, errors.Is(err, utils.ErrNotFound))

		_, err = f.transactions.Create(ctx, schemas.TransactionRequest{
			PortfolioID: p.ID, CryptoID: 999, Type: "BUY", Quantity: dec("1"), PricePerUnit: dec("1"),
		})
		assert.True(t, errors.Is(err, utils.ErrNotFound))

		n, err := f.transactions.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("invalid requests are rejected", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Main")
		cases := map[string]schemas.TransactionRequest{
			"unknown type":  {PortfolioID: p.ID, CryptoID: f.btc.ID, Type: "SWAP", Quantity: dec("1"), PricePerUnit: dec("1")},
			"zero quantity": {PortfolioID: p.ID, CryptoID: f.btc.ID, Type: "BUY", Quantity: dec("0"), PricePerUnit: dec("1")},
			"tiny quantity": {PortfolioID: p.ID, CryptoID: f.btc.ID, Type: "BUY", Quantity: dec("0.000000001"), PricePerUnit: dec("1")},
			"free":          {PortfolioID: p.ID, CryptoID: f.btc.ID, Type: "BUY", Quantity: dec("1"), PricePerUnit: dec("0")},
		}
		for name, req := range cases {
			_, err := f.transactions.Create(ctx, req)
			assert.True(t, errors.Is(err, utils.ErrInvalidArgument), name)
		}
	})

	t.Run("lower case type is accepted", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Main")
		tr, err := f.transactions.Create(ctx, schemas.TransactionRequest{
			PortfolioID: p.ID, CryptoID: f.btc.ID, Type: " buy ", Quantity: dec("1"), PricePerUnit: dec("1"),
		})
		require.NoError(t, err)
		assert.Equal(t, models.Buy, tr.Type)
	})

	t.Run("explicit total value is kept on create", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Fees")
		tr, err := f.transactions.Create(ctx, schemas.TransactionRequest{
			PortfolioID: p.ID, CryptoID: f.btc.ID, Type: "BUY",
			Quantity: dec("0.1"), PricePerUnit: dec("44000"), TotalValue: nullDec("4410"),
		})
		require.NoError(t, err)
		assert.Equal(t, "4410", tr.TotalValue.String())
	})

	t.Run("moving a transaction revalues both portfolios", func(t *testing.T) {
		f := newLedgerFixture(t)
		from := createPortfolio(t, f.store, "From")
		to := createPortfolio(t, f.store, "To")
		tr := f.record(t, from.ID, f.eth, models.Buy, "2", "3100")
		assert.Equal(t, "6400", f.value(t, from.ID))

		updated, err := f.transactions.Update(ctx, tr.ID, schemas.TransactionRequest{
			PortfolioID: to.ID, CryptoID: f.eth.ID, Type: "BUY", Quantity: dec("3"), PricePerUnit: dec("3000"),
		})
		require.NoError(t, err)
		assert.Equal(t, "9000", updated.TotalValue.String())
		assert.Equal(t, "0", f.value(t, from.ID))
		assert.Equal(t, "9600", f.value(t, to.ID))
	})

	t.Run("moves lock portfolios in ascending id order", func(t *testing.T) {
		f := newLedgerFixture(t)
		low := createPortfolio(t, f.store, "Low")
		high := createPortfolio(t, f.store, "High")
		require.Less(t, low.ID, high.ID)
		rec := &lockRecorder{MemoryStore: f.store}
		transactions := services.NewTransactionService(rec, f.events, quietLogger())
		tr := f.record(t, high.ID, f.btc, models.Buy, "1", "40000")

		for _, target := range []int64{low.ID, high.ID} {
			rec.locked = nil
			_, err := transactions.Update(ctx, tr.ID, schemas.TransactionRequest{
				PortfolioID: target, CryptoID: f.btc.ID, Type: "BUY", Quantity: dec("1"), PricePerUnit: dec("40000"),
			})
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(rec.locked), 2)
			assert.Equal(t, []int64{low.ID, high.ID}, rec.locked[:2])
			assert.Equal(t, "45000", f.value(t, target))
		}
		assert.Equal(t, "0", f.value(t, low.ID))
	})

	t.Run("delete revalues the portfolio", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Main")
		f.record(t, p.ID, f.btc, models.Buy, "0.1", "44000")
		tr := f.record(t, p.ID, f.eth, models.Buy, "2", "3100")

		require.NoError(t, f.transactions.Delete(ctx, tr.ID))
		assert.Equal(t, "4500", f.value(t, p.ID))
		_, err := f.transactions.Get(ctx, tr.ID)
		assert.True(t, errors.Is(err, utils.ErrNotFound))
	})

	t.Run("list filters", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Main")
		f.record(t, p.ID, f.btc, models.Buy, "0.1", "44000")
		f.record(t, p.ID, f.btc, models.Sell, "0.05", "46000")
		f.record(t, p.ID, f.eth, models.Buy, "1", "3000")

		sells, err := f.transactions.List(ctx, schemas.TransactionFilter{Type: "SELL"})
		require.NoError(t, err)
		assert.Len(t, sells, 1)

		btcID := f.btc.ID
		btcOnly, err := f.transactions.List(ctx, schemas.TransactionFilter{CryptoID: &btcID})
		require.NoError(t, err)
		assert.Len(t, btcOnly, 2)

		_, err = f.transactions.List(ctx, schemas.TransactionFilter{Type: "GIFT"})
		assert.True(t, errors.Is(err, utils.ErrInvalidArgument))

		start := time.Now()
		end := start.Add(-time.Hour)
		_, err = f.transactions.List(ctx, schemas.TransactionFilter{Start: &start, End: &end})
		assert.True(t, errors.Is(err, utils.ErrInvalidArgument))
	})

	t.Run("referenced cryptos cannot be deleted", func(t *testing.T) {
		f := newLedgerFixture(t)
		p := createPortfolio(t, f.store, "Main")
		f.record(t, p.ID, f.btc, models.Buy, "0.1", "44000")

		assets := services.NewAssetService(f.store, nil, quietLogger())
		assert.True(t, errors.Is(assets.Delete(ctx, f.btc.ID), utils.ErrConflict))
		require.NoError(t, assets.Delete(ctx, f.ada.ID))
	})
}
