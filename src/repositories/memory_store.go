package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cryptofolio/src/models"
	"cryptofolio/src/utils"

	"github.com/shopspring/decimal"
)

type memoryData struct {
	assets        map[int64]models.Asset
	portfolios    map[int64]models.Portfolio
	transactions  map[int64]models.Transaction
	nextAsset     int64
	nextPortfolio int64
	nextTx        int64
}

func newMemoryData() *memoryData {
	return &memoryData{
		assets:       map[int64]models.Asset{},
		portfolios:   map[int64]models.Portfolio{},
		transactions: map[int64]models.Transaction{},
	}
}

// MemoryStore keeps everything in process memory. It honours the same
// uniqueness, reference and check rules as the Postgres schema. Transactions
// are serialized and keep an undo log, so a failed fn reverts only the rows it
// wrote. Id counters are not rewound, like Postgres sequences.
type MemoryStore struct {
	mu   *sync.Mutex
	txMu *sync.Mutex
	data *memoryData
	now  func() time.Time
	inTx bool
	// undo is non-nil inside WithinTx and only touched while mu is held.
	undo *[]func()
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu:   &sync.Mutex{},
		txMu: &sync.Mutex{},
		data: newMemoryData(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Assets() AssetRepository             { return &memAssetRepo{s: s} }
func (s *MemoryStore) Portfolios() PortfolioRepository     { return &memPortfolioRepo{s: s} }
func (s *MemoryStore) Transactions() TransactionRepository { return &memTransactionRepo{s: s} }

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	undo := []func(){}
	err := fn(&MemoryStore{mu: s.mu, txMu: s.txMu, data: s.data, now: s.now, inTx: true, undo: &undo})
	if err != nil {
		s.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		s.mu.Unlock()
	}
	return err
}

// The remember* helpers log how to restore a row before it is written.
// Callers hold mu.
func (s *MemoryStore) rememberAsset(id int64) {
	if s.undo == nil {
		return
	}
	prev, existed := s.data.assets[id]
	if existed {
		prev = *prev.Clone()
	}
	*s.undo = append(*s.undo, func() {
		if existed {
			s.data.assets[id] = prev
		} else {
			delete(s.data.assets, id)
		}
	})
}

func (s *MemoryStore) rememberPortfolio(id int64) {
	if s.undo == nil {
		return
	}
	prev, existed := s.data.portfolios[id]
	*s.undo = append(*s.undo, func() {
		if existed {
			s.data.portfolios[id] = prev
		} else {
			delete(s.data.portfolios, id)
		}
	})
}

func (s *MemoryStore) rememberTransaction(id int64) {
	if s.undo == nil {
		return
	}
	prev, existed := s.data.transactions[id]
	*s.undo = append(*s.undo, func() {
		if existed {
			s.data.transactions[id] = prev
		} else {
			delete(s.data.transactions, id)
		}
	})
}

// checkMarketFields mirrors the CHECK constraints of the cryptos table.
func checkMarketFields(f models.MarketFields) error {
	if !f.CurrentPrice.IsPositive() {
		return fmt.Errorf("current_price must be greater than zero: %w", utils.ErrInvalidArgument)
	}
	if f.MarketCap.Valid && f.MarketCap.Decimal.IsNegative() {
		return fmt.Errorf("market_cap must not be negative: %w", utils.ErrInvalidArgument)
	}
	if f.Volume24h.Valid && f.Volume24h.Decimal.IsNegative() {
		return fmt.Errorf("volume_24h must not be negative: %w", utils.ErrInvalidArgument)
	}
	if f.Change24h.Valid && (f.Change24h.Decimal.LessThan(models.MinChange24h) || f.Change24h.Decimal.GreaterThan(models.MaxChange24h)) {
		return fmt.Errorf("change_24h must be between %s and %s: %w", models.MinChange24h, models.MaxChange24h, utils.ErrInvalidArgument)
	}
	return nil
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func inRange(v, lo, hi decimal.NullDecimal) bool {
	if !lo.Valid && !hi.Valid {
		return true
	}
	if !v.Valid {
		return false
	}
	if lo.Valid && v.Decimal.LessThan(lo.Decimal) {
		return false
	}
	if hi.Valid && v.Decimal.GreaterThan(hi.Decimal) {
		return false
	}
	return true
}

// nullsLastDesc orders valid values descending with nulls after them.
func nullsLastDesc(a, b decimal.NullDecimal) (less bool, equal bool) {
	switch {
	case a.Valid && b.Valid:
		if a.Decimal.Equal(b.Decimal) {
			return false, true
		}
		return a.Decimal.GreaterThan(b.Decimal), false
	case a.Valid:
		return true, false
	case b.Valid:
		return false, false
	default:
		return false, true
	}
}

type memAssetRepo struct {
	s *MemoryStore
}

func (r *memAssetRepo) List(_ context.Context, filter AssetFilter) ([]models.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.TrimSpace(filter.Search)
	assets := []models.Asset{}
	for _, a := range r.s.data.assets {
		if search != "" && !containsFold(a.Name, search) && !containsFold(a.Symbol, search) {
			continue
		}
		if !inRange(decimal.NewNullDecimal(a.CurrentPrice), filter.MinPrice, filter.MaxPrice) {
			continue
		}
		if !inRange(a.Change24h, filter.MinChange, filter.MaxChange) {
			continue
		}
		assets = append(assets, *a.Clone())
	}

	key := func(a models.Asset) decimal.NullDecimal {
		switch filter.OrderBy {
		case "market_cap":
			return a.MarketCap
		case "volume":
			return a.Volume24h
		case "change":
			return a.Change24h
		}
		return decimal.NullDecimal{}
	}
	sort.Slice(assets, func(i, j int) bool {
		if less, equal := nullsLastDesc(key(assets[i]), key(assets[j])); !equal {
			return less
		}
		return assets[i].ID < assets[j].ID
	})
	return assets, nil
}

func (r *memAssetRepo) GetByID(_ context.Context, id int64) (*models.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.data.assets[id]
	if !ok {
		return nil, fmt.Errorf("crypto %d: %w", id, utils.ErrNotFound)
	}
	return a.Clone(), nil
}

func (r *memAssetRepo) findBySymbol(symbol string) (models.Asset, bool) {
	for _, a := range r.s.data.assets {
		if a.Symbol == symbol {
			return a, true
		}
	}
	return models.Asset{}, false
}

func (r *memAssetRepo) findByName(name string, exceptID int64) bool {
	for _, a := range r.s.data.assets {
		if a.Name == name && a.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memAssetRepo) GetBySymbol(_ context.Context, symbol string) (*models.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	symbol = models.NormalizeSymbol(symbol)
	a, ok := r.findBySymbol(symbol)
	if !ok {
		return nil, fmt.Errorf("crypto %s: %w", symbol, utils.ErrNotFound)
	}
	return a.Clone(), nil
}

func (r *memAssetRepo) GetByIDs(_ context.Context, ids []int64) ([]models.Asset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	assets := []models.Asset{}
	seen := map[int64]bool{}
	for _, id := range ids {
		if a, ok := r.s.data.assets[id]; ok && !seen[id] {
			seen[id] = true
			assets = append(assets, *a.Clone())
		}
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].ID < assets[j].ID })
	return assets, nil
}

func (r *memAssetRepo) ExistsBySymbol(_ context.Context, symbol string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.findBySymbol(models.NormalizeSymbol(symbol))
	return ok, nil
}

func (r *memAssetRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.findByName(name, 0), nil
}

func (r *memAssetRepo) checkUnique(asset *models.Asset) error {
	if existing, ok := r.findBySymbol(asset.Symbol); ok && existing.ID != asset.ID {
		return fmt.Errorf("crypto %s already exists: %w", asset.Symbol, utils.ErrConflict)
	}
	if r.findByName(asset.Name, asset.ID) {
		return fmt.Errorf("crypto %s already exists: %w", asset.Name, utils.ErrConflict)
	}
	return nil
}

func (r *memAssetRepo) Create(_ context.Context, asset *models.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	asset.Symbol = models.NormalizeSymbol(asset.Symbol)
	asset.ID = 0
	if err := checkMarketFields(asset.MarketFields()); err != nil {
		return err
	}
	if err := r.checkUnique(asset); err != nil {
		return err
	}
	r.s.data.nextAsset++
	now := r.s.now()
	asset.ID = r.s.data.nextAsset
	asset.CreatedAt = now
	asset.UpdatedAt = now
	r.s.rememberAsset(asset.ID)
	r.s.data.assets[asset.ID] = *asset.Clone()
	return nil
}

func (r *memAssetRepo) Update(_ context.Context, asset *models.Asset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.data.assets[asset.ID]
	if !ok {
		return fmt.Errorf("crypto %d: %w", asset.ID, utils.ErrNotFound)
	}
	asset.Symbol = models.NormalizeSymbol(asset.Symbol)
	if err := checkMarketFields(asset.MarketFields()); err != nil {
		return err
	}
	if err := r.checkUnique(asset); err != nil {
		return err
	}
	asset.CreatedAt = current.CreatedAt
	asset.UpdatedAt = r.s.now()
	r.s.rememberAsset(asset.ID)
	r.s.data.assets[asset.ID] = *asset.Clone()
	return nil
}

func (r *memAssetRepo) UpdateMarketFields(_ context.Context, symbol string, fields models.MarketFields) (*models.Asset, error) {
	if err := checkMarketFields(fields); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	symbol = models.NormalizeSymbol(symbol)
	a, ok := r.findBySymbol(symbol)
	if !ok {
		return nil, fmt.Errorf("crypto %s: %w", symbol, utils.ErrNotFound)
	}
	a.CurrentPrice = fields.CurrentPrice
	a.MarketCap = fields.MarketCap
	a.Volume24h = fields.Volume24h
	a.Change24h = fields.Change24h
	a.UpdatedAt = r.s.now()
	r.s.rememberAsset(a.ID)
	r.s.data.assets[a.ID] = a
	return a.Clone(), nil
}

func (r *memAssetRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.assets[id]; !ok {
		return fmt.Errorf("crypto %d: %w", id, utils.ErrNotFound)
	}
	for _, t := range r.s.data.transactions {
		if t.AssetID == id {
			return fmt.Errorf("crypto %d is still referenced by transactions: %w", id, utils.ErrConflict)
		}
	}
	r.s.rememberAsset(id)
	delete(r.s.data.assets, id)
	return nil
}

func (r *memAssetRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.data.assets)), nil
}

type memPortfolioRepo struct {
	s *MemoryStore
}

func (r *memPortfolioRepo) List(_ context.Context, filter PortfolioFilter) ([]models.Portfolio, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.TrimSpace(filter.Search)
	portfolios := []models.Portfolio{}
	for _, p := range r.s.data.portfolios {
		if search != "" && !containsFold(p.Name, search) {
			continue
		}
		if !inRange(decimal.NewNullDecimal(p.TotalValue), filter.MinValue, filter.MaxValue) {
			continue
		}
		portfolios = append(portfolios, p)
	}
	sort.Slice(portfolios, func(i, j int) bool {
		a, b := portfolios[i], portfolios[j]
		switch filter.OrderBy {
		case "value":
			if !a.TotalValue.Equal(b.TotalValue) {
				return a.TotalValue.GreaterThan(b.TotalValue)
			}
		case "created":
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
	return portfolios, nil
}

func (r *memPortfolioRepo) GetByID(_ context.Context, id int64) (*models.Portfolio, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.data.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %d: %w", id, utils.ErrNotFound)
	}
	return &p, nil
}

// GetByIDForUpdate needs no row lock here: WithinTx already serializes writers.
func (r *memPortfolioRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Portfolio, error) {
	return r.GetByID(ctx, id)
}

func (r *memPortfolioRepo) nameTaken(name string, exceptID int64) bool {
	for _, p := range r.s.data.portfolios {
		if p.Name == name && p.ID != exceptID {
			return true
		}
	}
	return false
}

func (r *memPortfolioRepo) GetByName(_ context.Context, name string) (*models.Portfolio, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.data.portfolios {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, fmt.Errorf("portfolio %s: %w", name, utils.ErrNotFound)
}

func (r *memPortfolioRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.nameTaken(name, 0), nil
}

func (r *memPortfolioRepo) Create(_ context.Context, portfolio *models.Portfolio) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(portfolio.Name, 0) {
		return fmt.Errorf("portfolio %s already exists: %w", portfolio.Name, utils.ErrConflict)
	}
	r.s.data.nextPortfolio++
	now := r.s.now()
	portfolio.ID = r.s.data.nextPortfolio
	portfolio.CreatedAt = now
	portfolio.UpdatedAt = now
	r.s.rememberPortfolio(portfolio.ID)
	r.s.data.portfolios[portfolio.ID] = *portfolio
	return nil
}

func (r *memPortfolioRepo) Update(_ context.Context, portfolio *models.Portfolio) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.data.portfolios[portfolio.ID]
	if !ok {
		return fmt.Errorf("portfolio %d: %w", portfolio.ID, utils.ErrNotFound)
	}
	if r.nameTaken(portfolio.Name, portfolio.ID) {
		return fmt.Errorf("portfolio %s already exists: %w", portfolio.Name, utils.ErrConflict)
	}
	current.Name = portfolio.Name
	current.Description = portfolio.Description
	current.UpdatedAt = r.s.now()
	r.s.rememberPortfolio(current.ID)
	r.s.data.portfolios[current.ID] = current
	*portfolio = current
	return nil
}

func (r *memPortfolioRepo) UpdateTotalValue(_ context.Context, id int64, value decimal.Decimal) (*models.Portfolio, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.data.portfolios[id]
	if !ok {
		return nil, fmt.Errorf("portfolio %d: %w", id, utils.ErrNotFound)
	}
	p.TotalValue = value
	p.UpdatedAt = r.s.now()
	r.s.rememberPortfolio(id)
	r.s.data.portfolios[id] = p
	return &p, nil
}

func (r *memPortfolioRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.portfolios[id]; !ok {
		return fmt.Errorf("portfolio %d: %w", id, utils.ErrNotFound)
	}
	for _, t := range r.s.data.transactions {
		if t.PortfolioID == id {
			return fmt.Errorf("portfolio %d is still referenced by transactions: %w", id, utils.ErrConflict)
		}
	}
	r.s.rememberPortfolio(id)
	delete(r.s.data.portfolios, id)
	return nil
}

func (r *memPortfolioRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.data.portfolios)), nil
}

func (r *memPortfolioRepo) IDsHoldingAssets(_ context.Context, assetIDs []int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[int64]bool, len(assetIDs))
	for _, id := range assetIDs {
		wanted[id] = true
	}
	seen := map[int64]bool{}
	ids := []int64{}
	for _, t := range r.s.data.transactions {
		if wanted[t.AssetID] && !seen[t.PortfolioID] {
			seen[t.PortfolioID] = true
			ids = append(ids, t.PortfolioID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memTransactionRepo struct {
	s *MemoryStore
}

func (r *memTransactionRepo) List(_ context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	transactions := []models.Transaction{}
	for _, t := range r.s.data.transactions {
		if filter.PortfolioID != nil && t.PortfolioID != *filter.PortfolioID {
			continue
		}
		if filter.AssetID != nil && t.AssetID != *filter.AssetID {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.Start != nil && t.TransactionDate.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && t.TransactionDate.After(*filter.End) {
			continue
		}
		transactions = append(transactions, t)
	}
	sort.Slice(transactions, func(i, j int) bool {
		a, b := transactions[i], transactions[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.After(b.TransactionDate)
		}
		return a.ID > b.ID
	})
	return transactions, nil
}

func (r *memTransactionRepo) GetByID(_ context.Context, id int64) (*models.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.data.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %d: %w", id, utils.ErrNotFound)
	}
	return &t, nil
}

func (r *memTransactionRepo) GetByPortfolioID(ctx context.Context, portfolioID int64) ([]models.Transaction, error) {
	return r.List(ctx, TransactionFilter{PortfolioID: &portfolioID})
}

func (r *memTransactionRepo) checkReferences(t *models.Transaction) error {
	if _, ok := r.s.data.portfolios[t.PortfolioID]; !ok {
		return fmt.Errorf("transaction references missing portfolio %d: %w", t.PortfolioID, utils.ErrConflict)
	}
	if _, ok := r.s.data.assets[t.AssetID]; !ok {
		return fmt.Errorf("transaction references missing crypto %d: %w", t.AssetID, utils.ErrConflict)
	}
	return nil
}

func (r *memTransactionRepo) Create(_ context.Context, t *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.checkReferences(t); err != nil {
		return err
	}
	r.s.data.nextTx++
	t.ID = r.s.data.nextTx
	t.CreatedAt = r.s.now()
	r.s.rememberTransaction(t.ID)
	r.s.data.transactions[t.ID] = *t
	return nil
}

func (r *memTransactionRepo) Update(_ context.Context, t *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.data.transactions[t.ID]
	if !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, utils.ErrNotFound)
	}
	if err := r.checkReferences(t); err != nil {
		return err
	}
	t.CreatedAt = current.CreatedAt
	r.s.rememberTransaction(t.ID)
	r.s.data.transactions[t.ID] = *t
	return nil
}

func (r *memTransactionRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, utils.ErrNotFound)
	}
	r.s.rememberTransaction(id)
	delete(r.s.data.transactions, id)
	return nil
}

func (r *memTransactionRepo) DeleteByPortfolioID(_ context.Context, portfolioID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.data.transactions {
		if t.PortfolioID == portfolioID {
			r.s.rememberTransaction(id)
			delete(r.s.data.transactions, id)
			n++
		}
	}
	return n, nil
}

func (r *memTransactionRepo) Count(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return int64(len(r.s.data.transactions)), nil
}

func (r *memTransactionRepo) sum(match func(models.Transaction) bool, field func(models.Transaction) decimal.Decimal) decimal.Decimal {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	total := decimal.Zero
	for _, t := range r.s.data.transactions {
		if match(t) {
			total = total.Add(field(t))
		}
	}
	return total
}

func totalValueOf(t models.Transaction) decimal.Decimal { return t.TotalValue }
func quantityOf(t models.Transaction) decimal.Decimal   { return t.Quantity }

func (r *memTransactionRepo) TotalInvested(_ context.Context, portfolioID int64) (decimal.Decimal, error) {
	return r.sum(func(t models.Transaction) bool { return t.PortfolioID == portfolioID && t.Type == models.Buy }, totalValueOf), nil
}

func (r *memTransactionRepo) TotalSold(_ context.Context, portfolioID int64) (decimal.Decimal, error) {
	return r.sum(func(t models.Transaction) bool { return t.PortfolioID == portfolioID && t.Type == models.Sell }, totalValueOf), nil
}

func (r *memTransactionRepo) TotalBoughtQuantity(_ context.Context, assetID int64) (decimal.Decimal, error) {
	return r.sum(func(t models.Transaction) bool { return t.AssetID == assetID && t.Type == models.Buy }, quantityOf), nil
}

func (r *memTransactionRepo) TotalSoldQuantity(_ context.Context, assetID int64) (decimal.Decimal, error) {
	return r.sum(func(t models.Transaction) bool { return t.AssetID == assetID && t.Type == models.Sell }, quantityOf), nil
}
