package services

import (
	"context"
	"time"

	"cryptofolio/src/models"
	"cryptofolio/src/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type seedAsset struct {
	name, symbol, price, marketCap, volume, change, description string
}

var sampleAssets = []seedAsset{
	{"Bitcoin", "BTC", "45000.00", "850000000000", "25000000000", "2.5", "A primeira e mais valiosa criptomoeda do mundo"},
	{"Ethereum", "ETH", "3200.00", "385000000000", "15000000000", "1.8", "Plataforma de contratos inteligentes líder"},
	{"Binance Coin", "BNB", "320.00", "50000000000", "2000000000", "-0.5", "Token nativo da exchange Binance"},
	{"Cardano", "ADA", "0.45", "15000000000", "800000000", "3.2", "Plataforma blockchain de terceira geração"},
	{"Solana", "SOL", "95.00", "40000000000", "1200000000", "5.1", "Blockchain de alta performance para DeFi"},
}

var samplePortfolios = []models.Portfolio{
	{Name: "Portfólio Conservador", Description: "Foco em criptomoedas estáveis e de grande capitalização"},
	{Name: "Portfólio Agressivo", Description: "Foco em criptomoedas de alto potencial e risco"},
	{Name: "Portfólio DeFi", Description: "Foco em protocolos de finanças descentralizadas"},
}

type seedTransaction struct {
	portfolio, symbol string
	kind              models.TransactionType
	quantity, price   string
	notes             string
}

var sampleTransactions = []seedTransaction{
	{"Portfólio Conservador", "BTC", models.Buy, "0.1", "44000.00", "Primeira compra de Bitcoin"},
	{"Portfólio Conservador", "ETH", models.Buy, "2.0", "3100.00", "Compra de Ethereum para diversificação"},
	{"Portfólio Agressivo", "ADA", models.Buy, "1000.0", "0.40", "Aposta em Cardano para longo prazo"},
	{"Portfólio Agressivo", "BTC", models.Sell, "0.05", "46000.00", "Realização de lucros"},
}

// SeedService fills empty tables with sample data.
type SeedService struct {
	store      repositories.Store
	portfolios PortfolioServiceI
	now        func() time.Time
	log        *logrus.Logger
}

func NewSeedService(store repositories.Store, portfolios PortfolioServiceI, logger *logrus.Logger) *SeedService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SeedService{store: store, portfolios: portfolios, now: time.Now, log: logger}
}

// Seed inserts each sample set only when its table is empty, then revalues every portfolio.
func (s *SeedService) Seed(ctx context.Context) error {
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if err := s.seedAssets(ctx, tx); err != nil {
			return err
		}
		if err := s.seedPortfolios(ctx, tx); err != nil {
			return err
		}
		return s.seedTransactions(ctx, tx)
	})
	if err != nil {
		return err
	}

	portfolios, err := s.store.Portfolios().List(ctx, repositories.PortfolioFilter{})
	if err != nil {
		return err
	}
	for _, p := range portfolios {
		if _, err := s.portfolios.Revalue(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *SeedService) seedAssets(ctx context.Context, tx repositories.Store) error {
	n, err := tx.Assets().Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, sa := range sampleAssets {
		description := sa.description
		asset := &models.Asset{
			Name:         sa.name,
			Symbol:       sa.symbol,
			CurrentPrice: decimal.RequireFromString(sa.price),
			MarketCap:    decimal.NewNullDecimal(decimal.RequireFromString(sa.marketCap)),
			Volume24h:    decimal.NewNullDecimal(decimal.RequireFromString(sa.volume)),
			Change24h:    decimal.NewNullDecimal(decimal.RequireFromString(sa.change)),
			Description:  &description,
		}
		if err := tx.Assets().Create(ctx, asset); err != nil {
			return err
		}
	}
	s.log.WithField("count", len(sampleAssets)).Info("Seeded sample cryptos")
	return nil
}

func (s *SeedService) seedPortfolios(ctx context.Context, tx repositories.Store) error {
	n, err := tx.Portfolios().Count(ctx)
	if err != nil || n > 0 {
		return err
	}
	for _, sp := range samplePortfolios {
		p := sp
		if err := tx.Portfolios().Create(ctx, &p); err != nil {
			return err
		}
	}
	s.log.WithField("count", len(samplePortfolios)).Info("Seeded sample portfolios")
	return nil
}

func (s *SeedService) seedTransactions(ctx context.Context, tx repositories.Store) error {
	n, err := tx.Transactions().Count(ctx)
	if err != nil || n > 0 {
		return err
	}

	inserted := 0
	for _, st := range sampleTransactions {
		portfolio, err := tx.Portfolios().GetByName(ctx, st.portfolio)
		if err != nil {
			s.log.WithField("portfolio", st.portfolio).Warn("Sample portfolio missing, skipping transaction")
			continue
		}
		asset, err := tx.Assets().GetBySymbol(ctx, st.symbol)
		if err != nil {
			s.log.WithField("symbol", st.symbol).Warn("Sample crypto missing, skipping transaction")
			continue
		}

		notes := st.notes
		t := &models.Transaction{
			PortfolioID:     portfolio.ID,
			AssetID:         asset.ID,
			Type:            st.kind,
			Quantity:        decimal.RequireFromString(st.quantity),
			PricePerUnit:    decimal.RequireFromString(st.price),
			Notes:           &notes,
			TransactionDate: s.now().UTC(),
		}
		t.Recompute()
		if err := tx.Transactions().Create(ctx, t); err != nil {
			return err
		}
		inserted++
	}
	s.log.WithField("count", inserted).Info("Seeded sample transactions")
	return nil
}
