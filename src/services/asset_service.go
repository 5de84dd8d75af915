package services

import (
	"context"
	"fmt"
	"strings"

	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type AssetServiceI interface {
	List(ctx context.Context, filter schemas.CryptoFilter) ([]models.Asset, error)
	Get(ctx context.Context, id int64) (*models.Asset, error)
	GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error)
	Create(ctx context.Context, req schemas.CryptoRequest) (*models.Asset, error)
	Update(ctx context.Context, id int64, req schemas.CryptoRequest) (*models.Asset, error)
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context, id int64) (*schemas.CryptoStatsResponse, error)
	Snapshot(ctx context.Context, coinID string) (*models.Asset, error)
	Count(ctx context.Context) (int64, error)
}

type AssetService struct {
	store repositories.Store
	cache PriceCacheI
	log   *logrus.Logger
}

func NewAssetService(store repositories.Store, cache PriceCacheI, logger *logrus.Logger) *AssetService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AssetService{store: store, cache: cache, log: logger}
}

func checkRange(name string, lo, hi decimal.NullDecimal) error {
	if lo.Valid && hi.Valid && lo.Decimal.GreaterThan(hi.Decimal) {
		return fmt.Errorf("min%s must not exceed max%s: %w", name, name, utils.ErrInvalidArgument)
	}
	return nil
}

func (s *AssetService) List(ctx context.Context, filter schemas.CryptoFilter) ([]models.Asset, error) {
	if err := checkRange("Price", filter.MinPrice, filter.MaxPrice); err != nil {
		return nil, err
	}
	if err := checkRange("Change", filter.MinChange, filter.MaxChange); err != nil {
		return nil, err
	}
	return s.store.Assets().List(ctx, repositories.AssetFilter{
		Search:    filter.Search,
		OrderBy:   filter.Order,
		MinPrice:  filter.MinPrice,
		MaxPrice:  filter.MaxPrice,
		MinChange: filter.MinChange,
		MaxChange: filter.MaxChange,
	})
}

func (s *AssetService) Get(ctx context.Context, id int64) (*models.Asset, error) {
	return s.store.Assets().GetByID(ctx, id)
}

func (s *AssetService) GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("symbol is required: %w", utils.ErrInvalidArgument)
	}
	return s.store.Assets().GetBySymbol(ctx, symbol)
}

func (s *AssetService) Count(ctx context.Context) (int64, error) {
	return s.store.Assets().Count(ctx)
}

func (s *AssetService) Create(ctx context.Context, req schemas.CryptoRequest) (*models.Asset, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, req, nil); err != nil {
		return nil, err
	}

	asset := &models.Asset{}
	req.Apply(asset)
	if err := s.store.Assets().Create(ctx, asset); err != nil {
		return nil, err
	}
	utils.LoggerFromContext(ctx, s.log).WithFields(logrus.Fields{"crypto": asset.ID, "symbol": asset.Symbol}).Info("Crypto created")
	return asset, nil
}

func (s *AssetService) Update(ctx context.Context, id int64, req schemas.CryptoRequest) (*models.Asset, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	asset, err := s.store.Assets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, req, asset); err != nil {
		return nil, err
	}

	req.Apply(asset)
	if err := s.store.Assets().Update(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// checkUnique rejects a symbol or name already used by another asset.
func (s *AssetService) checkUnique(ctx context.Context, req schemas.CryptoRequest, current *models.Asset) error {
	if current == nil || current.Symbol != req.Symbol {
		exists, err := s.store.Assets().ExistsBySymbol(ctx, req.Symbol)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("a crypto with symbol %s already exists: %w", req.Symbol, utils.ErrConflict)
		}
	}
	if current == nil || current.Name != req.Name {
		exists, err := s.store.Assets().ExistsByName(ctx, req.Name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("a crypto named %q already exists: %w", req.Name, utils.ErrConflict)
		}
	}
	return nil
}

func (s *AssetService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Assets().Delete(ctx, id); err != nil {
		return err
	}
	utils.LoggerFromContext(ctx, s.log).WithField("crypto", id).Info("Crypto deleted")
	return nil
}

// Stats aggregates the traded quantities of one asset across all portfolios.
func (s *AssetService) Stats(ctx context.Context, id int64) (*schemas.CryptoStatsResponse, error) {
	asset, err := s.store.Assets().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	bought, err := s.store.Transactions().TotalBoughtQuantity(ctx, id)
	if err != nil {
		return nil, err
	}
	sold, err := s.store.Transactions().TotalSoldQuantity(ctx, id)
	if err != nil {
		return nil, err
	}
	portfolios, err := s.store.Portfolios().IDsHoldingAssets(ctx, []int64{id})
	if err != nil {
		return nil, err
	}

	net := bought.Sub(sold)
	held := decimal.Zero
	if net.IsPositive() {
		held = net.Mul(asset.CurrentPrice)
	}
	return &schemas.CryptoStatsResponse{
		CryptoID:       asset.ID,
		Symbol:         asset.Symbol,
		TotalBought:    bought,
		TotalSold:      sold,
		NetQuantity:    net,
		CurrentPrice:   asset.CurrentPrice,
		HeldValue:      held,
		PortfolioCount: len(portfolios),
	}, nil
}

// Snapshot returns the live upstream snapshot of a coin through the price cache.
func (s *AssetService) Snapshot(ctx context.Context, coinID string) (*models.Asset, error) {
	coinID = strings.ToLower(strings.TrimSpace(coinID))
	if coinID == "" {
		return nil, fmt.Errorf("coin id is required: %w", utils.ErrInvalidArgument)
	}
	return s.cache.Get(ctx, coinID)
}
