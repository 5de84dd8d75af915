package services

import (
	"context"
	"fmt"

	"cryptofolio/src/broadcast"
	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"

	"github.com/sirupsen/logrus"
)

type PortfolioServiceI interface {
	List(ctx context.Context, filter schemas.PortfolioFilter) ([]models.Portfolio, error)
	Get(ctx context.Context, id int64) (*models.Portfolio, error)
	GetByName(ctx context.Context, name string) (*models.Portfolio, error)
	Create(ctx context.Context, req schemas.PortfolioRequest) (*models.Portfolio, error)
	Update(ctx context.Context, id int64, req schemas.PortfolioRequest) (*models.Portfolio, error)
	Delete(ctx context.Context, id int64) error
	Transactions(ctx context.Context, id int64) ([]models.Transaction, error)
	Valuation(ctx context.Context, id int64) (*schemas.PortfolioValuation, error)
	Revalue(ctx context.Context, id int64) (*schemas.PortfolioValuation, error)
	RevalueHolding(ctx context.Context, assetIDs []int64) ([]schemas.PortfolioValuation, error)
	Count(ctx context.Context) (int64, error)
}

type PortfolioService struct {
	store     repositories.Store
	publisher broadcast.Publisher
	log       *logrus.Logger
}

// NewPortfolioService creates the service. publisher may be nil.
func NewPortfolioService(store repositories.Store, publisher broadcast.Publisher, logger *logrus.Logger) *PortfolioService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PortfolioService{store: store, publisher: publisher, log: logger}
}

func (s *PortfolioService) List(ctx context.Context, filter schemas.PortfolioFilter) ([]models.Portfolio, error) {
	return s.store.Portfolios().List(ctx, repositories.PortfolioFilter{
		Search:   filter.Search,
		OrderBy:  filter.Order,
		MinValue: filter.MinValue,
		MaxValue: filter.MaxValue,
	})
}

func (s *PortfolioService) Get(ctx context.Context, id int64) (*models.Portfolio, error) {
	return s.store.Portfolios().GetByID(ctx, id)
}

func (s *PortfolioService) GetByName(ctx context.Context, name string) (*models.Portfolio, error) {
	return s.store.Portfolios().GetByName(ctx, name)
}

func (s *PortfolioService) Count(ctx context.Context) (int64, error) {
	return s.store.Portfolios().Count(ctx)
}

func (s *PortfolioService) Create(ctx context.Context, req schemas.PortfolioRequest) (*models.Portfolio, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.store.Portfolios().ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("a portfolio named %q already exists: %w", req.Name, utils.ErrConflict)
	}

	portfolio := &models.Portfolio{Name: req.Name, Description: req.Description}
	if err := s.store.Portfolios().Create(ctx, portfolio); err != nil {
		return nil, err
	}
	utils.LoggerFromContext(ctx, s.log).WithFields(logrus.Fields{"portfolio": portfolio.ID, "name": portfolio.Name}).Info("Portfolio created")
	return portfolio, nil
}

func (s *PortfolioService) Update(ctx context.Context, id int64, req schemas.PortfolioRequest) (*models.Portfolio, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	portfolio, err := s.store.Portfolios().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if portfolio.Name != req.Name {
		exists, err := s.store.Portfolios().ExistsByName(ctx, req.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("a portfolio named %q already exists: %w", req.Name, utils.ErrConflict)
		}
	}

	portfolio.Name = req.Name
	portfolio.Description = req.Description
	if err := s.store.Portfolios().Update(ctx, portfolio); err != nil {
		return nil, err
	}
	return portfolio, nil
}

// Delete removes the portfolio and its transactions atomically.
func (s *PortfolioService) Delete(ctx context.Context, id int64) error {
	var removed int64
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if _, err := tx.Portfolios().GetByIDForUpdate(ctx, id); err != nil {
			return err
		}
		n, err := tx.Transactions().DeleteByPortfolioID(ctx, id)
		if err != nil {
			return err
		}
		removed = n
		return tx.Portfolios().Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	utils.LoggerFromContext(ctx, s.log).WithFields(logrus.Fields{"portfolio": id, "transactions": removed}).Info("Portfolio deleted")
	return nil
}

func (s *PortfolioService) Transactions(ctx context.Context, id int64) ([]models.Transaction, error) {
	if _, err := s.store.Portfolios().GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.store.Transactions().GetByPortfolioID(ctx, id)
}

// Valuation prices the portfolio with current stored prices without persisting anything.
func (s *PortfolioService) Valuation(ctx context.Context, id int64) (*schemas.PortfolioValuation, error) {
	portfolio, err := s.store.Portfolios().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return valuate(ctx, s.store, portfolio)
}

func (s *PortfolioService) Revalue(ctx context.Context, id int64) (*schemas.PortfolioValuation, error) {
	var valuation *schemas.PortfolioValuation
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		v, err := revalue(ctx, tx, id)
		valuation = v
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(valuation)
	return valuation, nil
}

// RevalueHolding revalues every portfolio with a transaction on any of
// assetIDs, each in its own transaction. A failing portfolio is logged and
// skipped.
func (s *PortfolioService) RevalueHolding(ctx context.Context, assetIDs []int64) ([]schemas.PortfolioValuation, error) {
	ids, err := s.store.Portfolios().IDsHoldingAssets(ctx, assetIDs)
	if err != nil {
		return nil, err
	}

	valuations := make([]schemas.PortfolioValuation, 0, len(ids))
	for _, id := range ids {
		valuation, err := s.Revalue(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("portfolio", id).Error("Failed to revalue portfolio")
			continue
		}
		valuations = append(valuations, *valuation)
	}
	return valuations, nil
}

func (s *PortfolioService) publish(valuation *schemas.PortfolioValuation) {
	if s.publisher == nil || valuation == nil {
		return
	}
	s.publisher.Publish(broadcast.NewEvent(broadcast.PortfolioUpdate, valuation))
}
