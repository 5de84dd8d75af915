package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"cryptofolio/src/broadcast"
	"cryptofolio/src/models"
	"cryptofolio/src/repositories"
	"cryptofolio/src/schemas"
	"cryptofolio/src/utils"

	"github.com/sirupsen/logrus"
)

type TransactionServiceI interface {
	List(ctx context.Context, filter schemas.TransactionFilter) ([]models.Transaction, error)
	Get(ctx context.Context, id int64) (*models.Transaction, error)
	Create(ctx context.Context, req schemas.TransactionRequest) (*models.Transaction, error)
	Update(ctx context.Context, id int64, req schemas.TransactionRequest) (*models.Transaction, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

// TransactionService keeps portfolio values in step with their history:
// every write revalues the affected portfolios in the same database transaction.
type TransactionService struct {
	store     repositories.Store
	publisher broadcast.Publisher
	now       func() time.Time
	log       *logrus.Logger
}

func NewTransactionService(store repositories.Store, publisher broadcast.Publisher, logger *logrus.Logger) *TransactionService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TransactionService{store: store, publisher: publisher, now: time.Now, log: logger}
}

func (s *TransactionService) List(ctx context.Context, filter schemas.TransactionFilter) ([]models.Transaction, error) {
	f := repositories.TransactionFilter{
		PortfolioID: filter.PortfolioID,
		AssetID:     filter.CryptoID,
		Start:       filter.Start,
		End:         filter.End,
	}
	if filter.Type != "" {
		f.Type = models.TransactionType(filter.Type)
		if !f.Type.Valid() {
			return nil, fmt.Errorf("type must be BUY or SELL: %w", utils.ErrInvalidArgument)
		}
	}
	if f.Start != nil && f.End != nil && f.End.Before(*f.Start) {
		return nil, fmt.Errorf("end must not be before start: %w", utils.ErrInvalidArgument)
	}
	return s.store.Transactions().List(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	return s.store.Transactions().GetByID(ctx, id)
}

func (s *TransactionService) Count(ctx context.Context) (int64, error) {
	return s.store.Transactions().Count(ctx)
}

// checkReferences turns missing portfolio or asset ids into not-found errors.
func checkReferences(ctx context.Context, store repositories.Store, portfolioID, assetID int64) error {
	if _, err := store.Portfolios().GetByID(ctx, portfolioID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return fmt.Errorf("portfolio %d not found: %w", portfolioID, utils.ErrNotFound)
		}
		return err
	}
	if _, err := store.Assets().GetByID(ctx, assetID); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return fmt.Errorf("crypto %d not found: %w", assetID, utils.ErrNotFound)
		}
		return err
	}
	return nil
}

func (s *TransactionService) Create(ctx context.Context, req schemas.TransactionRequest) (*models.Transaction, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t := &models.Transaction{
		PortfolioID:  req.PortfolioID,
		AssetID:      req.CryptoID,
		Type:         models.TransactionType(req.Type),
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		Notes:        req.Notes,
	}
	if req.TransactionDate != nil {
		t.TransactionDate = req.TransactionDate.UTC()
	} else {
		t.TransactionDate = s.now().UTC()
	}
	t.Recompute()
	if req.TotalValue.Valid {
		t.TotalValue = req.TotalValue.Decimal
	}

	var valuation *schemas.PortfolioValuation
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		if err := checkReferences(ctx, tx, t.PortfolioID, t.AssetID); err != nil {
			return err
		}
		if err := tx.Transactions().Create(ctx, t); err != nil {
			return err
		}
		v, err := revalue(ctx, tx, t.PortfolioID)
		valuation = v
		return err
	})
	if err != nil {
		return nil, err
	}

	utils.LoggerFromContext(ctx, s.log).WithFields(logrus.Fields{
		"transaction": t.ID,
		"portfolio":   t.PortfolioID,
		"type":        t.Type,
		"total":       t.TotalValue.String(),
	}).Info("Transaction recorded")
	s.publish(valuation)
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, id int64, req schemas.TransactionRequest) (*models.Transaction, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		updated    *models.Transaction
		valuations []*schemas.PortfolioValuation
	)
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		t, err := tx.Transactions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkReferences(ctx, tx, req.PortfolioID, req.CryptoID); err != nil {
			return err
		}

		// Both portfolios of a move are locked in ascending id order.
		affected := []int64{t.PortfolioID}
		if req.PortfolioID != t.PortfolioID {
			affected = append(affected, req.PortfolioID)
			slices.Sort(affected)
		}
		for _, pid := range affected {
			if _, err := tx.Portfolios().GetByIDForUpdate(ctx, pid); err != nil {
				return err
			}
		}

		t.PortfolioID = req.PortfolioID
		t.AssetID = req.CryptoID
		t.Type = models.TransactionType(req.Type)
		t.Quantity = req.Quantity
		t.PricePerUnit = req.PricePerUnit
		t.Notes = req.Notes
		if req.TransactionDate != nil {
			t.TransactionDate = req.TransactionDate.UTC()
		}
		t.Recompute()

		if err := tx.Transactions().Update(ctx, t); err != nil {
			return err
		}
		updated = t

		for _, pid := range affected {
			v, err := revalue(ctx, tx, pid)
			if err != nil {
				return err
			}
			valuations = append(valuations, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, v := range valuations {
		s.publish(v)
	}
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	var valuation *schemas.PortfolioValuation
	err := s.store.WithinTx(ctx, func(tx repositories.Store) error {
		t, err := tx.Transactions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Transactions().Delete(ctx, id); err != nil {
			return err
		}
		v, err := revalue(ctx, tx, t.PortfolioID)
		valuation = v
		return err
	})
	if err != nil {
		return err
	}
	s.publish(valuation)
	return nil
}

func (s *TransactionService) publish(valuation *schemas.PortfolioValuation) {
	if s.publisher == nil || valuation == nil {
		return
	}
	s.publisher.Publish(broadcast.NewEvent(broadcast.PortfolioUpdate, valuation))
}
