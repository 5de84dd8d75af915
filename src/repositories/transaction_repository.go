package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptofolio/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type TransactionFilter struct {
	PortfolioID *int64
	AssetID     *int64
	Type        models.TransactionType
	Start       *time.Time
	End         *time.Time
}

type TransactionRepository interface {
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
	GetByID(ctx context.Context, id int64) (*models.Transaction, error)
	// GetByPortfolioID returns the portfolio history, newest first.
	GetByPortfolioID(ctx context.Context, portfolioID int64) ([]models.Transaction, error)
	Create(ctx context.Context, t *models.Transaction) error
	Update(ctx context.Context, t *models.Transaction) error
	Delete(ctx context.Context, id int64) error
	DeleteByPortfolioID(ctx context.Context, portfolioID int64) (int64, error)
	Count(ctx context.Context) (int64, error)

	TotalInvested(ctx context.Context, portfolioID int64) (decimal.Decimal, error)
	TotalSold(ctx context.Context, portfolioID int64) (decimal.Decimal, error)
	TotalBoughtQuantity(ctx context.Context, assetID int64) (decimal.Decimal, error)
	TotalSoldQuantity(ctx context.Context, assetID int64) (decimal.Decimal, error)
}

type transactionRepo struct {
	db DBTX
}

const transactionColumns = `id, portfolio_id, crypto_id, type, quantity, price_per_unit, total_value, notes, transaction_date, created_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var t models.Transaction
	var kind string
	err := row.Scan(&t.ID, &t.PortfolioID, &t.AssetID, &kind, &t.Quantity, &t.PricePerUnit, &t.TotalValue,
		&t.Notes, &t.TransactionDate, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Type = models.TransactionType(kind)
	return &t, nil
}

func collectTransactions(rows pgx.Rows) ([]models.Transaction, error) {
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *t)
	}
	return transactions, rows.Err()
}

func (r *transactionRepo) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.PortfolioID != nil {
		add("portfolio_id = $%d", *filter.PortfolioID)
	}
	if filter.AssetID != nil {
		add("crypto_id = $%d", *filter.AssetID)
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Start != nil {
		add("transaction_date >= $%d", *filter.Start)
	}
	if filter.End != nil {
		add("transaction_date <= $%d", *filter.End)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY transaction_date DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (r *transactionRepo) GetByID(ctx context.Context, id int64) (*models.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("transaction %d", id))
	}
	return t, nil
}

func (r *transactionRepo) GetByPortfolioID(ctx context.Context, portfolioID int64) ([]models.Transaction, error) {
	return r.List(ctx, TransactionFilter{PortfolioID: &portfolioID})
}

func (r *transactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO transactions (portfolio_id, crypto_id, type, quantity, price_per_unit, total_value, notes, transaction_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		t.PortfolioID, t.AssetID, string(t.Type), t.Quantity, t.PricePerUnit, t.TotalValue, t.Notes, t.TransactionDate,
	).Scan(&t.ID, &t.CreatedAt)
	return mapError(err, "transaction")
}

func (r *transactionRepo) Update(ctx context.Context, t *models.Transaction) error {
	err := r.db.QueryRow(ctx,
		`UPDATE transactions
		 SET portfolio_id = $2, crypto_id = $3, type = $4, quantity = $5, price_per_unit = $6,
		     total_value = $7, notes = $8, transaction_date = $9
		 WHERE id = $1
		 RETURNING created_at`,
		t.ID, t.PortfolioID, t.AssetID, string(t.Type), t.Quantity, t.PricePerUnit, t.TotalValue, t.Notes, t.TransactionDate,
	).Scan(&t.CreatedAt)
	return mapError(err, fmt.Sprintf("transaction %d", t.ID))
}

func (r *transactionRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, fmt.Sprintf("transaction %d", id))
	}
	return nil
}

func (r *transactionRepo) DeleteByPortfolioID(ctx context.Context, portfolioID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM transactions WHERE portfolio_id = $1`, portfolioID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *transactionRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&n)
	return n, err
}

func (r *transactionRepo) sum(ctx context.Context, query string, arg int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, arg).Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (r *transactionRepo) TotalInvested(ctx context.Context, portfolioID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(total_value), 0) FROM transactions WHERE portfolio_id = $1 AND type = 'BUY'`, portfolioID)
}

func (r *transactionRepo) TotalSold(ctx context.Context, portfolioID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(total_value), 0) FROM transactions WHERE portfolio_id = $1 AND type = 'SELL'`, portfolioID)
}

func (r *transactionRepo) TotalBoughtQuantity(ctx context.Context, assetID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM transactions WHERE crypto_id = $1 AND type = 'BUY'`, assetID)
}

func (r *transactionRepo) TotalSoldQuantity(ctx context.Context, assetID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM transactions WHERE crypto_id = $1 AND type = 'SELL'`, assetID)
}
