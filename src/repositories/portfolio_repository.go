package repositories

import (
	"context"
	"fmt"
	"strings"

	"cryptofolio/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type PortfolioFilter struct {
	Search   string
	OrderBy  string // value, created or name (default)
	MinValue decimal.NullDecimal
	MaxValue decimal.NullDecimal
}

type PortfolioRepository interface {
	List(ctx context.Context, filter PortfolioFilter) ([]models.Portfolio, error)
	GetByID(ctx context.Context, id int64) (*models.Portfolio, error)
	// GetByIDForUpdate locks the portfolio row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Portfolio, error)
	GetByName(ctx context.Context, name string) (*models.Portfolio, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, portfolio *models.Portfolio) error
	Update(ctx context.Context, portfolio *models.Portfolio) error
	UpdateTotalValue(ctx context.Context, id int64, value decimal.Decimal) (*models.Portfolio, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	// IDsHoldingAssets returns the portfolios with at least one transaction on any of the assets.
	IDsHoldingAssets(ctx context.Context, assetIDs []int64) ([]int64, error)
}

type portfolioRepo struct {
	db DBTX
}

const portfolioColumns = `id, name, description, total_value, created_at, updated_at`

func scanPortfolio(row pgx.Row) (*models.Portfolio, error) {
	var p models.Portfolio
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TotalValue, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *portfolioRepo) List(ctx context.Context, filter PortfolioFilter) ([]models.Portfolio, error) {
	var (
		where []string
		args  []any
	)
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	if filter.MinValue.Valid {
		args = append(args, filter.MinValue.Decimal)
		where = append(where, fmt.Sprintf("total_value >= $%d", len(args)))
	}
	if filter.MaxValue.Valid {
		args = append(args, filter.MaxValue.Decimal)
		where = append(where, fmt.Sprintf("total_value <= $%d", len(args)))
	}

	query := `SELECT ` + portfolioColumns + ` FROM portfolios`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch filter.OrderBy {
	case "value":
		query += " ORDER BY total_value DESC, id"
	case "created":
		query += " ORDER BY created_at DESC, id"
	default:
		query += " ORDER BY id"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	portfolios := []models.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		portfolios = append(portfolios, *p)
	}
	return portfolios, rows.Err()
}

func (r *portfolioRepo) GetByID(ctx context.Context, id int64) (*models.Portfolio, error) {
	p, err := scanPortfolio(r.db.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("portfolio %d", id))
	}
	return p, nil
}

func (r *portfolioRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Portfolio, error) {
	p, err := scanPortfolio(r.db.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("portfolio %d", id))
	}
	return p, nil
}

func (r *portfolioRepo) GetByName(ctx context.Context, name string) (*models.Portfolio, error) {
	p, err := scanPortfolio(r.db.QueryRow(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE name = $1`, name))
	if err != nil {
		return nil, mapError(err, "portfolio "+name)
	}
	return p, nil
}

func (r *portfolioRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM portfolios WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

func (r *portfolioRepo) Create(ctx context.Context, portfolio *models.Portfolio) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO portfolios (name, description, total_value)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		portfolio.Name, portfolio.Description, portfolio.TotalValue,
	).Scan(&portfolio.ID, &portfolio.CreatedAt, &portfolio.UpdatedAt)
	return mapError(err, "portfolio "+portfolio.Name)
}

func (r *portfolioRepo) Update(ctx context.Context, portfolio *models.Portfolio) error {
	err := r.db.QueryRow(ctx,
		`UPDATE portfolios SET name = $2, description = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING total_value, created_at, updated_at`,
		portfolio.ID, portfolio.Name, portfolio.Description,
	).Scan(&portfolio.TotalValue, &portfolio.CreatedAt, &portfolio.UpdatedAt)
	return mapError(err, fmt.Sprintf("portfolio %d", portfolio.ID))
}

func (r *portfolioRepo) UpdateTotalValue(ctx context.Context, id int64, value decimal.Decimal) (*models.Portfolio, error) {
	p, err := scanPortfolio(r.db.QueryRow(ctx,
		`UPDATE portfolios SET total_value = $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+portfolioColumns,
		id, value,
	))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("portfolio %d", id))
	}
	return p, nil
}

func (r *portfolioRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM portfolios WHERE id = $1`, id)
	if err != nil {
		return mapError(err, fmt.Sprintf("portfolio %d", id))
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, fmt.Sprintf("portfolio %d", id))
	}
	return nil
}

func (r *portfolioRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM portfolios`).Scan(&n)
	return n, err
}

func (r *portfolioRepo) IDsHoldingAssets(ctx context.Context, assetIDs []int64) ([]int64, error) {
	if len(assetIDs) == 0 {
		return []int64{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT portfolio_id FROM transactions WHERE crypto_id = ANY($1) ORDER BY portfolio_id`, assetIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
