package repositories

import (
	"context"
	"fmt"
	"strings"

	"cryptofolio/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// AssetFilter narrows List results. Zero values disable a criterion.
type AssetFilter struct {
	Search    string
	OrderBy   string // market_cap, volume, change or name (default)
	MinPrice  decimal.NullDecimal
	MaxPrice  decimal.NullDecimal
	MinChange decimal.NullDecimal
	MaxChange decimal.NullDecimal
}

type AssetRepository interface {
	List(ctx context.Context, filter AssetFilter) ([]models.Asset, error)
	GetByID(ctx context.Context, id int64) (*models.Asset, error)
	GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error)
	GetByIDs(ctx context.Context, ids []int64) ([]models.Asset, error)
	ExistsBySymbol(ctx context.Context, symbol string) (bool, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, asset *models.Asset) error
	Update(ctx context.Context, asset *models.Asset) error
	// UpdateMarketFields overwrites the snapshot fields of the asset with the
	// given symbol in one statement and returns the stored row.
	UpdateMarketFields(ctx context.Context, symbol string, fields models.MarketFields) (*models.Asset, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
}

type assetRepo struct {
	db DBTX
}

const assetColumns = `id, name, symbol, current_price, market_cap, volume_24h, change_24h, description, image_url, created_at, updated_at`

func scanAsset(row pgx.Row) (*models.Asset, error) {
	var a models.Asset
	err := row.Scan(&a.ID, &a.Name, &a.Symbol, &a.CurrentPrice, &a.MarketCap, &a.Volume24h, &a.Change24h,
		&a.Description, &a.ImageURL, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func collectAssets(rows pgx.Rows) ([]models.Asset, error) {
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

func (r *assetRepo) List(ctx context.Context, filter AssetFilter) ([]models.Asset, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR symbol ILIKE $%d)", len(args), len(args)))
	}
	if filter.MinPrice.Valid {
		add("current_price >= $%d", filter.MinPrice.Decimal)
	}
	if filter.MaxPrice.Valid {
		add("current_price <= $%d", filter.MaxPrice.Decimal)
	}
	if filter.MinChange.Valid {
		add("change_24h >= $%d", filter.MinChange.Decimal)
	}
	if filter.MaxChange.Valid {
		add("change_24h <= $%d", filter.MaxChange.Decimal)
	}

	query := `SELECT ` + assetColumns + ` FROM cryptos`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch filter.OrderBy {
	case "market_cap":
		query += " ORDER BY market_cap DESC NULLS LAST, id"
	case "volume":
		query += " ORDER BY volume_24h DESC NULLS LAST, id"
	case "change":
		query += " ORDER BY change_24h DESC NULLS LAST, id"
	default:
		query += " ORDER BY id"
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAssets(rows)
}

func (r *assetRepo) GetByID(ctx context.Context, id int64) (*models.Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM cryptos WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("crypto %d", id))
	}
	return a, nil
}

func (r *assetRepo) GetBySymbol(ctx context.Context, symbol string) (*models.Asset, error) {
	symbol = models.NormalizeSymbol(symbol)
	a, err := scanAsset(r.db.QueryRow(ctx, `SELECT `+assetColumns+` FROM cryptos WHERE symbol = $1`, symbol))
	if err != nil {
		return nil, mapError(err, "crypto "+symbol)
	}
	return a, nil
}

func (r *assetRepo) GetByIDs(ctx context.Context, ids []int64) ([]models.Asset, error) {
	if len(ids) == 0 {
		return []models.Asset{}, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+assetColumns+` FROM cryptos WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	return collectAssets(rows)
}

func (r *assetRepo) ExistsBySymbol(ctx context.Context, symbol string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cryptos WHERE symbol = $1)`, models.NormalizeSymbol(symbol)).Scan(&exists)
	return exists, err
}

func (r *assetRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM cryptos WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

func (r *assetRepo) Create(ctx context.Context, asset *models.Asset) error {
	asset.Symbol = models.NormalizeSymbol(asset.Symbol)
	err := r.db.QueryRow(ctx,
		`INSERT INTO cryptos (name, symbol, current_price, market_cap, volume_24h, change_24h, description, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		asset.Name, asset.Symbol, asset.CurrentPrice, asset.MarketCap, asset.Volume24h, asset.Change24h,
		asset.Description, asset.ImageURL,
	).Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
	return mapError(err, "crypto "+asset.Symbol)
}

func (r *assetRepo) Update(ctx context.Context, asset *models.Asset) error {
	asset.Symbol = models.NormalizeSymbol(asset.Symbol)
	err := r.db.QueryRow(ctx,
		`UPDATE cryptos
		 SET name = $2, symbol = $3, current_price = $4, market_cap = $5, volume_24h = $6,
		     change_24h = $7, description = $8, image_url = $9, updated_at = NOW()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		asset.ID, asset.Name, asset.Symbol, asset.CurrentPrice, asset.MarketCap, asset.Volume24h,
		asset.Change24h, asset.Description, asset.ImageURL,
	).Scan(&asset.CreatedAt, &asset.UpdatedAt)
	return mapError(err, fmt.Sprintf("crypto %d", asset.ID))
}

func (r *assetRepo) UpdateMarketFields(ctx context.Context, symbol string, fields models.MarketFields) (*models.Asset, error) {
	symbol = models.NormalizeSymbol(symbol)
	a, err := scanAsset(r.db.QueryRow(ctx,
		`UPDATE cryptos
		 SET current_price = $2, market_cap = $3, volume_24h = $4, change_24h = $5, updated_at = NOW()
		 WHERE symbol = $1
		 RETURNING `+assetColumns,
		symbol, fields.CurrentPrice, fields.MarketCap, fields.Volume24h, fields.Change24h,
	))
	if err != nil {
		return nil, mapError(err, "crypto "+symbol)
	}
	return a, nil
}

func (r *assetRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cryptos WHERE id = $1`, id)
	if err != nil {
		return mapError(err, fmt.Sprintf("crypto %d", id))
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, fmt.Sprintf("crypto %d", id))
	}
	return nil
}

func (r *assetRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cryptos`).Scan(&n)
	return n, err
}
