package repositories

import (
	"context"
	"errors"
	"fmt"

	"cryptofolio/src/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store groups the repositories and the transactional boundary that spans them.
type Store interface {
	Assets() AssetRepository
	Portfolios() PortfolioRepository
	Transactions() TransactionRepository
	// WithinTx runs fn against a Store bound to a single database transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgresStore returns a Store backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Assets() AssetRepository             { return &assetRepo{db: s.db} }
func (s *pgStore) Portfolios() PortfolioRepository     { return &portfolioRepo{db: s.db} }
func (s *pgStore) Transactions() TransactionRepository { return &transactionRepo{db: s.db} }

func (s *pgStore) WithinTx(ctx context.Context, fn func(Store) error) (err error) {
	// Already inside a transaction: join it.
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&pgStore{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// mapError converts driver errors into the domain taxonomy.
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, utils.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s already exists (%s): %w", what, pgErr.ConstraintName, utils.ErrConflict)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s is still referenced (%s): %w", what, pgErr.ConstraintName, utils.ErrConflict)
		case pgCheckViolation:
			return fmt.Errorf("%s violates %s: %w", what, pgErr.ConstraintName, utils.ErrInvalidArgument)
		}
	}
	return err
}
