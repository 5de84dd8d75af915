package database

import (
	"context"
	"fmt"
	"time"

	"cryptofolio/src/config"
	aws_handler "cryptofolio/src/utils/aws"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PasswordSource resolves a database password from a secret store.
type PasswordSource interface {
	GetDatabasePassword(ctx context.Context, secretID string) (string, error)
}

// DSN builds the connection string from config. When an AWS secret name is
// configured the password is read from Secrets Manager instead of the file.
func DSN(ctx context.Context, cfg *config.Config) (string, error) {
	if cfg.Databases.SQL.ConnectionString == "" && cfg.Databases.SQL.AWSSecretName != "" {
		handler, err := aws_handler.NewAWSHandler(cfg.AWS)
		if err != nil {
			return "", fmt.Errorf("failed to create aws session: %w", err)
		}
		return BuildDSN(ctx, cfg, handler.SecretManager)
	}
	return BuildDSN(ctx, cfg, nil)
}

// BuildDSN is DSN with an explicit secret source. secrets may be nil when no
// secret name is configured.
func BuildDSN(ctx context.Context, cfg *config.Config, secrets PasswordSource) (string, error) {
	sql := cfg.Databases.SQL
	if sql.ConnectionString != "" {
		return sql.ConnectionString, nil
	}

	password := sql.Password
	if sql.AWSSecretName != "" {
		if secrets == nil {
			return "", fmt.Errorf("database secret %s configured without a secret source", sql.AWSSecretName)
		}
		var err error
		password, err = secrets.GetDatabasePassword(ctx, sql.AWSSecretName)
		if err != nil {
			return "", fmt.Errorf("failed to read database secret %s: %w", sql.AWSSecretName, err)
		}
	}

	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		sql.Host, sql.Username, password, sql.Database, sql.Port), nil
}

func SetupDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	dsn, err := DSN(ctx, cfg)
	if err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
