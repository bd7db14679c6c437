package server

import (
	"context"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zainab-noor-25/invoice-api/internal/common"
	"github.com/zainab-noor-25/invoice-api/internal/repository"
)

// ConnectDB opens the configured store and creates the invoice tables when missing.
// pool is nil for sqlite.
func ConnectDB(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*entsql.Driver, *pgxpool.Pool, error) {
	logger.Info("connecting to database", "driver", cfg.Database.Driver)
	drv, pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, nil, err
	}
	if err := repository.EnsureSchema(ctx, drv, cfg.Embedding.Dim, logger); err != nil {
		repository.Close(drv, pool, logger)
		return nil, nil, err
	}
	logger.Info("successfully connected to database")
	return drv, pool, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, drv *entsql.Driver, logger *slog.Logger, timeout time.Duration) error {
	return repository.HealthCheck(ctx, drv, timeout, logger)
}

// CloseDB closes the database connections gracefully
func CloseDB(drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) {
	repository.Close(drv, pool, logger)
}
