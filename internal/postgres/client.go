package postgres

import (
	"context"

	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	sentryService "github.com/rentwise/rentwise/internal/sentry"
	"go.uber.org/fx"
)

// IClient defines the interface for postgres client operations
type IClient interface {
	// WithTx wraps the given function in a transaction
	WithTx(ctx context.Context, fn func(context.Context) error) error

	// Querier returns the current transaction if ctx carries one, or the pool
	Querier(ctx context.Context) Querier

	// PingContext verifies the database is reachable
	PingContext(ctx context.Context) error
}

var _ IClient = (*DB)(nil)

// Module provides the connection pool and the instrumented client
func Module() fx.Option {
	return fx.Options(
		fx.Provide(
			NewDB,
			NewClient,
		),
		fx.Invoke(registerHooks),
	)
}

// NewClient returns the client used by repositories, wrapped with Sentry spans
func NewClient(db *DB, sentry *sentryService.Service, logger *logger.Logger) IClient {
	return NewSentryClient(db, sentry, logger)
}

func registerHooks(lc fx.Lifecycle, db *DB, cfg *config.Configuration, logger *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			logger.Infow("connected to postgres",
				"host", cfg.Postgres.Host,
				"dbname", cfg.Postgres.DBName,
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}
