package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rentwise/rentwise/internal/config"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/logger"
)

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	logger        *logger.Logger
	slowThreshold time.Duration
}

// Querier interface defines all database operations
// Both *sqlx.DB and *sqlx.Tx implement these methods
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
}

// NewDB opens the connection pool described by config
func NewDB(config *config.Configuration, logger *logger.Logger) (*DB, error) {
	db, err := sqlx.Connect("postgres", config.Postgres.GetDSN())
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Could not connect to postgres").
			WithReportableDetails(map[string]any{
				"host":   config.Postgres.Host,
				"dbname": config.Postgres.DBName,
			}).
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(config.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(config.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(config.Postgres.ConnMaxLifetimeMinutes) * time.Minute)

	return NewFromSqlx(db, logger, config.Postgres.SlowQueryThreshold), nil
}

// NewFromSqlx wraps an existing pool
func NewFromSqlx(db *sqlx.DB, logger *logger.Logger, slowThreshold time.Duration) *DB {
	return &DB{DB: db, logger: logger, slowThreshold: slowThreshold}
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

// Querier returns the transaction from context or the base DB
func (db *DB) Querier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID, db.slowThreshold)
	}
	return NewTracedQuerier(db.DB, db.logger, "", db.slowThreshold)
}
