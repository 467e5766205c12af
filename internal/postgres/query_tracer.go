package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rentwise/rentwise/internal/logger"
)

// QueryTracer wraps database operations with tracing and logging
type QueryTracer struct {
	logger        *logger.Logger
	query         string
	params        interface{}
	start         time.Time
	txID          string
	slowThreshold time.Duration
}

// NewQueryTracer creates a new query tracer
func NewQueryTracer(logger *logger.Logger, query string, params interface{}, txID string, slowThreshold time.Duration) *QueryTracer {
	return &QueryTracer{
		logger:        logger,
		query:         query,
		params:        params,
		start:         time.Now(),
		txID:          txID,
		slowThreshold: slowThreshold,
	}
}

// Done logs the query completion
func (qt *QueryTracer) Done(err error) {
	duration := time.Since(qt.start)
	fields := []interface{}{
		"duration_ms", duration.Milliseconds(),
		"query", qt.query,
		"params", fmt.Sprintf("%+v", qt.params),
	}
	if qt.txID != "" {
		fields = append(fields, "tx_id", qt.txID)
	}
	switch {
	case err != nil && err != sql.ErrNoRows:
		fields = append(fields, "error", err.Error())
		qt.logger.Errorw("database query failed", fields...)
	case qt.slowThreshold > 0 && duration > qt.slowThreshold:
		qt.logger.Warnw("slow database query", fields...)
	default:
		qt.logger.Debugw("database query completed", fields...)
	}
}

// TracedQuerier wraps a Querier with tracing
type TracedQuerier struct {
	Querier
	logger        *logger.Logger
	txID          string
	slowThreshold time.Duration
}

// NewTracedQuerier creates a new traced querier
func NewTracedQuerier(q Querier, logger *logger.Logger, txID string, slowThreshold time.Duration) *TracedQuerier {
	return &TracedQuerier{
		Querier:       q,
		logger:        logger,
		txID:          txID,
		slowThreshold: slowThreshold,
	}
}

func (tq *TracedQuerier) trace(query string, params interface{}) *QueryTracer {
	return NewQueryTracer(tq.logger, query, params, tq.txID, tq.slowThreshold)
}

// ExecContext traces ExecContext calls
func (tq *TracedQuerier) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	tracer := tq.trace(query, args)
	result, err := tq.Querier.ExecContext(ctx, query, args...)
	tracer.Done(err)
	return result, err
}

// QueryxContext traces QueryxContext calls
func (tq *TracedQuerier) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	tracer := tq.trace(query, args)
	rows, err := tq.Querier.QueryxContext(ctx, query, args...)
	tracer.Done(err)
	return rows, err
}

// GetContext traces GetContext calls
func (tq *TracedQuerier) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	tracer := tq.trace(query, args)
	err := tq.Querier.GetContext(ctx, dest, query, args...)
	tracer.Done(err)
	return err
}

// SelectContext traces SelectContext calls
func (tq *TracedQuerier) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	tracer := tq.trace(query, args)
	err := tq.Querier.SelectContext(ctx, dest, query, args...)
	tracer.Done(err)
	return err
}

// NamedExecContext traces NamedExecContext calls
func (tq *TracedQuerier) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	tracer := tq.trace(query, arg)
	result, err := tq.Querier.NamedExecContext(ctx, query, arg)
	tracer.Done(err)
	return result, err
}
