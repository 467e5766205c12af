package testutil

import (
	"context"
	"sync"

	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil) // Ensure MockPostgresClient implements IClient

// MockPostgresClient is a mock implementation of postgres client for testing.
// In-memory stores do not roll back, so WithTx only runs fn and counts calls.
type MockPostgresClient struct {
	logger *logger.Logger

	mu      sync.Mutex
	txCount int
	pingErr error
}

// NewMockPostgresClient creates a new mock postgres client
func NewMockPostgresClient(logger *logger.Logger) *MockPostgresClient {
	return &MockPostgresClient{
		logger: logger,
	}
}

// WithTx executes the given function without a real transaction
func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.mu.Lock()
	c.txCount++
	c.mu.Unlock()
	return fn(ctx)
}

// Querier is never used by in-memory stores
func (c *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}

// PingContext returns the error set with SetPingError
func (c *MockPostgresClient) PingContext(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

// SetPingError makes PingContext fail with err
func (c *MockPostgresClient) SetPingError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

// TxCount returns how many times WithTx was called
func (c *MockPostgresClient) TxCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txCount
}
