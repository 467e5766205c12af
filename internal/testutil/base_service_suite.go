package testutil

import (
	"context"
	"time"

	"github.com/rentwise/rentwise/internal/cache"
	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/domain/organization"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/sentry"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	BillRepo         bill.Repository
	ApprovalRepo     bill.ApprovalRepository
	OrganizationRepo organization.Repository
}

// BaseServiceTestSuite provides common functionality for all service test suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	db     *MockPostgresClient
	cache  cache.Cache
	sentry *sentry.Service
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	cfg := config.GetDefaultConfig()
	cfg.Logging.Level = types.LogLevelError
	cfg.RecurringBills.DefaultTimezone = "UTC"
	// compensation retries back off for real, keep tests fast
	cfg.RecurringBills.CompensationMaxRetries = 1

	var err error
	s.config = cfg
	s.logger, err = logger.NewLogger(cfg)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
	s.sentry = sentry.NewSentryService(cfg, s.logger)
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		BillRepo:         NewInMemoryBillStore(),
		ApprovalRepo:     NewInMemoryApprovalStore(),
		OrganizationRepo: NewInMemoryOrganizationStore(),
	}
	s.db = NewMockPostgresClient(s.logger)
	s.cache = cache.NewInMemoryCache(time.Minute, time.Minute)
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.BillRepo.(*InMemoryBillStore).Clear()
	s.stores.ApprovalRepo.(*InMemoryApprovalStore).Clear()
	s.stores.OrganizationRepo.(*InMemoryOrganizationStore).Clear()
	s.cache.Flush(s.ctx)
}

func (s *BaseServiceTestSuite) ClearStores() {
	s.clearStores()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetStores returns all test repositories
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the test database client
func (s *BaseServiceTestSuite) GetDB() *MockPostgresClient {
	return s.db
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetSentry returns a disabled sentry service
func (s *BaseServiceTestSuite) GetSentry() *sentry.Service {
	return s.sentry
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetNow returns the current test time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now.UTC()
}

// GetUUID returns a new UUID string
func (s *BaseServiceTestSuite) GetUUID() string {
	return types.GenerateUUID()
}
