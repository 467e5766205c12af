package service

import (
	"github.com/rentwise/rentwise/internal/cache"
	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/domain/organization"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
	sentryService "github.com/rentwise/rentwise/internal/sentry"
	"go.uber.org/fx"
)

// ServiceParams holds common dependencies for services
type ServiceParams struct {
	fx.In

	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient
	Cache  cache.Cache
	Sentry *sentryService.Service

	// Repositories
	BillRepo         bill.Repository
	ApprovalRepo     bill.ApprovalRepository
	OrganizationRepo organization.Repository
}

// Module provides every service
func Module() fx.Option {
	return fx.Provide(
		NewTimezoneResolver,
		NewRecurringBillService,
	)
}
