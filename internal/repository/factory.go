package repository

import (
	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/domain/organization"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
	postgresRepo "github.com/rentwise/rentwise/internal/repository/postgres"
	"go.uber.org/fx"
)

// Module provides every repository backed by postgres
func Module() fx.Option {
	return fx.Provide(
		NewBillRepository,
		NewApprovalRepository,
		NewOrganizationRepository,
	)
}

func NewBillRepository(client postgres.IClient, logger *logger.Logger) bill.Repository {
	return postgresRepo.NewBillRepository(client, logger)
}

func NewApprovalRepository(client postgres.IClient, logger *logger.Logger) bill.ApprovalRepository {
	return postgresRepo.NewApprovalRepository(client, logger)
}

func NewOrganizationRepository(client postgres.IClient, logger *logger.Logger) organization.Repository {
	return postgresRepo.NewOrganizationRepository(client, logger)
}
