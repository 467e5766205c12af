package postgres

import (
	"context"

	"github.com/rentwise/rentwise/internal/domain/organization"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
)

type organizationRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewOrganizationRepository(client postgres.IClient, logger *logger.Logger) organization.Repository {
	return &organizationRepository{client: client, logger: logger}
}

func (r *organizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	query := `INSERT INTO organizations (id, name, timezone, created_at, updated_at)
		VALUES (:id, :name, :timezone, :created_at, :updated_at)`

	if _, err := r.client.Querier(ctx).NamedExecContext(ctx, query, org); err != nil {
		return postgres.TranslateError(err, "Failed to create organization")
	}
	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*organization.Organization, error) {
	var org organization.Organization
	err := r.client.Querier(ctx).GetContext(ctx, &org,
		`SELECT id, name, timezone, created_at, updated_at FROM organizations WHERE id = $1`, id)
	if err != nil {
		err = postgres.TranslateError(err, "Failed to get organization")
		if ierr.IsNotFound(err) {
			return nil, organization.NewNotFoundError(id)
		}
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepository) GetTimezone(ctx context.Context, id string) (string, error) {
	org, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return org.Timezone, nil
}
