package organization

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	// GetTimezone returns the configured IANA timezone, empty when unset
	GetTimezone(ctx context.Context, id string) (string, error)
}
