package testutil

import (
	"context"

	"github.com/rentwise/rentwise/internal/domain/organization"
)

// InMemoryOrganizationStore implements organization.Repository
type InMemoryOrganizationStore struct {
	*InMemoryStore[*organization.Organization]
}

var _ organization.Repository = (*InMemoryOrganizationStore)(nil)

func NewInMemoryOrganizationStore() *InMemoryOrganizationStore {
	return &InMemoryOrganizationStore{
		InMemoryStore: NewInMemoryStore[*organization.Organization](),
	}
}

func (s *InMemoryOrganizationStore) Create(ctx context.Context, org *organization.Organization) error {
	cp := *org
	return s.InMemoryStore.Create(ctx, org.ID, &cp)
}

func (s *InMemoryOrganizationStore) GetByID(ctx context.Context, id string) (*organization.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, organization.NewNotFoundError(id)
	}
	cp := *org
	return &cp, nil
}

func (s *InMemoryOrganizationStore) GetTimezone(ctx context.Context, id string) (string, error) {
	org, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return org.Timezone, nil
}
