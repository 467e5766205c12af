package testutil

import (
	"context"

	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/types"
)

// InMemoryApprovalStore implements bill.ApprovalRepository
type InMemoryApprovalStore struct {
	*InMemoryStore[types.ApprovalState]
}

var _ bill.ApprovalRepository = (*InMemoryApprovalStore)(nil)

func NewInMemoryApprovalStore() *InMemoryApprovalStore {
	return &InMemoryApprovalStore{
		InMemoryStore: NewInMemoryStore[types.ApprovalState](),
	}
}

func (s *InMemoryApprovalStore) GetApprovalState(ctx context.Context, billID string) (types.ApprovalState, error) {
	state, err := s.Get(ctx, billID)
	if err != nil {
		return types.ApprovalStateDraft, nil
	}
	return state, nil
}

// SetApprovalState records the workflow state of a bill
func (s *InMemoryApprovalStore) SetApprovalState(ctx context.Context, billID string, state types.ApprovalState) {
	if err := s.Update(ctx, billID, state); err != nil {
		_ = s.Create(ctx, billID, state)
	}
}
