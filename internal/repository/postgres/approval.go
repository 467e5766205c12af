package postgres

import (
	"context"

	"github.com/rentwise/rentwise/internal/domain/bill"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
	"github.com/rentwise/rentwise/internal/types"
)

type approvalRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewApprovalRepository(client postgres.IClient, logger *logger.Logger) bill.ApprovalRepository {
	return &approvalRepository{client: client, logger: logger}
}

func (r *approvalRepository) GetApprovalState(ctx context.Context, billID string) (types.ApprovalState, error) {
	var state types.ApprovalState
	err := r.client.Querier(ctx).GetContext(ctx, &state,
		`SELECT approval_state FROM bill_workflows WHERE bill_id = $1`, billID)
	if err != nil {
		err = postgres.TranslateError(err, "Failed to read bill approval state")
		if ierr.IsNotFound(err) {
			return types.ApprovalStateDraft, nil
		}
		return "", err
	}
	return state, nil
}
