package bill

import (
	"context"
	"time"

	"github.com/rentwise/rentwise/internal/types"
)

// Repository defines the persistence operations of the recurring bill generator
type Repository interface {
	// ListRecurringTemplates returns recurring template bills. Schedules are not
	// decoded, callers use Bill.Schedule.
	ListRecurringTemplates(ctx context.Context, filter *types.RecurringTemplateFilter) ([]*Bill, error)

	// GetLineItems returns the line items of a bill ordered by line_order
	GetLineItems(ctx context.Context, billID string) ([]*LineItem, error)

	// GetByIdempotencyKey returns the bill carrying key or a not found error
	GetByIdempotencyKey(ctx context.Context, key string) (*Bill, error)

	// ListInstanceDates returns the occurrence dates of every instance already
	// generated from the template
	ListInstanceDates(ctx context.Context, templateID string) ([]time.Time, error)

	// Create inserts a bill header. A clash on the idempotency key or on
	// (parent_bill_id, instance_date) is reported as ErrAlreadyExists.
	Create(ctx context.Context, b *Bill) error

	// CreateLineItems inserts line items in bulk
	CreateLineItems(ctx context.Context, items []*LineItem) error

	// Delete removes a bill and its line items
	Delete(ctx context.Context, id string) error

	// UpdateSchedule persists the schedule of a template bill
	UpdateSchedule(ctx context.Context, templateID string, s *Schedule) error

	// ListOrphanInstances returns draft instances without line items created
	// before filter.CreatedBefore
	ListOrphanInstances(ctx context.Context, filter *types.OrphanInstanceFilter) ([]*Bill, error)
}

// ApprovalRepository reads the state of the downstream bill approval workflow
type ApprovalRepository interface {
	// GetApprovalState returns the approval state of a bill, ApprovalStateDraft when
	// the bill never entered the workflow
	GetApprovalState(ctx context.Context, billID string) (types.ApprovalState, error)
}
