package activities

import (
	"context"

	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/service"
	"github.com/rentwise/rentwise/internal/temporal/models"
	"go.temporal.io/sdk/activity"
)

// RecurringBillActivities runs the generation engine inside a Temporal activity
type RecurringBillActivities struct {
	service service.RecurringBillService
}

func NewRecurringBillActivities(service service.RecurringBillService) *RecurringBillActivities {
	return &RecurringBillActivities{service: service}
}

// GenerateRecurringBillsActivity runs one generation pass
func (a *RecurringBillActivities) GenerateRecurringBillsActivity(ctx context.Context, input models.RecurringBillGenerationInput) (*bill.GenerationResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Generating recurring bills",
		"days_horizon", input.DaysHorizon,
		"org_id", input.OrgID,
		"attempt", activity.GetInfo(ctx).Attempt,
	)

	result, err := a.service.GenerateRecurringBills(ctx, input.DaysHorizon, input.OrgID)
	if err != nil {
		logger.Error("Recurring bill generation failed", "error", err)
		return nil, err
	}
	return result, nil
}
