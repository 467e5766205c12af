package workflows

import (
	"github.com/rentwise/rentwise/internal/domain/bill"
	"github.com/rentwise/rentwise/internal/temporal/models"
	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// RecurringBillGenerationWorkflow runs one generation pass as an activity. It is
// started with a cron schedule, every run is a separate pass.
func RecurringBillGenerationWorkflow(ctx workflow.Context, input models.RecurringBillGenerationInput) (*models.RecurringBillGenerationResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting recurring bill generation workflow",
		"days_horizon", input.DaysHorizon,
		"org_id", input.OrgID,
	)

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: models.DefaultGenerationTimeout,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    models.DefaultInitialInterval,
			BackoffCoefficient: models.DefaultBackoffCoefficient,
			MaximumInterval:    models.DefaultMaximumInterval,
			MaximumAttempts:    models.DefaultMaximumAttempts,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	var result bill.GenerationResult
	err := workflow.ExecuteActivity(ctx, models.ActivityGenerateRecurringBills, input).Get(ctx, &result)
	if err != nil {
		logger.Error("Recurring bill generation activity failed", "error", err)
		return nil, err
	}

	logger.Info("Recurring bill generation workflow completed",
		"generated", result.Generated,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
	)
	return &models.RecurringBillGenerationResult{
		GenerationResult: result,
		CompletedAt:      workflow.Now(ctx),
	}, nil
}
