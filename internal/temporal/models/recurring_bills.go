package models

import (
	"time"

	"github.com/rentwise/rentwise/internal/domain/bill"
)

const (
	// WorkflowRecurringBillGeneration is the registered name of the generation workflow
	WorkflowRecurringBillGeneration = "RecurringBillGenerationWorkflow"

	// ActivityGenerateRecurringBills is the registered name of the generation activity
	ActivityGenerateRecurringBills = "GenerateRecurringBillsActivity"

	// RecurringBillScheduleWorkflowID identifies the cron workflow. One per namespace.
	RecurringBillScheduleWorkflowID = "recurring-bill-generation"

	// DefaultGenerationTimeout bounds one generation pass
	DefaultGenerationTimeout = 30 * time.Minute

	// DefaultMaximumAttempts is the default maximum attempts for the generation activity.
	// Generation is idempotent so retries never duplicate bills.
	DefaultMaximumAttempts = 3

	// DefaultInitialInterval is the default initial interval for retry policies
	DefaultInitialInterval = 10 * time.Second

	// DefaultMaximumInterval is the default maximum interval for retry policies
	DefaultMaximumInterval = 5 * time.Minute

	// DefaultBackoffCoefficient is the default backoff coefficient for retry policies
	DefaultBackoffCoefficient = 2.0
)

// RecurringBillGenerationInput is the input of the workflow and of its activity
type RecurringBillGenerationInput struct {
	DaysHorizon int    `json:"days_horizon"`
	OrgID       string `json:"org_id,omitempty"`
}

// RecurringBillGenerationResult is returned by the workflow
type RecurringBillGenerationResult struct {
	bill.GenerationResult
	CompletedAt time.Time `json:"completed_at"`
}
