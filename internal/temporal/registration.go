package temporal

import (
	"github.com/rentwise/rentwise/internal/service"
	"github.com/rentwise/rentwise/internal/temporal/activities"
	"github.com/rentwise/rentwise/internal/temporal/models"
	"github.com/rentwise/rentwise/internal/temporal/workflows"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// RegisterWorkflowsAndActivities registers all workflows and activities with a Temporal worker.
func RegisterWorkflowsAndActivities(w worker.Registry, recurringBills service.RecurringBillService) {
	w.RegisterWorkflowWithOptions(workflows.RecurringBillGenerationWorkflow, workflow.RegisterOptions{
		Name: models.WorkflowRecurringBillGeneration,
	})

	recurringBillActivities := activities.NewRecurringBillActivities(recurringBills)
	w.RegisterActivityWithOptions(recurringBillActivities.GenerateRecurringBillsActivity, activity.RegisterOptions{
		Name: models.ActivityGenerateRecurringBills,
	})
}
