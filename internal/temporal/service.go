package temporal

import (
	"context"

	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/temporal/models"
	"go.temporal.io/sdk/client"
	temporalsdk "go.temporal.io/sdk/temporal"
)

// Service handles Temporal workflow operations
type Service struct {
	client *TemporalClient
	log    *logger.Logger
	cfg    *config.Configuration
}

// NewService creates a new Temporal service
func NewService(client *TemporalClient, cfg *config.Configuration, log *logger.Logger) *Service {
	return &Service{
		client: client,
		log:    log,
		cfg:    cfg,
	}
}

// StartRecurringBillSchedule starts the cron workflow that generates recurring
// bills. A schedule that is already running is left untouched.
func (s *Service) StartRecurringBillSchedule(ctx context.Context) error {
	options := client.StartWorkflowOptions{
		ID:           models.RecurringBillScheduleWorkflowID,
		TaskQueue:    s.cfg.Temporal.TaskQueue,
		CronSchedule: s.cfg.RecurringBills.CronSchedule,
	}
	input := models.RecurringBillGenerationInput{
		DaysHorizon: s.cfg.RecurringBills.HorizonDays,
	}

	we, err := s.client.Client.ExecuteWorkflow(ctx, options, models.WorkflowRecurringBillGeneration, input)
	if err != nil {
		if temporalsdk.IsWorkflowExecutionAlreadyStartedError(err) {
			s.log.Infow("recurring bill schedule already running",
				"workflow_id", options.ID,
			)
			return nil
		}
		s.log.Errorw("failed to start recurring bill schedule", "error", err)
		return err
	}

	s.log.Infow("scheduled recurring bill generation",
		"workflow_id", we.GetID(),
		"run_id", we.GetRunID(),
		"cron_schedule", options.CronSchedule,
	)
	return nil
}
