package temporal

import (
	"context"

	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	"go.uber.org/fx"
)

// Module provides the Temporal client, worker and service. Nothing dials
// Temporal unless a hook below is invoked.
func Module() fx.Option {
	return fx.Provide(
		NewTemporalClient,
		NewService,
		NewWorker,
	)
}

// RegisterWorkerHooks runs the worker for the lifetime of the app
func RegisterWorkerHooks(lc fx.Lifecycle, worker *Worker) {
	worker.RegisterWithLifecycle(lc)
}

// RegisterScheduleHooks starts the cron workflow on start and closes the client on stop
func RegisterScheduleHooks(lc fx.Lifecycle, client *TemporalClient, svc *Service, cfg *config.Configuration, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if cfg.RecurringBills.CronSchedule == "" {
				log.Warn("no cron schedule configured, recurring bills only run on demand")
				return nil
			}
			return svc.StartRecurringBillSchedule(ctx)
		},
		OnStop: func(ctx context.Context) error {
			client.Close()
			return nil
		},
	})
}
