package temporal

import (
	"context"

	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/service"
	"go.temporal.io/sdk/worker"
	"go.uber.org/fx"
)

// Worker manages the Temporal worker instance.
type Worker struct {
	worker worker.Worker
	log    *logger.Logger
}

// NewWorker creates a new Temporal worker and registers workflows and activities.
func NewWorker(client *TemporalClient, cfg *config.Configuration, recurringBills service.RecurringBillService, log *logger.Logger) *Worker {
	w := worker.New(client.Client, cfg.Temporal.TaskQueue, worker.Options{
		// one generation pass at a time per worker
		MaxConcurrentActivityExecutionSize: 1,
	})

	RegisterWorkflowsAndActivities(w, recurringBills)

	return &Worker{
		worker: w,
		log:    log,
	}
}

// Start starts the Temporal worker.
func (w *Worker) Start() error {
	w.log.Info("Starting temporal worker...")
	return w.worker.Start()
}

// Stop stops the Temporal worker.
func (w *Worker) Stop() {
	w.log.Info("Stopping temporal worker...")
	if w.worker != nil {
		w.worker.Stop()
	}
}

// RegisterWithLifecycle registers the worker with the fx lifecycle.
func (w *Worker) RegisterWithLifecycle(lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.Start()
		},
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				w.Stop()
				close(done)
			}()

			select {
			case <-done:
				w.log.Info("Temporal worker stopped successfully")
			case <-ctx.Done():
				w.log.Error("Timeout while stopping temporal worker")
			}
			return nil
		},
	})
}
