package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/domain/bill"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/service"
	"github.com/rentwise/rentwise/internal/types"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

// CronScheduler triggers recurring bill generation in-process on a cron schedule
type CronScheduler struct {
	cron     *cron.Cron
	service  service.RecurringBillService
	logger   *logger.Logger
	schedule string
	horizon  int
	entryID  cron.EntryID

	mu      sync.Mutex
	lastRun time.Time
}

// Module registers the in-process scheduler. It is a no-op unless the
// configured scheduler backend is cron.
func Module() fx.Option {
	return fx.Options(
		fx.Provide(NewCronScheduler),
		fx.Invoke(registerHooks),
	)
}

func NewCronScheduler(cfg *config.Configuration, svc service.RecurringBillService, log *logger.Logger) (*CronScheduler, error) {
	s := &CronScheduler{
		service:  svc,
		logger:   log,
		schedule: cfg.RecurringBills.CronSchedule,
		horizon:  cfg.RecurringBills.HorizonDays,
	}

	cl := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		),
	)

	id, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid recurring bill cron schedule").
			WithReportableDetails(map[string]any{
				"cron_schedule": s.schedule,
			}).
			Mark(ierr.ErrValidation)
	}
	s.entryID = id
	return s, nil
}

func registerHooks(lc fx.Lifecycle, cfg *config.Configuration, s *CronScheduler) {
	if cfg.RecurringBills.Scheduler != types.SchedulerBackendCron {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}

// Start begins firing the schedule in the background
func (s *CronScheduler) Start() {
	s.cron.Start()
	s.logger.Infow("recurring bill scheduler started",
		"cron_schedule", s.schedule,
		"next_run", s.NextRun(),
	)
}

// Stop waits for a running pass to finish or for ctx to expire
func (s *CronScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("recurring bill scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Error("timeout while stopping recurring bill scheduler")
		return ctx.Err()
	}
}

// NextRun returns the next activation time, zero when not started
func (s *CronScheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// LastRun returns when the last pass finished
func (s *CronScheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *CronScheduler) run() {
	ctx := types.SetRequestID(context.Background(), types.GenerateUUIDWithPrefix(types.UUID_PREFIX_GENERATION_RUN))
	ctx = types.SetUserID(ctx, types.SystemUserID)
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs a single generation pass across all organizations
func (s *CronScheduler) RunOnce(ctx context.Context) (*bill.GenerationResult, error) {
	start := time.Now()
	result, err := s.service.GenerateRecurringBills(ctx, s.horizon, "")

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	if err != nil {
		s.logger.WithContext(ctx).Errorw("scheduled recurring bill generation failed",
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	s.logger.WithContext(ctx).Infow("scheduled recurring bill generation completed",
		"generated", result.Generated,
		"skipped", result.Skipped,
		"duplicates", result.Duplicates,
		"errors", result.Errors,
		"compensation_failures", result.CompensationFailures,
		"orphans_removed", result.OrphansRemoved,
		"org_count", len(result.OrgIDs),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// cronLogger adapts the application logger to cron.Logger
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
