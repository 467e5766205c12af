package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/internal/api"
	"github.com/rentwise/rentwise/internal/api/cron"
	v1 "github.com/rentwise/rentwise/internal/api/v1"
	"github.com/rentwise/rentwise/internal/cache"
	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
	"github.com/rentwise/rentwise/internal/repository"
	"github.com/rentwise/rentwise/internal/scheduler"
	"github.com/rentwise/rentwise/internal/sentry"
	"github.com/rentwise/rentwise/internal/service"
	"github.com/rentwise/rentwise/internal/temporal"
	"github.com/rentwise/rentwise/internal/types"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Supply(cfg),
		fx.Provide(logger.NewLogger),
		sentry.Module(),
		cache.Module(),
		postgres.Module(),
		repository.Module(),
		service.Module(),
		temporal.Module(),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			api.NewRouter,
		),
	)

	opts = append(opts, modeOptions(cfg)...)

	app := fx.New(opts...)
	app.Run()
}

// modeOptions picks the processes started by this deployment mode
func modeOptions(cfg *config.Configuration) []fx.Option {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}
	backend := cfg.RecurringBills.Scheduler

	var opts []fx.Option
	switch mode {
	case types.ModeLocal:
		opts = append(opts, fx.Invoke(startAPIServer))
		switch backend {
		case types.SchedulerBackendCron:
			opts = append(opts, scheduler.Module())
		case types.SchedulerBackendTemporal:
			opts = append(opts, fx.Invoke(
				temporal.RegisterWorkerHooks,
				temporal.RegisterScheduleHooks,
			))
		}
	case types.ModeAPI:
		opts = append(opts, fx.Invoke(startAPIServer))
		if backend == types.SchedulerBackendTemporal {
			opts = append(opts, fx.Invoke(temporal.RegisterScheduleHooks))
		}
	case types.ModeWorker:
		opts = append(opts, fx.Invoke(
			temporal.RegisterWorkerHooks,
			temporal.RegisterScheduleHooks,
		))
	default:
		opts = append(opts, fx.Error(errors.New("unknown deployment mode: "+string(mode))))
	}
	return opts
}

func provideHandlers(
	cfg *config.Configuration,
	logger *logger.Logger,
	db postgres.IClient,
	recurringBillService service.RecurringBillService,
) api.Handlers {
	return api.Handlers{
		Health:             v1.NewHealthHandler(db, logger),
		CronRecurringBills: cron.NewRecurringBillHandler(recurringBillService, cfg, logger),
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting API server", "address", cfg.Server.Address)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return srv.Shutdown(ctx)
		},
	})
}
