package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/internal/api/cron"
	v1 "github.com/rentwise/rentwise/internal/api/v1"
	"github.com/rentwise/rentwise/internal/config"
	"github.com/rentwise/rentwise/internal/rest/middleware"
	"github.com/rentwise/rentwise/internal/types"
)

type Handlers struct {
	Health             *v1.HealthHandler
	CronRecurringBills *cron.RecurringBillHandler
}

func NewRouter(handlers Handlers, cfg *config.Configuration) *gin.Engine {
	if cfg.Deployment.Mode != types.ModeLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware,
		middleware.SentryMiddleware(cfg),
		middleware.ErrorHandler(),
	)

	router.GET("/health", handlers.Health.Health)

	v1Group := router.Group("/v1")
	registerV1Routes(v1Group, handlers, cfg)

	return router
}

func registerV1Routes(router *gin.RouterGroup, handlers Handlers, cfg *config.Configuration) {
	// Cron routes, called by an external scheduler
	cronGroup := router.Group("/cron")
	{
		recurringBills := cronGroup.Group("/recurring-bills", middleware.RateLimit(cfg.Server.TriggerRatePerMinute))
		recurringBills.POST("/generate", handlers.CronRecurringBills.GenerateRecurringBills)
	}
}
