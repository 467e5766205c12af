package cron

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/internal/api/dto"
	"github.com/rentwise/rentwise/internal/config"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/service"
	"github.com/rentwise/rentwise/internal/types"
)

// RecurringBillHandler triggers recurring bill generation from an external scheduler
type RecurringBillHandler struct {
	service service.RecurringBillService
	config  *config.Configuration
	logger  *logger.Logger
}

func NewRecurringBillHandler(
	service service.RecurringBillService,
	config *config.Configuration,
	logger *logger.Logger,
) *RecurringBillHandler {
	return &RecurringBillHandler{
		service: service,
		config:  config,
		logger:  logger,
	}
}

// GenerateRecurringBills runs one generation pass and returns its counters
func (h *RecurringBillHandler) GenerateRecurringBills(c *gin.Context) {
	start := time.Now()

	var req dto.GenerateRecurringBillsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}
	if err := req.Validate(); err != nil {
		c.Error(err)
		return
	}

	horizon := req.DaysHorizon
	if horizon == 0 {
		horizon = h.config.RecurringBills.HorizonDays
	}

	ctx := types.SetUserID(c.Request.Context(), types.SystemUserID)
	h.logger.WithContext(ctx).Infow("starting recurring bill generation cron job",
		"days_horizon", horizon,
		"org_id", req.OrgID,
	)

	result, err := h.service.GenerateRecurringBills(ctx, horizon, req.OrgID)
	if err != nil {
		h.logger.WithContext(ctx).Errorw("recurring bill generation cron job failed", "error", err)
		c.Error(err)
		return
	}

	h.logger.WithContext(ctx).Infow("completed recurring bill generation cron job",
		"generated", result.Generated,
		"errors", result.Errors,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	c.JSON(http.StatusOK, dto.NewGenerateRecurringBillsResponse(result))
}
