package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rentwise/rentwise/internal/logger"
	"github.com/rentwise/rentwise/internal/postgres"
)

type HealthHandler struct {
	db     postgres.IClient
	logger *logger.Logger
}

func NewHealthHandler(
	db postgres.IClient,
	logger *logger.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:     db,
		logger: logger,
	}
}

// Health reports ok once the database answers a ping
func (h *HealthHandler) Health(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		h.logger.Warnw("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
