package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	ierr "github.com/rentwise/rentwise/internal/errors"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests above perMinute with a burst of one. A
// non-positive perMinute lets every request through.
func RateLimit(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Error(ierr.NewError("trigger rate exceeded").
				WithHint("Too many requests, please retry later").
				WithReportableDetails(map[string]any{
					"limit_per_minute": perMinute,
				}).
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
