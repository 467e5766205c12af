package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/rentwise/rentwise/internal/errors"
)

// ErrorHandler renders the last error recorded on the context
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
		}
	}
}
