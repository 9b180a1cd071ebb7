package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
)

// Recovery converts panics into 500 responses and logs the stack.
func Recovery(log logging.Logger) gin.HandlerFunc {
	log = log.Named("recovery")

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic in request handler",
					logging.String("path", c.Request.URL.Path),
					logging.Any("panic", r),
					logging.String("stack", string(debug.Stack())),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    "COMMON_001",
					"message": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
