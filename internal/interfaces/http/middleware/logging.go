// Package middleware contains the gin middleware shared by all routes.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/prometheus"
)

// slowThreshold marks requests worth a warning instead of plain info.
const slowThreshold = 3 * time.Second

// skipPaths are high-frequency probe paths kept out of the request log.
var skipPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
	"/metrics": {},
}

// RequestLogging logs one line per completed request and records HTTP
// metrics when a collector is given.
func RequestLogging(log logging.Logger, metrics *prometheus.Metrics) gin.HandlerFunc {
	log = log.Named("http")

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		elapsed := time.Since(start)
		status := c.Writer.Status()

		if metrics != nil {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)
		}

		if _, skip := skipPaths[path]; skip {
			return
		}

		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("elapsed", elapsed),
			logging.String("client_ip", c.ClientIP()),
			logging.Int64("bytes", int64(c.Writer.Size())),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logging.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("Request failed", fields...)
		case status >= 400:
			log.Warn("Request rejected", fields...)
		case elapsed > slowThreshold:
			log.Warn("Slow request", fields...)
		default:
			log.Info("Request complete", fields...)
		}
	}
}
