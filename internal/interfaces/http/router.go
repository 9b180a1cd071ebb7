// Package http assembles the gin route tree and the HTTP server.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/prometheus"
	"github.com/scenedex/scenedex/internal/interfaces/http/handlers"
	"github.com/scenedex/scenedex/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies for the
// complete route tree.
type RouterConfig struct {
	ScriptHandler *handlers.ScriptHandler
	HealthHandler *handlers.HealthHandler

	Logger     logging.Logger
	Metrics    *prometheus.Metrics
	Server     config.ServerConfig
	MetricsCfg config.MetricsConfig
}

// NewRouter constructs the gin engine with global middleware, probe
// endpoints and the versioned API group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery(cfg.Logger))
	engine.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics))

	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(engine)
	}
	if cfg.Metrics != nil && cfg.MetricsCfg.Enabled {
		path := cfg.MetricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		engine.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}

	v1 := engine.Group("/api/v1")
	if cfg.ScriptHandler != nil {
		cfg.ScriptHandler.RegisterRoutes(v1)
	}

	return engine
}
