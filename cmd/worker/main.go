// Command worker consumes reconciliation tasks from Kafka and runs the
// pipeline against the shared backing stores.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/database/postgres"
	"github.com/scenedex/scenedex/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/scenedex/scenedex/internal/infrastructure/database/redis"
	kafkaqueue "github.com/scenedex/scenedex/internal/infrastructure/messaging/kafka"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	minioclient "github.com/scenedex/scenedex/internal/infrastructure/storage/minio"
	"github.com/scenedex/scenedex/internal/interfaces/http/handlers"
)

const defaultHealthPort = 8081

// Build-time variable injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment variables only)")
	healthPort := flag.Int("health-port", defaultHealthPort, "port for the worker health probe endpoints")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Worker.Mode != "kafka" {
		fmt.Fprintln(os.Stderr, "worker requires worker.mode=kafka; local mode runs the pipeline inside the api server")
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:  cfg.Log.Level,
		Format: logFormat(cfg.Log.Format),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	logger.Info("starting scenedex worker",
		logging.String("version", version),
		logging.String("topic", cfg.Kafka.Topic),
		logging.String("group_id", cfg.Kafka.GroupID),
	)

	ctx := context.Background()

	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", logging.Err(err))
	}
	defer conn.Close()

	rdb, err := redisclient.NewClient(ctx, cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", logging.Err(err))
	}
	defer rdb.Close() //nolint:errcheck

	objStore, err := minioclient.NewClient(ctx, cfg.MinIO, logger)
	if err != nil {
		logger.Fatal("failed to connect to object storage", logging.Err(err))
	}

	store := repositories.NewStore(conn.Pool(), logger)
	objects := minioclient.NewScriptStore(objStore, logger)
	locker := redisclient.NewScriptLocker(rdb, logger)
	reconciler := revision.NewReconciler(store, objects, locker, logger)

	consumer := kafkaqueue.NewTaskConsumer(cfg.Kafka, reconcileHandler(reconciler, logger), logger)
	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("failed to start task consumer", logging.Err(err))
	}

	healthSrv := startHealthServer(*healthPort, logger,
		handlers.NamedCheck{CheckName: "postgres", Fn: conn.HealthCheck},
		handlers.NamedCheck{CheckName: "redis", Fn: rdb.HealthCheck},
		handlers.NamedCheck{CheckName: "minio", Fn: objStore.HealthCheck},
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	if err := consumer.Stop(); err != nil {
		logger.Error("task consumer stop error", logging.Err(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", logging.Err(err))
	}

	logger.Info("stopped")
}

// startHealthServer serves the liveness and readiness probes for the worker
// process on its own port.
func startHealthServer(port int, logger logging.Logger, checkers ...handlers.HealthChecker) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	handlers.NewHealthHandler(version, checkers...).RegisterRoutes(engine)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: engine,
	}
	go func() {
		logger.Info("health server listening", logging.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", logging.Err(err))
		}
	}()
	return srv
}

// reconcileHandler dispatches queued tasks to the reconciliation pipeline.
func reconcileHandler(rec *revision.Reconciler, log logging.Logger) revision.Handler {
	return func(ctx context.Context, task revision.Task) error {
		if task.Kind != revision.TaskReconcile {
			log.Warn("Skipping task of unknown kind",
				logging.String("kind", string(task.Kind)),
				logging.String("task_id", string(task.ID)))
			return nil
		}
		return rec.Reconcile(ctx, task.ScriptID)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromEnv()
}

// logFormat maps the application config's "text" format to the logger's
// "console" encoding.
func logFormat(format string) string {
	if format == "text" {
		return "console"
	}
	return "json"
}
