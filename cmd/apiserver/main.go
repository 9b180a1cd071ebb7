// Command apiserver runs the Scenedex HTTP API and, in local worker mode,
// the in-process reconciliation pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/database/postgres"
	"github.com/scenedex/scenedex/internal/infrastructure/database/postgres/repositories"
	redisclient "github.com/scenedex/scenedex/internal/infrastructure/database/redis"
	kafkaqueue "github.com/scenedex/scenedex/internal/infrastructure/messaging/kafka"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/prometheus"
	minioclient "github.com/scenedex/scenedex/internal/infrastructure/storage/minio"
	scenedexhttp "github.com/scenedex/scenedex/internal/interfaces/http"
	"github.com/scenedex/scenedex/internal/interfaces/http/handlers"
)

// Build-time variable injected via ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: environment variables only)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
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

	logger.Info("starting scenedex api server",
		logging.String("version", version),
		logging.Int("port", cfg.Server.Port),
		logging.String("worker_mode", cfg.Worker.Mode),
	)

	ctx := context.Background()

	conn, err := postgres.NewConnection(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to postgres", logging.Err(err))
	}
	defer conn.Close()

	if err := conn.RunMigrations(cfg.Database.MigrationPath); err != nil {
		logger.Fatal("failed to run migrations", logging.Err(err))
	}

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

	// In kafka mode this process only enqueues; dedicated worker processes
	// consume.  In local mode the pipeline runs in-process.
	var (
		queue      revision.Queue
		localQueue *revision.LocalQueue
		producer   *kafkaqueue.TaskProducer
	)
	switch cfg.Worker.Mode {
	case "kafka":
		producer = kafkaqueue.NewTaskProducer(cfg.Kafka, logger)
		queue = producer
	default:
		localQueue = revision.NewLocalQueue(
			cfg.Worker.Concurrency, cfg.Worker.QueueDepth,
			reconcileHandler(reconciler, logger), logger)
		queue = localQueue
	}

	service := revision.NewService(store, queue, logger)
	resolver := revision.NewResolver(store, logger)
	metrics := prometheus.NewMetrics()

	scriptHandler := handlers.NewScriptHandler(
		service, resolver, objects,
		store.Scripts(), store.Elements(),
		metrics, cfg.Server.MaxBodySize)
	healthHandler := handlers.NewHealthHandler(version,
		handlers.NamedCheck{CheckName: "postgres", Fn: conn.HealthCheck},
		handlers.NamedCheck{CheckName: "redis", Fn: rdb.HealthCheck},
		handlers.NamedCheck{CheckName: "minio", Fn: objStore.HealthCheck},
	)

	engine := scenedexhttp.NewRouter(scenedexhttp.RouterConfig{
		ScriptHandler: scriptHandler,
		HealthHandler: healthHandler,
		Logger:        logger,
		Metrics:       metrics,
		Server:        cfg.Server,
		MetricsCfg:    cfg.Metrics,
	})
	server := scenedexhttp.NewServer(cfg.Server, engine, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("http server error", logging.Err(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	if err := server.Stop(ctx); err != nil {
		logger.Error("http server shutdown error", logging.Err(err))
	}
	if localQueue != nil {
		localQueue.Shutdown()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("task producer close error", logging.Err(err))
		}
	}

	logger.Info("stopped")
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
