package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
)

// ReaderInterface abstracts kafka.Reader for testing.
type ReaderInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TaskConsumer reads pipeline tasks from the task topic and hands them to a
// handler.  Messages commit after handling regardless of the handler's
// outcome: a task that fails marks its script ERROR rather than redelivering
// forever.
type TaskConsumer struct {
	reader  ReaderInterface
	handler revision.Handler
	logger  logging.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewTaskConsumer creates a Kafka-backed task consumer.
func NewTaskConsumer(cfg config.KafkaConfig, handler revision.Handler, log logging.Logger) *TaskConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: kafka.FirstOffset,
	})
	return &TaskConsumer{
		reader:  reader,
		handler: handler,
		logger:  log.Named("task_consumer"),
	}
}

// NewTaskConsumerWithReader creates a consumer with an existing reader, for
// testing.
func NewTaskConsumerWithReader(r ReaderInterface, handler revision.Handler, log logging.Logger) *TaskConsumer {
	return &TaskConsumer{
		reader:  r,
		handler: handler,
		logger:  log.Named("task_consumer"),
	}
}

// Start begins consuming in a background goroutine.
func (c *TaskConsumer) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeConflict, "task consumer already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.wg.Add(1)
	go c.run(runCtx)
	return nil
}

// Stop cancels the consume loop and closes the reader.
func (c *TaskConsumer) Stop() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	c.cancel()
	c.wg.Wait()

	if err := c.reader.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "failed to close task consumer")
	}
	return nil
}

// Fetch failures back off exponentially so a dead broker does not spin the
// loop hot.
const (
	fetchBackoffMin = 250 * time.Millisecond
	fetchBackoffMax = 5 * time.Second
)

func (c *TaskConsumer) run(ctx context.Context) {
	defer c.wg.Done()

	backoff := fetchBackoffMin
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("Failed to fetch task message",
				logging.Duration("retry_in", backoff),
				logging.Err(err),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > fetchBackoffMax {
				backoff = fetchBackoffMax
			}
			continue
		}
		backoff = fetchBackoffMin

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("Failed to commit task message", logging.Err(err))
		}
	}
}

func (c *TaskConsumer) handle(ctx context.Context, msg kafka.Message) {
	var task revision.Task
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		c.logger.Error("Dropping undecodable task message",
			logging.String("key", string(msg.Key)),
			logging.Err(err),
		)
		return
	}

	start := time.Now()
	if err := c.handler(ctx, task); err != nil {
		c.logger.Error("Task failed",
			logging.String("task_id", task.ID.String()),
			logging.String("script_id", task.ScriptID.String()),
			logging.Duration("elapsed", time.Since(start)),
			logging.Err(err),
		)
		return
	}

	c.logger.Info("Task complete",
		logging.String("task_id", task.ID.String()),
		logging.String("script_id", task.ScriptID.String()),
		logging.Duration("elapsed", time.Since(start)),
	)
}
