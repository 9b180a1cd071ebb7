// Package kafka carries reconciliation tasks between the API server and the
// worker over a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/config"
	"github.com/scenedex/scenedex/internal/infrastructure/monitoring/logging"
	"github.com/scenedex/scenedex/pkg/errors"
)

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TaskProducer publishes pipeline tasks to the task topic.  It implements
// the pipeline's Queue port.
type TaskProducer struct {
	writer WriterInterface
	topic  string
	logger logging.Logger
	closed atomic.Bool
}

var _ revision.Queue = (*TaskProducer)(nil)

// NewTaskProducer creates a Kafka-backed task queue producer.
func NewTaskProducer(cfg config.KafkaConfig, log logging.Logger) *TaskProducer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.ProducerRetries,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return &TaskProducer{
		writer: writer,
		topic:  cfg.Topic,
		logger: log.Named("task_producer"),
	}
}

// NewTaskProducerWithWriter creates a producer with an existing writer, for
// testing.
func NewTaskProducerWithWriter(w WriterInterface, topic string, log logging.Logger) *TaskProducer {
	return &TaskProducer{
		writer: w,
		topic:  topic,
		logger: log.Named("task_producer"),
	}
}

// Enqueue publishes a task keyed by its script id so tasks for the same
// script land on the same partition in order.
func (p *TaskProducer) Enqueue(ctx context.Context, task revision.Task) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeQueueError, "task producer is closed")
	}

	payload, err := json.Marshal(&task)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode task")
	}

	msg := kafka.Message{
		Key:   []byte(task.ScriptID),
		Value: payload,
		Time:  time.Now().UTC(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(task.Kind)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish task",
			logging.String("task_id", task.ID.String()),
			logging.String("topic", p.topic),
			logging.Err(err),
		)
		return errors.Wrap(err, errors.ErrCodeQueueError, "failed to publish task")
	}

	p.logger.Debug("Published task",
		logging.String("task_id", task.ID.String()),
		logging.String("script_id", task.ScriptID.String()),
	)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *TaskProducer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeQueueError, "failed to close task producer")
	}
	return nil
}
