package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/pkg/outbox"
)

type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

type CleanupFunc func()

type Consumer interface {
	RegisterHandler(topic string, handler HandlerFunc) error
	Run(ctx context.Context) (CleanupFunc, error)
}

var _ Consumer = (*KafkaConsumer)(nil)

// KafkaConsumer dispatches records of a consumer group to per-topic handlers.
// Offsets are committed after each polled batch has been handled, so a crash
// replays at most one batch.
type KafkaConsumer struct {
	cl       *kgo.Client
	handlers map[string]HandlerFunc
	log      *slog.Logger
}

func NewKafkaConsumer(ctx context.Context, cfg config.Kafka, logger *slog.Logger) (*KafkaConsumer, error) {
	cl, err := newClient(ctx, cfg, cfg.Group,
		kgo.ConsumerGroup(cfg.Group),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, err
	}

	return newKafkaConsumer(cl, logger), nil
}

func newKafkaConsumer(cl *kgo.Client, logger *slog.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		cl:       cl,
		handlers: make(map[string]HandlerFunc),
		log:      logger.With(slog.String("component", "kafka_consumer")),
	}
}

// RegisterHandler must be called before Run.
func (c *KafkaConsumer) RegisterHandler(topic string, handler HandlerFunc) error {
	if _, exists := c.handlers[topic]; exists {
		return fmt.Errorf("handler for topic %s already registered", topic)
	}

	c.handlers[topic] = handler
	if c.cl != nil {
		c.cl.AddConsumeTopics(topic)
	}
	return nil
}

func (c *KafkaConsumer) Run(ctx context.Context) (CleanupFunc, error) {
	ctx, cancel := context.WithCancel(ctx)
	doneChan := make(chan struct{})

	go func() {
		defer close(doneChan)
		for ctx.Err() == nil {
			fetches := c.cl.PollFetches(ctx)
			if fetches.IsClientClosed() {
				return
			}

			fetches.EachError(func(topic string, partition int32, err error) {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.log.ErrorContext(ctx, "error fetching messages",
					slog.String("topic", topic),
					slog.Int("partition", int(partition)),
					slog.Any("error", err),
				)
			})

			fetches.EachRecord(func(rec *kgo.Record) {
				c.handleRecord(ctx, rec)
			})

			if err := c.cl.CommitUncommittedOffsets(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.log.ErrorContext(ctx, "error committing offsets", slog.Any("error", err))
			}
		}
	}()

	cleanup := func() {
		cancel()
		<-doneChan
		c.cl.Close()
	}

	return cleanup, nil
}

// handleRecord runs the topic handler. Handler errors and panics are logged
// and the record is considered consumed.
func (c *KafkaConsumer) handleRecord(ctx context.Context, rec *kgo.Record) {
	recCtx := ctx
	if rec.Context != nil {
		recCtx = rec.Context
	}
	recCtx = outbox.ExtractContextFromHeaders(recCtx, outbox.HeadersFromRecord(rec))

	defer func() {
		if rvr := recover(); rvr != nil {
			span := trace.SpanFromContext(recCtx)
			span.RecordError(fmt.Errorf("panic: %v", rvr))
			span.SetStatus(codes.Error, "panic in handler")

			c.log.ErrorContext(recCtx, "panic in message handler",
				slog.String("topic", rec.Topic),
				slog.Any("recover", rvr),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	fn, exists := c.handlers[rec.Topic]
	if !exists {
		c.log.WarnContext(recCtx, "no handler registered for topic", slog.String("topic", rec.Topic))
		return
	}

	if err := fn(recCtx, rec.Topic, rec.Value); err != nil {
		c.log.ErrorContext(recCtx, "error handling message",
			slog.String("topic", rec.Topic),
			slog.String("key", string(rec.Key)),
			slog.Int64("offset", rec.Offset),
			slog.Any("error", err),
		)
	}
}

func (c *KafkaConsumer) Close() {
	c.cl.Close()
}
