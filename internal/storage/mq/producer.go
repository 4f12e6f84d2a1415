package mq

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/pkg/outbox"
)

type ProduceMsg struct {
	Topic   string
	Headers map[string]string
	Payload []byte
	// PartitionKey keeps messages with the same key ordered on one partition.
	PartitionKey *string
}

type Producer interface {
	Produce(ctx context.Context, msg ProduceMsg) error
}

var _ Producer = (*KafkaProducer)(nil)

type KafkaProducer struct {
	cl *kgo.Client
}

func NewKafkaProducer(ctx context.Context, cfg config.Kafka) (*KafkaProducer, error) {
	cl, err := newClient(ctx, cfg, "",
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordPartitioner(kgo.StickyKeyPartitioner(nil)),
	)
	if err != nil {
		return nil, err
	}

	return &KafkaProducer{cl: cl}, nil
}

// Produce blocks until the broker acknowledges the record or ctx is done.
func (p *KafkaProducer) Produce(ctx context.Context, msg ProduceMsg) error {
	ctx, span := tracer.Start(ctx, "KafkaProducer.Produce",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(attribute.String("messaging.destination.name", msg.Topic)),
	)
	defer span.End()

	if err := p.cl.ProduceSync(ctx, newRecord(msg)).FirstErr(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "produce failed")
		return fmt.Errorf("produce to %s: %w", msg.Topic, err)
	}

	return nil
}

func (p *KafkaProducer) Close() {
	p.cl.Close()
}

func newRecord(msg ProduceMsg) *kgo.Record {
	r := &kgo.Record{
		Topic:   msg.Topic,
		Value:   msg.Payload,
		Headers: outbox.RecordHeaders(msg.Headers),
	}

	if msg.PartitionKey != nil {
		r.Key = []byte(*msg.PartitionKey)
	}

	return r
}
