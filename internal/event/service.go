package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tuanvumaihuynh/stockroom/internal/storage/mq"
)

// Service consumes the catalog change feed.
type Service struct {
	logger      *slog.Logger
	mqConsumer  mq.Consumer
	topicPrefix string
}

// New creates a new event service. topicPrefix must match the prefix the
// relay publishes with.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
	topicPrefix string,
) *Service {
	return &Service{
		logger:      logger.With(slog.String("service", "event")),
		mqConsumer:  mqConsumer,
		topicPrefix: topicPrefix,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	for _, topic := range Topics {
		if err := s.mqConsumer.RegisterHandler(s.topicPrefix+topic, s.handler(topic)); err != nil {
			return nil, fmt.Errorf("register %s event handler: %w", topic, err)
		}
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
	}

	return cleanup, nil
}

// Handle dispatches one payload published on topic (without prefix).
func (s *Service) Handle(ctx context.Context, topic string, payload []byte) error {
	return s.handler(topic)(ctx, topic, payload)
}

func (s *Service) handler(topic string) mq.HandlerFunc {
	return func(ctx context.Context, _ string, payload []byte) error {
		switch topic {
		case TopicProductCreated, TopicProductUpdated, TopicProductDeleted, TopicProductRestored:
			var ev ProductEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return fmt.Errorf("unmarshal product event: %w", err)
			}
			if err := s.handleProductEvent(ctx, topic, ev); err != nil {
				return fmt.Errorf("handle product event: %w", err)
			}

		case TopicCatalogWiped:
			var ev CatalogWipedEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return fmt.Errorf("unmarshal catalog wiped event: %w", err)
			}
			if err := s.handleCatalogWipedEvent(ctx, ev); err != nil {
				return fmt.Errorf("handle catalog wiped event: %w", err)
			}

		case TopicImportFinished:
			var ev ImportFinishedEvent
			if err := json.Unmarshal(payload, &ev); err != nil {
				return fmt.Errorf("unmarshal import finished event: %w", err)
			}
			if err := s.handleImportFinishedEvent(ctx, ev); err != nil {
				return fmt.Errorf("handle import finished event: %w", err)
			}

		default:
			return fmt.Errorf("unknown topic %q", topic)
		}

		return nil
	}
}
