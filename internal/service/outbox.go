package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/pkg/outbox"
)

// publish writes ev to the outbox through repo, which callers bind to the
// transaction of the change ev describes.
func publish(ctx context.Context, repo repository.OutboxMsgRepository, topic string, partitionKey *string, ev any) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	if err := repo.CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:        topic,
		Headers:      outbox.BuildHeaders(ctx, outbox.WithHeader(outbox.ContentTypeHeader, outbox.ContentTypeJSON)),
		Payload:      payload,
		PartitionKey: partitionKey,
	}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}
