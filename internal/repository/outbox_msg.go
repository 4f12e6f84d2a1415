package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

type CreateOutboxMsgParams struct {
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type ListUnprocessedOutboxMsgsParams struct {
	BatchSize int32
}

type ListUnprocessedOutboxMsgsResult struct {
	ID           uuid.UUID
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type BulkUpdateOutboxMsgsItem struct {
	ID    uuid.UUID
	Error *string
}

type BulkUpdateOutboxMsgsParams struct {
	Items []BulkUpdateOutboxMsgsItem
}

type DeleteProcessedOutboxMsgsParams struct {
	ProcessedBefore time.Time
}

type OutboxMsgRepository interface {
	WithDB(db db.DB) OutboxMsgRepository
	CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error
	ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error)
	BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error
	// DeleteProcessedOutboxMsgs returns the number of rows removed.
	DeleteProcessedOutboxMsgs(ctx context.Context, params DeleteProcessedOutboxMsgsParams) (int64, error)
}

type outboxMsgRepository struct {
	db db.DB
}

func NewOutboxMsgRepository(db db.DB) OutboxMsgRepository {
	return &outboxMsgRepository{
		db: db,
	}
}

func (r outboxMsgRepository) WithDB(db db.DB) OutboxMsgRepository {
	return &outboxMsgRepository{
		db: db,
	}
}

func (r outboxMsgRepository) CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	headersBytes, err := json.Marshal(params.Headers)
	if err != nil {
		return fmt.Errorf("marshal headers: %w", err)
	}

	if _, err := r.db.Exec(ctx, `
		INSERT INTO outbox_messages (id, topic, headers, payload, partition_key, created_at)
		VALUES (@id, @topic, @headers, @payload, @partition_key, @created_at)
	`, pgx.NamedArgs{
		"id":            id,
		"topic":         params.Topic,
		"headers":       headersBytes,
		"payload":       []byte(params.Payload),
		"partition_key": params.PartitionKey,
		"created_at":    time.Now(),
	}); err != nil {
		return fmt.Errorf("outbox msg create: %w", classify(err, nil, nil))
	}

	return nil
}

// ListUnprocessedOutboxMsgs locks up to BatchSize pending messages, oldest first.
// It must run inside a transaction for the lock to be useful.
func (r outboxMsgRepository) ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, topic, headers, payload, partition_key
		FROM outbox_messages
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT @batch_size
		FOR UPDATE SKIP LOCKED
	`, pgx.NamedArgs{"batch_size": params.BatchSize})
	if err != nil {
		return nil, fmt.Errorf("outbox msg list unprocessed: %w", classify(err, nil, nil))
	}

	type outboxRow struct {
		ID           uuid.UUID
		Topic        string
		Headers      []byte
		Payload      []byte
		PartitionKey *string
	}

	msgs, err := pgx.CollectRows(rows, pgx.RowToStructByPos[outboxRow])
	if err != nil {
		return nil, fmt.Errorf("collect outbox msgs: %w", classify(err, nil, nil))
	}

	results := make([]ListUnprocessedOutboxMsgsResult, 0, len(msgs))
	for _, msg := range msgs {
		headers := map[string]string{}
		if len(msg.Headers) > 0 {
			if err := json.Unmarshal(msg.Headers, &headers); err != nil {
				return nil, fmt.Errorf("unmarshal headers: %w", err)
			}
		}

		results = append(results, ListUnprocessedOutboxMsgsResult{
			ID:           msg.ID,
			Topic:        msg.Topic,
			Headers:      headers,
			Payload:      msg.Payload,
			PartitionKey: msg.PartitionKey,
		})
	}

	return results, nil
}

func (r outboxMsgRepository) BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error {
	ids := make([]uuid.UUID, 0, len(params.Items))
	errs := make([]*string, 0, len(params.Items))
	for _, item := range params.Items {
		ids = append(ids, item.ID)
		errs = append(errs, item.Error)
	}

	_, err := r.db.Exec(ctx, `
		UPDATE outbox_messages AS o
		SET
			processed_at = NOW(),
			error        = e.error
		FROM (
			SELECT UNNEST(@ids::uuid[])  AS id,
			       UNNEST(@errors::text[]) AS error
		) AS e
		WHERE o.id = e.id;
	`, pgx.NamedArgs{
		"ids":    ids,
		"errors": errs,
	})
	if err != nil {
		return fmt.Errorf("outbox msg bulk update: %w", classify(err, nil, nil))
	}

	return nil
}

func (r outboxMsgRepository) DeleteProcessedOutboxMsgs(ctx context.Context, params DeleteProcessedOutboxMsgsParams) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM outbox_messages
		WHERE processed_at IS NOT NULL AND processed_at < @processed_before
	`, pgx.NamedArgs{"processed_before": params.ProcessedBefore})
	if err != nil {
		return 0, fmt.Errorf("outbox msg delete processed: %w", classify(err, nil, nil))
	}

	return tag.RowsAffected(), nil
}
