package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/mq"
	"github.com/tuanvumaihuynh/stockroom/pkg/ptr"
)

var relayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stockroom",
	Subsystem: "relay",
	Name:      "messages_total",
	Help:      "Outbox messages handed to the broker by result.",
}, []string{"result"})

// Service moves catalog events from the outbox table to the broker.
type Service struct {
	cfg           config.Relay
	logger        *slog.Logger
	db            db.DB
	outboxMsgRepo repository.OutboxMsgRepository
	mqProducer    mq.Producer

	stopChan chan struct{}
}

func NewService(
	cfg config.Relay,
	logger *slog.Logger,
	db db.DB,
	outboxMsgRepo repository.OutboxMsgRepository,
	mqProducer mq.Producer,
) *Service {
	return &Service{
		cfg:           cfg,
		logger:        logger.With(slog.String("service", "relay")),
		db:            db,
		outboxMsgRepo: outboxMsgRepo,
		mqProducer:    mqProducer,
		stopChan:      make(chan struct{}),
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	stoppedChan := make(chan struct{})
	go func() {
		defer close(stoppedChan)
		s.run(ctx)
	}()

	return func() {
		close(s.stopChan)
		select {
		case <-stoppedChan:
		case <-time.After(5 * time.Second):
			cancel()
		}
	}
}

func (s *Service) run(ctx context.Context) {
	purgeTicker := time.NewTicker(s.cfg.PurgeInterval)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-purgeTicker.C:
			if s.cfg.Retention == 0 {
				continue
			}
			if _, err := s.PurgeProcessed(ctx, time.Now().Add(-s.cfg.Retention)); err != nil {
				s.logger.ErrorContext(ctx, "error purging outbox msgs", slog.Any("error", err))
			}
		case <-time.After(s.cfg.Interval):
			if _, err := s.RelayBatch(ctx); err != nil {
				s.logger.ErrorContext(ctx, "error relaying outbox msgs", slog.Any("error", err))
				continue
			}
		}
	}
}

// PurgeProcessed deletes messages processed before the given time.
func (s *Service) PurgeProcessed(ctx context.Context, before time.Time) (int64, error) {
	deleted, err := s.outboxMsgRepo.DeleteProcessedOutboxMsgs(ctx, repository.DeleteProcessedOutboxMsgsParams{
		ProcessedBefore: before,
	})
	if err != nil {
		return 0, fmt.Errorf("outbox msg repository delete processed outbox msgs: %w", err)
	}

	if deleted > 0 {
		s.logger.InfoContext(ctx, "purged outbox msgs", slog.Int64("count", deleted))
	}
	return deleted, nil
}

// RelayBatch publishes one batch of pending messages and marks them
// processed, recording the produce error of those that failed. It returns
// the number of messages handled.
func (s *Service) RelayBatch(ctx context.Context) (int, error) {
	var handled int
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		outboxMsgs, err := s.outboxMsgRepo.
			WithDB(db).
			ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{
				//nolint:gosec
				BatchSize: int32(s.cfg.BatchSize),
			})
		if err != nil {
			return fmt.Errorf("list unprocessed outbox msgs: %w", err)
		}

		if len(outboxMsgs) == 0 {
			return nil
		}

		s.logger.InfoContext(ctx, "relaying outbox msgs", slog.Int("count", len(outboxMsgs)))

		items := make([]repository.BulkUpdateOutboxMsgsItem, 0, len(outboxMsgs))
		var (
			mu sync.Mutex
			wg sync.WaitGroup
		)

		// Messages sharing a partition key are produced in outbox order; groups
		// run concurrently.
		for _, group := range groupByPartitionKey(outboxMsgs) {
			wg.Go(func() {
				for _, msg := range group {
					item := s.relayOne(ctx, msg)

					mu.Lock()
					items = append(items, item)
					mu.Unlock()
				}
			})
		}

		wg.Wait()

		if err := s.outboxMsgRepo.
			WithDB(db).
			BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{
				Items: items,
			}); err != nil {
			return fmt.Errorf("bulk update outbox msgs: %w", err)
		}

		handled = len(items)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("db with tx: %w", err)
	}

	return handled, nil
}

func (s *Service) relayOne(ctx context.Context, msg repository.ListUnprocessedOutboxMsgsResult) repository.BulkUpdateOutboxMsgsItem {
	item := repository.BulkUpdateOutboxMsgsItem{ID: msg.ID}

	if err := s.mqProducer.Produce(ctx, mq.ProduceMsg{
		Topic:        s.cfg.TopicPrefix + msg.Topic,
		Headers:      msg.Headers,
		Payload:      msg.Payload,
		PartitionKey: msg.PartitionKey,
	}); err != nil {
		s.logger.ErrorContext(ctx, "error producing message",
			slog.String("outbox_msg_id", msg.ID.String()),
			slog.String("topic", msg.Topic),
			slog.String("partition_key", ptr.Deref(msg.PartitionKey)),
			slog.Any("error", err),
		)
		item.Error = ptr.New(fmt.Sprintf("produce message: %v", err))
		relayedTotal.WithLabelValues("error").Inc()
		return item
	}

	relayedTotal.WithLabelValues("ok").Inc()
	return item
}

// groupByPartitionKey keeps the input order inside each group. Messages
// without a key each form their own group.
func groupByPartitionKey(msgs []repository.ListUnprocessedOutboxMsgsResult) [][]repository.ListUnprocessedOutboxMsgsResult {
	var groups [][]repository.ListUnprocessedOutboxMsgsResult
	index := make(map[string]int)

	for _, msg := range msgs {
		if msg.PartitionKey == nil {
			groups = append(groups, []repository.ListUnprocessedOutboxMsgsResult{msg})
			continue
		}

		i, ok := index[*msg.PartitionKey]
		if !ok {
			i = len(groups)
			index[*msg.PartitionKey] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], msg)
	}

	return groups
}
