package event

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

const (
	TopicProductCreated  = "product.created"
	TopicProductUpdated  = "product.updated"
	TopicProductDeleted  = "product.deleted"
	TopicProductRestored = "product.restored"
	TopicCatalogWiped    = "catalog.wiped"
	TopicImportFinished  = "import.finished"
)

// Topics lists every catalog topic, in the order handlers are registered.
var Topics = []string{
	TopicProductCreated,
	TopicProductUpdated,
	TopicProductDeleted,
	TopicProductRestored,
	TopicCatalogWiped,
	TopicImportFinished,
}

// Source tells which operation produced a product event.
type Source string

const (
	SourceAPI    Source = "api"
	SourceImport Source = "import"
	SourceUndo   Source = "undo"
)

type ProductEvent struct {
	ProductID int64           `json:"product_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Supplier  string          `json:"supplier,omitempty"`
	Stock     int             `json:"stock"`
	CostPrice decimal.Decimal `json:"cost_price"`
	SalePrice decimal.Decimal `json:"sale_price"`
	Source    Source          `json:"source"`
	// Field is set on updates that touched a single column.
	Field   string `json:"field,omitempty"`
	ActorID int64  `json:"actor_id,omitempty"`
}

func NewProductEvent(p model.Product, source Source, actorID int64) ProductEvent {
	return ProductEvent{
		ProductID: p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Supplier:  p.Supplier,
		Stock:     p.Stock,
		CostPrice: p.CostPrice,
		SalePrice: p.SalePrice,
		Source:    source,
		ActorID:   actorID,
	}
}

// PartitionKey keeps every event of one product on the same partition.
func (e ProductEvent) PartitionKey() string {
	return strconv.FormatInt(e.ProductID, 10)
}

type CatalogWipedEvent struct {
	Deleted int64     `json:"deleted"`
	ActorID int64     `json:"actor_id"`
	WipedAt time.Time `json:"wiped_at"`
}

type ImportFinishedEvent struct {
	Mode     model.ImportMode   `json:"mode"`
	Status   model.ImportStatus `json:"status"`
	Total    int                `json:"total"`
	Inserted int                `json:"inserted"`
	Updated  int                `json:"updated"`
	Skipped  int                `json:"skipped"`
	Failed   int                `json:"failed"`
	Error    string             `json:"error,omitempty"`
}

func NewImportFinishedEvent(p model.ImportProgress) ImportFinishedEvent {
	return ImportFinishedEvent{
		Mode:     p.Mode,
		Status:   p.Status,
		Total:    p.Total,
		Inserted: p.Inserted,
		Updated:  p.Updated,
		Skipped:  p.Skipped,
		Failed:   p.Failed,
		Error:    p.Error,
	}
}

func (s *Service) handleProductEvent(ctx context.Context, topic string, ev ProductEvent) error {
	s.logger.InfoContext(ctx, "handling product event",
		slog.String("topic", topic),
		slog.Int64("product_id", ev.ProductID),
		slog.String("code", ev.Code),
		slog.String("source", string(ev.Source)),
	)
	return nil
}

func (s *Service) handleCatalogWipedEvent(ctx context.Context, ev CatalogWipedEvent) error {
	s.logger.WarnContext(ctx, "handling catalog wiped event",
		slog.Int64("deleted", ev.Deleted),
		slog.Int64("actor_id", ev.ActorID),
	)
	return nil
}

func (s *Service) handleImportFinishedEvent(ctx context.Context, ev ImportFinishedEvent) error {
	s.logger.InfoContext(ctx, "handling import finished event", slog.Any("event", ev))
	return nil
}
