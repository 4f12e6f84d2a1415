package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tuanvumaihuynh/stockroom/internal/allocator"
	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/event"
	"github.com/tuanvumaihuynh/stockroom/internal/importer"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/pkg/ptr"
)

type StartImportParams struct {
	// Mode falls back to the configured default when empty.
	Mode     model.ImportMode
	File     io.Reader
	Filename string
}

type ImportService interface {
	// StartImport parses the upload and applies it in the background.
	StartImport(ctx context.Context, params StartImportParams) (model.ImportProgress, error)
	// RunImport parses and applies the upload before returning.
	RunImport(ctx context.Context, params StartImportParams) (model.ImportProgress, error)
	ImportProgress(ctx context.Context) model.ImportProgress
	WriteTemplate(w io.Writer) error
	// Wait blocks until background imports have finished.
	Wait()
}

type importService struct {
	defaultMode model.ImportMode
	reconciler  *importer.Reconciler
}

func NewImportService(
	logger *slog.Logger,
	db db.DB,
	productRepo repository.ProductRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	codes allocator.Allocator,
	tracker *importer.Tracker,
	defaultMode model.ImportMode,
) ImportService {
	catalog := &importCatalog{
		db:            db,
		productRepo:   productRepo,
		outboxMsgRepo: outboxMsgRepo,
		codes:         codes,
	}

	return &importService{
		defaultMode: defaultMode,
		reconciler:  importer.NewReconciler(logger, catalog, tracker),
	}
}

func (s *importService) StartImport(ctx context.Context, params StartImportParams) (model.ImportProgress, error) {
	progress, err := s.reconciler.Start(ctx, s.mode(params.Mode), params.File, params.Filename)
	if err != nil {
		return progress, fmt.Errorf("reconciler start: %w", err)
	}

	return progress, nil
}

func (s *importService) RunImport(ctx context.Context, params StartImportParams) (model.ImportProgress, error) {
	progress, err := s.reconciler.Run(ctx, s.mode(params.Mode), params.File, params.Filename)
	if err != nil {
		return progress, fmt.Errorf("reconciler run: %w", err)
	}

	return progress, nil
}

func (s *importService) ImportProgress(context.Context) model.ImportProgress {
	return s.reconciler.Progress()
}

func (s *importService) WriteTemplate(w io.Writer) error {
	if err := importer.WriteTemplate(w); err != nil {
		return fmt.Errorf("write import template: %w", err)
	}

	return nil
}

func (s *importService) Wait() {
	s.reconciler.Wait()
}

func (s *importService) mode(mode model.ImportMode) model.ImportMode {
	if mode == "" {
		return s.defaultMode
	}
	return mode
}

var _ importer.Catalog = (*importCatalog)(nil)

// importCatalog commits every imported row in its own transaction together
// with the row's outbox message.
type importCatalog struct {
	db            db.DB
	productRepo   repository.ProductRepository
	outboxMsgRepo repository.OutboxMsgRepository
	codes         allocator.Allocator
}

func (c *importCatalog) FindByCode(ctx context.Context, code string) (model.Product, bool, error) {
	product, err := c.productRepo.GetProductByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ProductNotFoundErr) {
			return model.Product{}, false, nil
		}
		return model.Product{}, false, fmt.Errorf("product repository get product by code: %w", err)
	}

	return product, true, nil
}

func (c *importCatalog) Insert(ctx context.Context, product model.Product, allocateCode bool) (model.Product, error) {
	return insertProduct(ctx, c.db, c.productRepo, c.outboxMsgRepo, c.codes, product, allocateCode, event.SourceImport)
}

func (c *importCatalog) Update(ctx context.Context, product model.Product) (model.Product, error) {
	var updated model.Product
	if err := c.db.WithTx(ctx, func(db db.DB) error {
		var err error
		updated, err = c.productRepo.
			WithDB(db).
			UpdateProduct(ctx, product)
		if err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		ev := event.NewProductEvent(updated, event.SourceImport, principal(ctx).UserID)
		if err := publish(ctx, c.outboxMsgRepo.WithDB(db), event.TopicProductUpdated, ptr.New(ev.PartitionKey()), ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return updated, nil
}

func (c *importCatalog) ImportFinished(ctx context.Context, progress model.ImportProgress) error {
	return publish(ctx, c.outboxMsgRepo, event.TopicImportFinished, nil, event.NewImportFinishedEvent(progress))
}
