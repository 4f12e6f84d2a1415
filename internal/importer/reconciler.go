package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
)

// Catalog is the product store an import writes to. Each call is expected to
// commit on its own; the batch as a whole is not transactional.
type Catalog interface {
	// FindByCode reports whether a product with code exists.
	FindByCode(ctx context.Context, code string) (model.Product, bool, error)
	// Insert creates p. When allocateCode is set p.Code is ignored and a
	// fresh code is allocated.
	Insert(ctx context.Context, p model.Product, allocateCode bool) (model.Product, error)
	// Update overwrites the product identified by p.ID.
	Update(ctx context.Context, p model.Product) (model.Product, error)
	// ImportFinished is told about every import that reached a terminal state.
	ImportFinished(ctx context.Context, progress model.ImportProgress) error
}

type Reconciler struct {
	logger  *slog.Logger
	catalog Catalog
	tracker *Tracker

	wg sync.WaitGroup
}

func NewReconciler(logger *slog.Logger, catalog Catalog, tracker *Tracker) *Reconciler {
	return &Reconciler{
		logger:  logger.With(slog.String("service", "importer")),
		catalog: catalog,
		tracker: tracker,
	}
}

// Progress returns the state of the current or last import.
func (r *Reconciler) Progress() model.ImportProgress {
	return r.tracker.Snapshot()
}

// Start parses the upload and applies its rows in the background. It returns
// once the upload is parsed; parse failures are returned as UploadErr and
// leave the progress in status error.
//
// Rows are applied on a context detached from ctx so the import outlives the
// request that started it.
func (r *Reconciler) Start(ctx context.Context, mode model.ImportMode, src io.Reader, filename string) (model.ImportProgress, error) {
	rows, err := r.begin(mode, src, filename)
	if err != nil {
		return r.tracker.Snapshot(), err
	}

	snapshot := r.tracker.Snapshot()
	detached := context.WithoutCancel(ctx)
	r.wg.Go(func() {
		r.apply(detached, mode, rows)
	})

	return snapshot, nil
}

// Run is the synchronous form of Start. It returns the terminal progress.
func (r *Reconciler) Run(ctx context.Context, mode model.ImportMode, src io.Reader, filename string) (model.ImportProgress, error) {
	rows, err := r.begin(mode, src, filename)
	if err != nil {
		return r.tracker.Snapshot(), err
	}

	if err := r.apply(ctx, mode, rows); err != nil {
		return r.tracker.Snapshot(), err
	}

	return r.tracker.Snapshot(), nil
}

// Wait blocks until every import started with Start has finished.
func (r *Reconciler) Wait() {
	r.wg.Wait()
}

func (r *Reconciler) begin(mode model.ImportMode, src io.Reader, filename string) ([]Row, error) {
	if err := mode.Validate(); err != nil {
		return nil, apperr.ValidationErr.WithMsg(err.Error())
	}

	if err := r.tracker.Begin(mode); err != nil {
		return nil, err
	}

	if src == nil {
		err := apperr.UploadErr
		r.tracker.Fail(err)
		r.finished(context.Background(), mode)
		return nil, err
	}

	rows, err := ReadRows(src, filename)
	if err != nil {
		uploadErr := apperr.UploadErr.WithMsg(fmt.Sprintf("cannot read %q as a spreadsheet", filename)).WrapParent(err)
		r.tracker.Fail(uploadErr)
		r.finished(context.Background(), mode)
		return nil, uploadErr
	}

	r.tracker.SetTotal(len(rows))
	return rows, nil
}

func (r *Reconciler) apply(ctx context.Context, mode model.ImportMode, rows []Row) error {
	logger := r.logger.With(slog.String("mode", string(mode)))
	logger.InfoContext(ctx, "import started", slog.Int("rows", len(rows)))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, mode, fmt.Errorf("import interrupted at line %d: %w", row.Line, err))
		}

		outcome, err := r.applyRow(ctx, mode, row)
		if err != nil {
			if !isRowError(err) {
				return r.abort(ctx, mode, fmt.Errorf("import line %d: %w", row.Line, err))
			}

			logger.WarnContext(ctx, "import row rejected",
				slog.Int("line", row.Line),
				slog.Any("error", err),
			)
			outcome = OutcomeFailed
		}

		r.tracker.Advance(outcome)
		rowsTotal.WithLabelValues(string(mode), string(outcome)).Inc()
	}

	r.tracker.Finish()
	progress := r.finished(ctx, mode)
	logger.InfoContext(ctx, "import finished",
		slog.Int("inserted", progress.Inserted),
		slog.Int("updated", progress.Updated),
		slog.Int("skipped", progress.Skipped),
		slog.Int("failed", progress.Failed),
	)

	return nil
}

func (r *Reconciler) applyRow(ctx context.Context, mode model.ImportMode, row Row) (Outcome, error) {
	product := NewRecord(row).Product()

	if mode == model.ImportModeInsert {
		if _, err := r.catalog.Insert(ctx, product, true); err != nil {
			return "", fmt.Errorf("insert: %w", err)
		}
		return OutcomeInserted, nil
	}

	if product.Code == "" {
		return OutcomeSkipped, nil
	}

	existing, found, err := r.catalog.FindByCode(ctx, product.Code)
	if err != nil {
		return "", fmt.Errorf("find by code: %w", err)
	}

	if !found {
		if _, err := r.catalog.Insert(ctx, product, false); err != nil {
			return "", fmt.Errorf("insert: %w", err)
		}
		return OutcomeInserted, nil
	}

	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	if _, err := r.catalog.Update(ctx, product); err != nil {
		return "", fmt.Errorf("update: %w", err)
	}
	return OutcomeUpdated, nil
}

func (r *Reconciler) abort(ctx context.Context, mode model.ImportMode, err error) error {
	r.tracker.Fail(err)
	r.finished(ctx, mode)
	r.logger.ErrorContext(ctx, "import failed", slog.String("mode", string(mode)), slog.Any("error", err))
	return err
}

func (r *Reconciler) finished(ctx context.Context, mode model.ImportMode) model.ImportProgress {
	progress := r.tracker.Snapshot()
	importsTotal.WithLabelValues(string(mode), string(progress.Status)).Inc()

	if err := r.catalog.ImportFinished(context.WithoutCancel(ctx), progress); err != nil {
		r.logger.ErrorContext(ctx, "error recording finished import", slog.Any("error", err))
	}

	return progress
}

// isRowError reports whether err rejects a single row rather than the storage
// as a whole.
func isRowError(err error) bool {
	return errors.Is(err, apperr.DuplicateCodeErr) || errors.Is(err, apperr.ValueOutOfRangeErr)
}
