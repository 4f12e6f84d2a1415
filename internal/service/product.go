package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stockroom/internal/allocator"
	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/auth"
	"github.com/tuanvumaihuynh/stockroom/internal/event"
	"github.com/tuanvumaihuynh/stockroom/internal/importer"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/internal/undo"
	"github.com/tuanvumaihuynh/stockroom/pkg/ptr"
)

type ListProductsParams struct {
	Name string
}

type CreateProductParams struct {
	// Code is allocated when empty. Only admins may choose one.
	Code      string
	Name      string
	Supplier  string
	Sku       string
	Color     string
	Size      string
	Stock     int
	CostPrice decimal.Decimal
	SalePrice decimal.Decimal
	// Markup is derived from the prices when empty.
	Markup  string
	Barcode string
	Year    *int
}

type UpdateProductFieldParams struct {
	ID    int64
	Field string
	// Value is a decoded JSON value: string, float64, bool or nil.
	Value any
}

type DeleteAllProductsParams struct {
	Username string
	Password string
}

type ProductService interface {
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	NextCode(ctx context.Context) (string, error)
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	UpdateProductField(ctx context.Context, params UpdateProductFieldParams) (model.Product, error)
	DeleteProduct(ctx context.Context, id int64) (model.Product, error)
	UndoDelete(ctx context.Context) (model.Product, error)
	ListDeleted(ctx context.Context) []model.Product
	DeleteAllProducts(ctx context.Context, params DeleteAllProductsParams) (int64, error)
}

type productService struct {
	logger        *slog.Logger
	db            db.DB
	productRepo   repository.ProductRepository
	userRepo      repository.UserRepository
	outboxMsgRepo repository.OutboxMsgRepository
	codes         allocator.Allocator
	deleted       *undo.Buffer
	hasher        auth.PasswordHasher
}

func NewProductService(
	logger *slog.Logger,
	db db.DB,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	codes allocator.Allocator,
	deleted *undo.Buffer,
	hasher auth.PasswordHasher,
) ProductService {
	return &productService{
		logger:        logger.With(slog.String("service", "product")),
		db:            db,
		productRepo:   productRepo,
		userRepo:      userRepo,
		outboxMsgRepo: outboxMsgRepo,
		codes:         codes,
		deleted:       deleted,
		hasher:        hasher,
	}
}

func (s *productService) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	products, err := s.productRepo.ListProducts(ctx, repository.ListProductsParams{
		Name: strings.TrimSpace(params.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("product repository list products: %w", err)
	}

	return products, nil
}

func (s *productService) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	product, err := s.productRepo.GetProductByID(ctx, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("product repository get product by id: %w", err)
	}

	return product, nil
}

func (s *productService) NextCode(ctx context.Context) (string, error) {
	code, err := s.codes.Peek(ctx)
	if err != nil {
		return "", fmt.Errorf("allocator peek: %w", err)
	}

	return code, nil
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	actor := principal(ctx)
	code := strings.TrimSpace(params.Code)
	if code != "" && !actor.IsAdmin() {
		return model.Product{}, apperr.PermissionDeniedErr.WithMsg("only admins can choose a product code")
	}

	markup := strings.TrimSpace(params.Markup)
	if markup == "" {
		markup = model.ComputeMarkup(params.CostPrice, params.SalePrice)
	}

	product := model.Product{
		Code:      code,
		Name:      strings.TrimSpace(params.Name),
		Supplier:  strings.TrimSpace(params.Supplier),
		Sku:       strings.TrimSpace(params.Sku),
		Color:     strings.TrimSpace(params.Color),
		Size:      strings.TrimSpace(params.Size),
		Stock:     params.Stock,
		CostPrice: params.CostPrice,
		SalePrice: params.SalePrice,
		Markup:    markup,
		Barcode:   strings.TrimSpace(params.Barcode),
		Year:      params.Year,
	}

	created, err := insertProduct(ctx, s.db, s.productRepo, s.outboxMsgRepo, s.codes, product, code == "", event.SourceAPI)
	if err != nil {
		return model.Product{}, err
	}

	return created, nil
}

// insertProduct creates product and its outbox message in one transaction,
// allocating the code first when allocateCode is set.
func insertProduct(
	ctx context.Context,
	database db.DB,
	productRepo repository.ProductRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	codes allocator.Allocator,
	product model.Product,
	allocateCode bool,
	source event.Source,
) (model.Product, error) {
	var created model.Product
	if err := database.WithTx(ctx, func(db db.DB) error {
		if allocateCode {
			code, err := codes.WithDB(db).Allocate(ctx)
			if err != nil {
				return fmt.Errorf("allocator allocate: %w", err)
			}
			product.Code = code
		}

		var err error
		created, err = productRepo.
			WithDB(db).
			CreateProduct(ctx, product)
		if err != nil {
			return fmt.Errorf("product repository create product: %w", err)
		}

		if !allocateCode {
			if err := codes.WithDB(db).Observe(ctx, created.Code); err != nil {
				return fmt.Errorf("allocator observe: %w", err)
			}
		}

		ev := event.NewProductEvent(created, source, principal(ctx).UserID)
		if err := publish(ctx, outboxMsgRepo.WithDB(db), event.TopicProductCreated, ptr.New(ev.PartitionKey()), ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return created, nil
}

type fieldValue struct {
	column repository.ProductColumn
	value  any
}

func (s *productService) UpdateProductField(ctx context.Context, params UpdateProductFieldParams) (model.Product, error) {
	field, ok := importer.FieldForHeader(params.Field)
	if !ok {
		return model.Product{}, apperr.UnknownProductFieldErr.WithMsg(fmt.Sprintf("unknown product field %q", params.Field))
	}

	actor := principal(ctx)
	if (field == importer.FieldCode || field == importer.FieldCostPrice) && !actor.IsAdmin() {
		return model.Product{}, apperr.PermissionDeniedErr.WithMsg(fmt.Sprintf("only admins can edit %s", field))
	}

	fv, err := convertField(field, params.Value)
	if err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		values := map[repository.ProductColumn]any{fv.column: fv.value}

		// Price edits keep the derived markup in step.
		if field == importer.FieldCostPrice || field == importer.FieldSalePrice {
			current, err := s.productRepo.
				WithDB(db).
				GetProductByID(ctx, params.ID)
			if err != nil {
				return fmt.Errorf("product repository get product by id: %w", err)
			}

			cost, sale := current.CostPrice, current.SalePrice
			if field == importer.FieldCostPrice {
				cost = fv.value.(decimal.Decimal)
			} else {
				sale = fv.value.(decimal.Decimal)
			}
			values[repository.ProductColumnMarkup] = model.ComputeMarkup(cost, sale)
		}

		var err error
		updated, err = s.productRepo.
			WithDB(db).
			UpdateProductColumns(ctx, repository.UpdateProductColumnsParams{
				ID:     params.ID,
				Values: values,
			})
		if err != nil {
			return fmt.Errorf("product repository update product columns: %w", err)
		}

		if field == importer.FieldCode {
			if err := s.codes.WithDB(db).Observe(ctx, updated.Code); err != nil {
				return fmt.Errorf("allocator observe: %w", err)
			}
		}

		ev := event.NewProductEvent(updated, event.SourceAPI, actor.UserID)
		ev.Field = string(field)
		if err := publish(ctx, s.outboxMsgRepo.WithDB(db), event.TopicProductUpdated, ptr.New(ev.PartitionKey()), ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return updated, nil
}

// convertField turns a decoded JSON value into the column value for field.
// Numbers accept the same locale formats as spreadsheet imports.
func convertField(field importer.Field, value any) (fieldValue, error) {
	column := repository.ProductColumn(field)
	text := valueText(value)

	switch field {
	case importer.FieldCode, importer.FieldName:
		if text == "" {
			return fieldValue{}, apperr.ValidationErr.WithMsg(fmt.Sprintf("%s must not be empty", field))
		}
		return fieldValue{column: column, value: text}, nil

	case importer.FieldStock:
		return fieldValue{column: column, value: importer.ParseInt(text)}, nil

	case importer.FieldCostPrice, importer.FieldSalePrice:
		return fieldValue{column: column, value: importer.ParsePrice(text).Round(2)}, nil

	case importer.FieldYear:
		return fieldValue{column: column, value: importer.ParseYear(text)}, nil

	default:
		return fieldValue{column: column, value: text}, nil
	}
}

func valueText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (s *productService) DeleteProduct(ctx context.Context, id int64) (model.Product, error) {
	var product model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		var err error
		product, err = s.productRepo.
			WithDB(db).
			DeleteProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository delete product: %w", err)
		}

		ev := event.NewProductEvent(product, event.SourceAPI, principal(ctx).UserID)
		if err := publish(ctx, s.outboxMsgRepo.WithDB(db), event.TopicProductDeleted, ptr.New(ev.PartitionKey()), ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	if evicted, ok := s.deleted.Push(product); ok {
		s.logger.DebugContext(ctx, "undo buffer full, oldest deletion dropped",
			slog.Int64("product_id", evicted.ID),
			slog.String("code", evicted.Code),
		)
	}

	return product, nil
}

// UndoDelete restores the most recent deletion with its original id and code.
// The allocator is not told about the restored code.
func (s *productService) UndoDelete(ctx context.Context) (model.Product, error) {
	product, ok := s.deleted.Pop()
	if !ok {
		return model.Product{}, apperr.NothingToRestoreErr
	}

	var restored model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		var err error
		restored, err = s.productRepo.
			WithDB(db).
			RestoreProduct(ctx, product)
		if err != nil {
			return fmt.Errorf("product repository restore product: %w", err)
		}

		ev := event.NewProductEvent(restored, event.SourceUndo, principal(ctx).UserID)
		if err := publish(ctx, s.outboxMsgRepo.WithDB(db), event.TopicProductRestored, ptr.New(ev.PartitionKey()), ev); err != nil {
			return err
		}

		return nil
	}); err != nil {
		// keep the entry so the undo can be retried
		s.deleted.Push(product)
		return model.Product{}, fmt.Errorf("db with tx: %w", err)
	}

	return restored, nil
}

func (s *productService) ListDeleted(context.Context) []model.Product {
	return s.deleted.List()
}

// DeleteAllProducts wipes the catalog after re-checking the credentials in
// params, which must belong to an admin. The allocator reset is the last
// statement of the transaction; the sequence does not roll back with it, so a
// failed wipe reseeds the allocator from the surviving catalog.
func (s *productService) DeleteAllProducts(ctx context.Context, params DeleteAllProductsParams) (int64, error) {
	user, err := checkCredentials(ctx, s.userRepo, s.hasher, params.Username, params.Password)
	if err != nil {
		return 0, err
	}
	if user.Role != model.RoleAdmin {
		return 0, apperr.PermissionDeniedErr.WithMsg("only admins can delete every product")
	}

	var deleted int64
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		var err error
		deleted, err = s.productRepo.
			WithDB(db).
			DeleteAllProducts(ctx)
		if err != nil {
			return fmt.Errorf("product repository delete all products: %w", err)
		}

		ev := event.CatalogWipedEvent{
			Deleted: deleted,
			ActorID: user.ID,
			WipedAt: time.Now(),
		}
		if err := publish(ctx, s.outboxMsgRepo.WithDB(db), event.TopicCatalogWiped, nil, ev); err != nil {
			return err
		}

		if err := s.codes.WithDB(db).Reset(ctx); err != nil {
			return fmt.Errorf("allocator reset: %w", err)
		}

		return nil
	}); err != nil {
		if seedErr := s.codes.Seed(context.WithoutCancel(ctx)); seedErr != nil {
			s.logger.ErrorContext(ctx, "error reseeding allocator after failed wipe", slog.Any("error", seedErr))
		}
		return 0, fmt.Errorf("db with tx: %w", err)
	}

	s.logger.WarnContext(ctx, "catalog wiped",
		slog.Int64("deleted", deleted),
		slog.String("confirmed_by", user.Username),
	)

	return deleted, nil
}
