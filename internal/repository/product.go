package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/pkg/zerror"
)

const productCodeConstraint = "products_code_key"

const productColumns = `
	id, code, name, supplier, sku, color, size, stock,
	cost_price::text AS cost_price, sale_price::text AS sale_price,
	markup, barcode, year, created_at, updated_at`

// ProductColumn is a products column that can be written on its own.
type ProductColumn string

const (
	ProductColumnCode      ProductColumn = "code"
	ProductColumnName      ProductColumn = "name"
	ProductColumnSupplier  ProductColumn = "supplier"
	ProductColumnSku       ProductColumn = "sku"
	ProductColumnColor     ProductColumn = "color"
	ProductColumnSize      ProductColumn = "size"
	ProductColumnStock     ProductColumn = "stock"
	ProductColumnCostPrice ProductColumn = "cost_price"
	ProductColumnSalePrice ProductColumn = "sale_price"
	ProductColumnMarkup    ProductColumn = "markup"
	ProductColumnBarcode   ProductColumn = "barcode"
	ProductColumnYear      ProductColumn = "year"
)

type ListProductsParams struct {
	// Name filters by case-insensitive substring when non-empty.
	Name string
}

type UpdateProductColumnsParams struct {
	ID     int64
	Values map[ProductColumn]any
}

type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	GetProductByID(ctx context.Context, id int64) (model.Product, error)
	GetProductByCode(ctx context.Context, code string) (model.Product, error)
	CreateProduct(ctx context.Context, product model.Product) (model.Product, error)
	RestoreProduct(ctx context.Context, product model.Product) (model.Product, error)
	UpdateProduct(ctx context.Context, product model.Product) (model.Product, error)
	UpdateProductColumns(ctx context.Context, params UpdateProductColumnsParams) (model.Product, error)
	// DeleteProduct returns the row as it was when deleted.
	DeleteProduct(ctx context.Context, id int64) (model.Product, error)
	DeleteAllProducts(ctx context.Context) (int64, error)
	MaxNumericCode(ctx context.Context) (int64, error)
}

type productRepository struct {
	db db.DB
}

func NewProductRepository(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{
		db: db,
	}
}

var productUniques = map[string]zerror.ZError{
	productCodeConstraint: apperr.DuplicateCodeErr,
}

func (r productRepository) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE @name::text = '' OR name ILIKE '%' || @name::text || '%'
		ORDER BY id
	`, pgx.NamedArgs{"name": params.Name})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", classify(err, nil, nil))
	}

	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return nil, fmt.Errorf("collect products: %w", classify(err, nil, nil))
	}

	return productRowsToModels(products)
}

func (r productRepository) GetProductByID(ctx context.Context, id int64) (model.Product, error) {
	return r.getProduct(ctx, "id = @id", pgx.NamedArgs{"id": id})
}

func (r productRepository) GetProductByCode(ctx context.Context, code string) (model.Product, error) {
	return r.getProduct(ctx, "code = @code", pgx.NamedArgs{"code": code})
}

func (r productRepository) getProduct(ctx context.Context, where string, args pgx.NamedArgs) (model.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE `+where, args)
	if err != nil {
		return model.Product{}, fmt.Errorf("get product: %w", classify(err, nil, nil))
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return model.Product{}, fmt.Errorf("get product: %w", classify(err, &apperr.ProductNotFoundErr, nil))
	}

	return row.toModel()
}

func (r productRepository) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	rows, err := r.db.Query(ctx, `
		INSERT INTO products (
			code, name, supplier, sku, color, size, stock,
			cost_price, sale_price, markup, barcode, year, created_at, updated_at
		) VALUES (
			@code, @name, @supplier, @sku, @color, @size, @stock,
			@cost_price::numeric, @sale_price::numeric, @markup, @barcode, @year, @now, @now
		)
		RETURNING `+productColumns, productArgs(product, time.Now()))
	if err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", classify(err, nil, productUniques))
	}

	return collectOneProduct(rows, "create product")
}

// RestoreProduct inserts product keeping its original id, code and timestamps.
func (r productRepository) RestoreProduct(ctx context.Context, product model.Product) (model.Product, error) {
	args := productArgs(product, time.Now())
	args["id"] = product.ID
	args["created_at"] = product.CreatedAt

	rows, err := r.db.Query(ctx, `
		INSERT INTO products (
			id, code, name, supplier, sku, color, size, stock,
			cost_price, sale_price, markup, barcode, year, created_at, updated_at
		) VALUES (
			@id, @code, @name, @supplier, @sku, @color, @size, @stock,
			@cost_price::numeric, @sale_price::numeric, @markup, @barcode, @year, @created_at, @now
		)
		RETURNING `+productColumns, args)
	if err != nil {
		return model.Product{}, fmt.Errorf("restore product: %w", classify(err, nil, productUniques))
	}

	return collectOneProduct(rows, "restore product")
}

func (r productRepository) UpdateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	args := productArgs(product, time.Now())
	args["id"] = product.ID

	rows, err := r.db.Query(ctx, `
		UPDATE products SET
			code       = @code,
			name       = @name,
			supplier   = @supplier,
			sku        = @sku,
			color      = @color,
			size       = @size,
			stock      = @stock,
			cost_price = @cost_price::numeric,
			sale_price = @sale_price::numeric,
			markup     = @markup,
			barcode    = @barcode,
			year       = @year,
			updated_at = @now
		WHERE id = @id
		RETURNING `+productColumns, args)
	if err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", classify(err, nil, productUniques))
	}

	return collectOneProduct(rows, "update product")
}

func (r productRepository) UpdateProductColumns(ctx context.Context, params UpdateProductColumnsParams) (model.Product, error) {
	if len(params.Values) == 0 {
		return r.GetProductByID(ctx, params.ID)
	}

	args := pgx.NamedArgs{"id": params.ID, "now": time.Now()}
	set := ""
	for column, value := range params.Values {
		placeholder := "@" + string(column)
		switch column {
		case ProductColumnCostPrice, ProductColumnSalePrice:
			if d, ok := value.(decimal.Decimal); ok {
				value = d.String()
			}
			placeholder += "::numeric"
		}
		set += pgx.Identifier{string(column)}.Sanitize() + " = " + placeholder + ", "
		args[string(column)] = value
	}

	rows, err := r.db.Query(ctx, `
		UPDATE products SET `+set+`updated_at = @now
		WHERE id = @id
		RETURNING `+productColumns, args)
	if err != nil {
		return model.Product{}, fmt.Errorf("update product columns: %w", classify(err, nil, productUniques))
	}

	return collectOneProduct(rows, "update product columns")
}

func (r productRepository) DeleteProduct(ctx context.Context, id int64) (model.Product, error) {
	rows, err := r.db.Query(ctx, `DELETE FROM products WHERE id = @id RETURNING `+productColumns, pgx.NamedArgs{"id": id})
	if err != nil {
		return model.Product{}, fmt.Errorf("delete product: %w", classify(err, nil, nil))
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return model.Product{}, fmt.Errorf("delete product: %w", classify(err, &apperr.ProductNotFoundErr, nil))
	}

	return row.toModel()
}

func (r productRepository) DeleteAllProducts(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM products`)
	if err != nil {
		return 0, fmt.Errorf("delete all products: %w", classify(err, nil, nil))
	}

	return tag.RowsAffected(), nil
}

// MaxNumericCode returns the largest purely numeric code, or 0 when none exists.
// Non-numeric legacy codes are ignored.
func (r productRepository) MaxNumericCode(ctx context.Context) (int64, error) {
	var maxCode int64
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(MAX(code::bigint), 0)
		FROM products
		WHERE code ~ '^[0-9]{1,18}$'
	`).Scan(&maxCode)
	if err != nil {
		return 0, fmt.Errorf("max numeric code: %w", classify(err, nil, nil))
	}

	return maxCode, nil
}

type productRow struct {
	ID        int64     `db:"id"`
	Code      string    `db:"code"`
	Name      string    `db:"name"`
	Supplier  string    `db:"supplier"`
	Sku       string    `db:"sku"`
	Color     string    `db:"color"`
	Size      string    `db:"size"`
	Stock     int32     `db:"stock"`
	CostPrice string    `db:"cost_price"`
	SalePrice string    `db:"sale_price"`
	Markup    string    `db:"markup"`
	Barcode   string    `db:"barcode"`
	Year      *int32    `db:"year"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row productRow) toModel() (model.Product, error) {
	cost, err := decimal.NewFromString(row.CostPrice)
	if err != nil {
		return model.Product{}, fmt.Errorf("parse cost price: %w", err)
	}

	sale, err := decimal.NewFromString(row.SalePrice)
	if err != nil {
		return model.Product{}, fmt.Errorf("parse sale price: %w", err)
	}

	var year *int
	if row.Year != nil {
		y := int(*row.Year)
		year = &y
	}

	return model.Product{
		ID:        row.ID,
		Code:      row.Code,
		Name:      row.Name,
		Supplier:  row.Supplier,
		Sku:       row.Sku,
		Color:     row.Color,
		Size:      row.Size,
		Stock:     int(row.Stock),
		CostPrice: cost,
		SalePrice: sale,
		Markup:    row.Markup,
		Barcode:   row.Barcode,
		Year:      year,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func productRowsToModels(rows []productRow) ([]model.Product, error) {
	products := make([]model.Product, 0, len(rows))
	for _, row := range rows {
		product, err := row.toModel()
		if err != nil {
			return nil, fmt.Errorf("convert product row %d: %w", row.ID, err)
		}
		products = append(products, product)
	}

	return products, nil
}

func collectOneProduct(rows pgx.Rows, op string) (model.Product, error) {
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[productRow])
	if err != nil {
		return model.Product{}, fmt.Errorf("%s: %w", op, classify(err, &apperr.ProductNotFoundErr, productUniques))
	}

	return row.toModel()
}

func productArgs(product model.Product, now time.Time) pgx.NamedArgs {
	return pgx.NamedArgs{
		"code":       product.Code,
		"name":       product.Name,
		"supplier":   product.Supplier,
		"sku":        product.Sku,
		"color":      product.Color,
		"size":       product.Size,
		"stock":      product.Stock,
		"cost_price": product.CostPrice.String(),
		"sale_price": product.SalePrice.String(),
		"markup":     product.Markup,
		"barcode":    product.Barcode,
		"year":       product.Year,
		"now":        now,
	}
}
