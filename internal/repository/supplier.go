package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/pkg/zerror"
)

type SupplierRepository interface {
	WithDB(db db.DB) SupplierRepository
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateSupplier(ctx context.Context, name string) (model.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

type supplierRepository struct {
	db db.DB
}

func NewSupplierRepository(db db.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

func (r supplierRepository) WithDB(db db.DB) SupplierRepository {
	return &supplierRepository{db: db}
}

var supplierUniques = map[string]zerror.ZError{
	"suppliers_name_key": apperr.DuplicateSupplierErr,
}

func (r supplierRepository) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", classify(err, nil, nil))
	}

	suppliers, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.Supplier])
	if err != nil {
		return nil, fmt.Errorf("collect suppliers: %w", classify(err, nil, nil))
	}

	return suppliers, nil
}

func (r supplierRepository) CreateSupplier(ctx context.Context, name string) (model.Supplier, error) {
	var supplier model.Supplier
	err := r.db.QueryRow(ctx, `
		INSERT INTO suppliers (name) VALUES (@name)
		RETURNING id, name, created_at
	`, pgx.NamedArgs{"name": name}).Scan(&supplier.ID, &supplier.Name, &supplier.CreatedAt)
	if err != nil {
		return model.Supplier{}, fmt.Errorf("create supplier: %w", classify(err, nil, supplierUniques))
	}

	return supplier, nil
}

// DeleteSupplier removes the supplier row only; products keep the name they carry.
func (r supplierRepository) DeleteSupplier(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("delete supplier: %w", classify(err, nil, nil))
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete supplier: %w", apperr.SupplierNotFoundErr)
	}

	return nil
}
