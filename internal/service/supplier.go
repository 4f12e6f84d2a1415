package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tuanvumaihuynh/stockroom/internal/model"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
)

type SupplierService interface {
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	CreateSupplier(ctx context.Context, name string) (model.Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
}

func NewSupplierService(supplierRepo repository.SupplierRepository) SupplierService {
	return &supplierService{
		supplierRepo: supplierRepo,
	}
}

func (s *supplierService) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	suppliers, err := s.supplierRepo.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("supplier repository list suppliers: %w", err)
	}

	return suppliers, nil
}

func (s *supplierService) CreateSupplier(ctx context.Context, name string) (model.Supplier, error) {
	supplier, err := s.supplierRepo.CreateSupplier(ctx, strings.TrimSpace(name))
	if err != nil {
		return model.Supplier{}, fmt.Errorf("supplier repository create supplier: %w", err)
	}

	return supplier, nil
}

// DeleteSupplier removes the supplier only. Products keep the name as text.
func (s *supplierService) DeleteSupplier(ctx context.Context, id int64) error {
	if err := s.supplierRepo.DeleteSupplier(ctx, id); err != nil {
		return fmt.Errorf("supplier repository delete supplier: %w", err)
	}

	return nil
}
