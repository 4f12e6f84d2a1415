package allocator

import (
	"context"
	"fmt"

	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

var _ Allocator = (*Scan)(nil)

// Scan computes MAX(numeric code)+1 on every call. It keeps no state, so Peek
// followed by Allocate from a single caller yields the same code. Concurrent
// callers can receive the same code; the losing insert then fails on the
// unique constraint and is reported to its caller, never retried here.
type Scan struct {
	products repository.ProductRepository
}

func NewScan(products repository.ProductRepository) *Scan {
	return &Scan{products: products}
}

func (s *Scan) WithDB(db db.DB) Allocator {
	return &Scan{products: s.products.WithDB(db)}
}

func (s *Scan) Peek(ctx context.Context) (string, error) {
	return s.next(ctx)
}

func (s *Scan) Allocate(ctx context.Context) (string, error) {
	return s.next(ctx)
}

// Observe, Reset and Seed are no-ops: every call scans storage afresh.
func (s *Scan) Observe(context.Context, string) error {
	return nil
}

func (s *Scan) Reset(context.Context) error {
	return nil
}

func (s *Scan) Seed(context.Context) error {
	return nil
}

func (s *Scan) next(ctx context.Context) (string, error) {
	maxCode, err := s.products.MaxNumericCode(ctx)
	if err != nil {
		return "", fmt.Errorf("find max code: %w", err)
	}
	return Format(maxCode + 1), nil
}
