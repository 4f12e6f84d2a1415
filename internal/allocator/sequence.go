package allocator

import (
	"context"
	"fmt"

	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

var _ Allocator = (*Sequence)(nil)

// Sequence allocates from a persistent database sequence, so concurrent
// Allocate calls never return the same code.
//
// Peek is an approximation: it reads the sequence without consuming it and
// another caller may take that value before the peeking caller allocates.
// Codes chosen by an admin, imported or edited go through Observe so the
// sequence stays past them. Restored products keep their original code without
// Observe, so after an undo the sequence may trail the highest code.
//
// setval is not transactional in Postgres: Observe and Reset take effect even
// when the surrounding transaction rolls back.
type Sequence struct {
	seq      repository.CodeSequenceRepository
	products repository.ProductRepository
}

func NewSequence(seq repository.CodeSequenceRepository, products repository.ProductRepository) *Sequence {
	return &Sequence{seq: seq, products: products}
}

func (s *Sequence) WithDB(db db.DB) Allocator {
	return &Sequence{seq: s.seq.WithDB(db), products: s.products.WithDB(db)}
}

// Seed aligns the sequence with the highest numeric code in the catalog. It
// runs once at startup.
func (s *Sequence) Seed(ctx context.Context) error {
	maxCode, err := s.products.MaxNumericCode(ctx)
	if err != nil {
		return fmt.Errorf("find max code: %w", err)
	}

	if err := s.seq.SetLastValue(ctx, maxCode); err != nil {
		return fmt.Errorf("seed code sequence: %w", err)
	}

	return nil
}

func (s *Sequence) Peek(ctx context.Context) (string, error) {
	v, err := s.seq.PeekValue(ctx)
	if err != nil {
		return "", fmt.Errorf("peek code sequence: %w", err)
	}
	return Format(v), nil
}

func (s *Sequence) Allocate(ctx context.Context) (string, error) {
	v, err := s.seq.NextValue(ctx)
	if err != nil {
		return "", fmt.Errorf("next code sequence: %w", err)
	}
	return Format(v), nil
}

// Observe moves the sequence past a numeric code. It never moves it back, and
// non-numeric codes are ignored.
func (s *Sequence) Observe(ctx context.Context, code string) error {
	n, ok := Parse(code)
	if !ok || n < 1 {
		return nil
	}

	if err := s.seq.AdvanceTo(ctx, n); err != nil {
		return fmt.Errorf("advance code sequence: %w", err)
	}
	return nil
}

func (s *Sequence) Reset(ctx context.Context) error {
	if err := s.seq.SetLastValue(ctx, 0); err != nil {
		return fmt.Errorf("reset code sequence: %w", err)
	}
	return nil
}
