// Package allocator produces unique, human-readable product codes.
//
// Two strategies exist and a deployment uses exactly one of them. Switching
// strategies on a live catalog requires re-seeding, which [Sequence.Seed] does.
package allocator

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tuanvumaihuynh/stockroom/internal/config"
	"github.com/tuanvumaihuynh/stockroom/internal/repository"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

// MinWidth is the minimum number of digits in a formatted code.
const MinWidth = 4

// Allocator hands out product codes.
type Allocator interface {
	// WithDB returns an allocator bound to db, used to join a transaction.
	WithDB(db db.DB) Allocator
	// Peek previews the next code without consuming it.
	Peek(ctx context.Context) (string, error)
	// Allocate consumes and returns a code for one insert.
	Allocate(ctx context.Context) (string, error)
	// Observe records a code written without Allocate, so that later
	// allocations skip past it.
	Observe(ctx context.Context, code string) error
	// Reset returns the allocator to its start value. It is called after the
	// whole catalog has been wiped.
	Reset(ctx context.Context) error
	// Seed realigns the allocator with the codes in storage.
	Seed(ctx context.Context) error
}

// Format renders n zero-padded to MinWidth digits ("0007"). Larger values
// keep all their digits ("12345").
func Format(n int64) string {
	return fmt.Sprintf("%0*d", MinWidth, n)
}

// Parse returns the numeric value of a purely numeric code.
func Parse(code string) (int64, bool) {
	if code == "" {
		return 0, false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(code, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// New builds the allocator for strategy. The sequence strategy is seeded from
// the current catalog before it is returned.
func New(
	ctx context.Context,
	strategy config.AllocatorStrategy,
	products repository.ProductRepository,
	seq repository.CodeSequenceRepository,
) (Allocator, error) {
	switch strategy {
	case config.AllocatorScan:
		return NewScan(products), nil
	case config.AllocatorSequence:
		s := NewSequence(seq, products)
		if err := s.Seed(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown allocator strategy: %d", strategy)
	}
}
