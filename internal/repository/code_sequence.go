package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
)

// CodeSequenceRepository wraps the product_code_seq sequence.
type CodeSequenceRepository interface {
	WithDB(db db.DB) CodeSequenceRepository
	// NextValue atomically consumes and returns the next value.
	NextValue(ctx context.Context) (int64, error)
	// PeekValue returns the value NextValue would return if nobody else calls it first.
	PeekValue(ctx context.Context) (int64, error)
	// SetLastValue makes the next consumed value last+1. A last of 0 restarts at 1.
	SetLastValue(ctx context.Context, last int64) error
	// AdvanceTo makes the next consumed value greater than value. It never
	// moves the sequence back. value must be at least 1.
	AdvanceTo(ctx context.Context, value int64) error
}

type codeSequenceRepository struct {
	db db.DB
}

func NewCodeSequenceRepository(db db.DB) CodeSequenceRepository {
	return &codeSequenceRepository{db: db}
}

func (r codeSequenceRepository) WithDB(db db.DB) CodeSequenceRepository {
	return &codeSequenceRepository{db: db}
}

func (r codeSequenceRepository) NextValue(ctx context.Context) (int64, error) {
	var v int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('product_code_seq')`).Scan(&v); err != nil {
		return 0, fmt.Errorf("nextval: %w", classify(err, nil, nil))
	}
	return v, nil
}

func (r codeSequenceRepository) PeekValue(ctx context.Context) (int64, error) {
	var (
		last     int64
		isCalled bool
	)
	if err := r.db.QueryRow(ctx, `SELECT last_value, is_called FROM product_code_seq`).Scan(&last, &isCalled); err != nil {
		return 0, fmt.Errorf("read sequence: %w", classify(err, nil, nil))
	}

	if !isCalled {
		return last, nil
	}
	return last + 1, nil
}

func (r codeSequenceRepository) SetLastValue(ctx context.Context, last int64) error {
	// setval cannot go below MINVALUE 1, so an empty catalog is expressed as
	// "1, not yet called".
	value, isCalled := last, true
	if last < 1 {
		value, isCalled = 1, false
	}

	if _, err := r.db.Exec(ctx, `SELECT setval('product_code_seq', @value, @is_called)`, pgx.NamedArgs{
		"value":     value,
		"is_called": isCalled,
	}); err != nil {
		return fmt.Errorf("setval: %w", classify(err, nil, nil))
	}

	return nil
}

func (r codeSequenceRepository) AdvanceTo(ctx context.Context, value int64) error {
	if _, err := r.db.Exec(ctx, `
		SELECT setval('product_code_seq', GREATEST(@value, (
			SELECT CASE WHEN is_called THEN last_value ELSE last_value - 1 END
			FROM product_code_seq
		)), true)
	`, pgx.NamedArgs{"value": value}); err != nil {
		return fmt.Errorf("advance sequence: %w", classify(err, nil, nil))
	}

	return nil
}
