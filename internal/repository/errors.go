package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tuanvumaihuynh/stockroom/internal/apperr"
	"github.com/tuanvumaihuynh/stockroom/internal/storage/db"
	"github.com/tuanvumaihuynh/stockroom/pkg/zerror"
)

// classify turns driver errors into application errors where a caller can act
// on the difference. notFound is used for pgx.ErrNoRows; uniques maps
// constraint names to the error reported on a violation.
func classify(err error, notFound *zerror.ZError, uniques map[string]zerror.ZError) error {
	if err == nil {
		return nil
	}

	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return notFound.WrapParent(err)
	}

	for constraint, zErr := range uniques {
		if db.IsUniqueViolation(err, constraint) {
			return zErr.WrapParent(err)
		}
	}

	if db.IsOutOfRange(err) {
		return apperr.ValueOutOfRangeErr.WrapParent(err)
	}

	if db.IsUnavailable(err) {
		return apperr.StorageUnavailableErr.WrapParent(err)
	}

	return err
}
