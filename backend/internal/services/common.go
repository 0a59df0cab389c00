package services

import (
	"errors"

	"github.com/Jancy0713/jancy-template-end/backend/internal/errs"

	"gorm.io/gorm"
)

// storeErr converts an untyped persistence failure into the store kind.
// Already-classified errors pass through unchanged.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errs.IsValidation(err) || errs.IsNotFound(err) || errs.IsConflict(err) || errs.IsStore(err) {
		return err
	}
	return errs.Store(err)
}

// notFoundOr maps gorm's record-not-found onto the typed taxonomy and
// wraps anything else as a store failure.
func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(entity)
	}
	return storeErr(err)
}
