// Package repositories is the persistence layer: one repository per
// aggregate over an injected *gorm.DB. Every method takes a context and maps
// driver failures to apperr kinds, so services never see gorm errors.
package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/pkg/apperr"
)

// storeErr classifies a gorm error: a missing row is NotFound, anything else
// means the store could not serve the call.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.Wrapf(apperr.NotFound, op, err, "Not found")
	}
	return apperr.Wrap(apperr.PersistenceUnavailable, op, err)
}

// isDuplicate reports a unique-constraint violation across the supported
// drivers, whether or not the dialector translated it.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
