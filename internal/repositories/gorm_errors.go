package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// gormErr maps gorm sentinel errors onto the repository taxonomy.
// Duplicate keys are only recognised when the DB was opened with TranslateError.
func gormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrConstraintViolation
	default:
		return err
	}
}
