package repository

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"remindcal/internal/model"
)

// classify maps driver errors onto the planner's error codes. The pure-Go
// driver is not covered by gorm's error translation, hence the message check.
func classify(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY must be unique") {
		return model.WrapError(model.ErrCodeConstraint, message, err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.WrapError(model.ErrCodeNotFound, message, err)
	}
	return model.WrapError(model.ErrCodeStorageUnavailable, message, err)
}
