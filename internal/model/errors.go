package model

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures so callers can branch without string matching.
type ErrorCode string

const (
	ErrCodeConstraint         ErrorCode = "CONSTRAINT"
	ErrCodeInvalid            ErrorCode = "INVALID"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"
	ErrCodeStorageCorruption  ErrorCode = "STORAGE_CORRUPTION"
	ErrCodeRegistrar          ErrorCode = "REGISTRAR"
)

// Error is the planner's classified error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrConstraint)
// holds for every constraint failure regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrConstraint         = NewError(ErrCodeConstraint, "constraint violation")
	ErrInvalidArgument    = NewError(ErrCodeInvalid, "invalid argument")
	ErrItemNotFound       = NewError(ErrCodeNotFound, "item not found")
	ErrStorageUnavailable = NewError(ErrCodeStorageUnavailable, "storage unavailable")
	ErrStorageCorruption  = NewError(ErrCodeStorageCorruption, "storage corruption")
	ErrRegistrar          = NewError(ErrCodeRegistrar, "trigger registrar failure")
)

// Invalidf builds an ErrCodeInvalid error with a formatted message.
func Invalidf(format string, args ...any) *Error {
	return NewError(ErrCodeInvalid, fmt.Sprintf(format, args...))
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
