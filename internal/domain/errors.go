package domain

import (
	"errors"
	"fmt"
)

// The engine classifies every rejection into one of four kinds so callers
// (and the HTTP layer) can react without string matching.

// ValidationError: malformed input, bid below minimum, self-dealing.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// ConflictError: target is no longer in the expected state; re-fetch and retry.
type ConflictError struct{ Msg string }

func (e *ConflictError) Error() string { return e.Msg }

// NotFoundError: unknown listing/offer/invoice id.
type NotFoundError struct{ Msg string }

func (e *NotFoundError) Error() string { return e.Msg }

// PermissionError: actor is not the eligible party for the action.
type PermissionError struct{ Msg string }

func (e *PermissionError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

func Permissionf(format string, args ...any) error {
	return &PermissionError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsPermission(err error) bool {
	var e *PermissionError
	return errors.As(err, &e)
}
