package services

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"
	ErrCodeForbidden       ErrorCode = "FORBIDDEN"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// Error is the classified failure every service returns; handlers map Code to a status.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NewUnauthenticated(message string) *Error {
	return &Error{Code: ErrCodeUnauthenticated, Message: message}
}

func NewForbidden(message string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: message}
}

func NewNotFound(resource string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: resource + " not found"}
}

func NewConflict(message string) *Error {
	return &Error{Code: ErrCodeConflict, Message: message}
}

func NewInternal(message string, err error) *Error {
	return &Error{Code: ErrCodeInternal, Message: message, Err: err}
}

// CodeOf returns the code of a classified error, or ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ErrCodeInternal
}

func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
