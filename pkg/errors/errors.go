package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Business-rule errors raised by the enrollment pipeline and guidance engine.
var (
	ErrAccessDenied             = New("ACCESS_DENIED", http.StatusForbidden, "access to the requested student is denied")
	ErrDuplicateEnrollment      = New("DUPLICATE_ENROLLMENT", http.StatusUnprocessableEntity, "student already enrolled in course for term")
	ErrCreditHourExceeded       = New("CREDIT_HOUR_EXCEEDED", http.StatusUnprocessableEntity, "requested hours exceed the credit hour ceiling")
	ErrPrerequisiteUnmet        = New("PREREQUISITE_UNMET", http.StatusUnprocessableEntity, "course prerequisite not satisfied")
	ErrScheduleCapacityExceeded = New("SCHEDULE_CAPACITY_EXCEEDED", http.StatusUnprocessableEntity, "activity group has no remaining seats")
	ErrScheduleTimeConflict     = New("SCHEDULE_TIME_CONFLICT", http.StatusUnprocessableEntity, "requested slots conflict with reserved slots")
	ErrInvalidReference         = New("INVALID_REFERENCE", http.StatusUnprocessableEntity, "supplied reference does not belong to the offering")
	ErrOfferingInUse            = New("OFFERING_IN_USE", http.StatusUnprocessableEntity, "offering has active enrollment schedules")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
