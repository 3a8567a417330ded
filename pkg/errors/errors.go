package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/stoklog/stoklog-backend/pkg/i18n"
)

// Standard error types
var (
	ErrNotFound            = errors.New("resource not found")
	ErrBadRequest          = errors.New("bad request")
	ErrConflict            = errors.New("resource conflict")
	ErrInternal            = errors.New("internal server error")
	ErrValidation          = errors.New("validation error")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrResourceFrozen      = errors.New("resource frozen")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrStorageFailure      = errors.New("storage failure")
)

// Error codes
const (
	CodeNotFound            = "NOT_FOUND"
	CodeBadRequest          = "BAD_REQUEST"
	CodeConflict            = "CONFLICT"
	CodeInternal            = "INTERNAL_ERROR"
	CodeValidation          = "VALIDATION_ERROR"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeResourceFrozen      = "RESOURCE_FROZEN"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeStorageFailure      = "STORAGE_FAILURE"
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"` // i18n key for localization
	Params     map[string]string `json:"-"` // Parameters for i18n interpolation
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Retryable  bool              `json:"retryable,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize returns a localized version of the error message
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey, e.Params)
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// NotFound builds a NOT_FOUND error for a resource key from the "resources" catalog
func NotFound(resource string) *AppError {
	params := map[string]string{"resource": i18n.T("resources." + resource)}
	return &AppError{
		Err:        ErrNotFound,
		Code:       CodeNotFound,
		Message:    i18n.T("errors.not_found", params),
		MessageKey: "errors.not_found",
		Params:     params,
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       CodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConflict,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       CodeInternal,
		Message:    message,
		MessageKey: "errors.internal",
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       CodeValidation,
		Message:    "validation failed",
		MessageKey: "errors.validation_failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// InsufficientStock reports that an issue asked for more than is on hand.
// Details carry the requested and available quantities and the shortfall.
func InsufficientStock(requested, available int64) *AppError {
	params := map[string]string{
		"requested": strconv.FormatInt(requested, 10),
		"available": strconv.FormatInt(available, 10),
	}
	return &AppError{
		Err:        ErrInsufficientStock,
		Code:       CodeInsufficientStock,
		Message:    i18n.T("errors.insufficient_stock", params),
		MessageKey: "errors.insufficient_stock",
		Params:     params,
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"requested": params["requested"],
			"available": params["available"],
			"short":     strconv.FormatInt(requested-available, 10),
		},
	}
}

// ResourceFrozen reports that the subscription collaborator has frozen the
// tenant or warehouse, so writes are refused.
func ResourceFrozen(resource string) *AppError {
	params := map[string]string{"resource": i18n.T("resources." + resource)}
	return &AppError{
		Err:        ErrResourceFrozen,
		Code:       CodeResourceFrozen,
		Message:    i18n.T("errors.resource_frozen", params),
		MessageKey: "errors.resource_frozen",
		Params:     params,
		StatusCode: http.StatusLocked,
	}
}

func ConcurrencyConflict(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrConcurrencyConflict, err),
		Code:       CodeConcurrencyConflict,
		Message:    i18n.T("errors.concurrency_conflict"),
		MessageKey: "errors.concurrency_conflict",
		StatusCode: http.StatusConflict,
		Retryable:  true,
	}
}

func StorageFailure(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrStorageFailure, err),
		Code:       CodeStorageFailure,
		Message:    i18n.T("errors.storage_failure"),
		MessageKey: "errors.storage_failure",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join wraps errors.Join so callers need not import both packages
func Join(errs ...error) error {
	return errors.Join(errs...)
}
