package catalog

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrorCode enumerates the failure classes surfaced by catalog operations.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the referenced entity does not exist or is deleted.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a uniqueness or identity collision.
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeBadRequest indicates the request violates a business rule.
	ErrCodeBadRequest ErrorCode = "bad_request"
	// ErrCodeInternal indicates an unexpected infrastructure failure.
	ErrCodeInternal ErrorCode = "internal"
)

// Error wraps catalog failures with a machine readable code. Details carries
// structured context such as colliding product ids or blocking pack entries.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithDetail attaches one structured context entry and returns the error.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = map[string]interface{}{}
	}
	e.Details[key] = value
	return e
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Internal(message string, err error) *Error {
	return &Error{Code: ErrCodeInternal, Message: message, Err: err}
}

// AsError extracts a typed catalog error. Untyped errors map to internal.
func AsError(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	return &Error{Code: ErrCodeInternal, Message: "internal error", Err: err}
}

// HTTPStatus maps an error to the response status used by the handlers.
func HTTPStatus(err error) int {
	switch AsError(err).Code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// uniqueScopes maps database constraint names to the human readable scope
// reported when a concurrent writer wins a uniqueness race.
var uniqueScopes = map[string]string{
	"uq_manufacturers_name": "manufacturer name",
	"uq_brands_name":        "brand name within manufacturer",
	"uq_variants_name":      "variant name within brand",
	"uq_pack_sizes_name":    "pack size within variant",
	"uq_pack_types_name":    "pack type within variant",
	"uq_categories_name":    "category name",
	"uq_categories_slug":    "category slug",
	"uq_subcategories_name": "subcategory name within category",
	"uq_subcategories_slug": "subcategory slug",
	"uq_products_name":      "product name",
	"uq_products_sku":       "product SKU",
}

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation, identified by SQLSTATE rather than message text.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// UniqueScope names the uniqueness scope behind a constraint violation.
// Returns the raw constraint name when it is not one of ours.
func UniqueScope(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	if scope, ok := uniqueScopes[pgErr.ConstraintName]; ok {
		return scope
	}
	return pgErr.ConstraintName
}
