package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an AppError. Every error that reaches an HTTP handler is one of these.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindDatabase       Kind = "database"
	KindRateLimited    Kind = "rate_limited"
	KindGateway        Kind = "gateway"
)

// Machine codes carried by database errors.
const (
	CodeNoData          = "NO_DATA"
	CodeUniqueViolation = "UNIQUE_VIOLATION"
	CodeSchemaMismatch  = "SCHEMA_MISMATCH"
)

// AppError is the base application error: a safe message, the HTTP status it maps to,
// a machine code and optional structured details.
type AppError struct {
	Kind    Kind
	Message string
	Status  int
	Code    string
	Hint    string
	Details map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation is returned for malformed or missing input. errs become details.errors.
func Validation(message string, errs ...string) *AppError {
	e := &AppError{Kind: KindValidation, Message: message, Status: http.StatusBadRequest, Code: "VALIDATION_ERROR"}
	if len(errs) > 0 {
		e.Details = map[string]any{"errors": errs}
	}
	return e
}

// Authentication is returned for a missing, expired or invalid admin session.
func Authentication(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return &AppError{Kind: KindAuthentication, Message: message, Status: http.StatusUnauthorized, Code: "AUTHENTICATION_ERROR"}
}

// Authorization is returned when the caller is known but not allowed to act.
func Authorization(message string) *AppError {
	if message == "" {
		message = "insufficient permissions"
	}
	return &AppError{Kind: KindAuthorization, Message: message, Status: http.StatusForbidden, Code: "AUTHORIZATION_ERROR"}
}

// NotFound is returned when a referenced entity does not exist.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Details: map[string]any{"resource": resource, "id": id},
	}
}

// Database wraps a storage failure. code and hint are driver diagnostics for operators.
func Database(label string, err error, code, hint string) *AppError {
	return &AppError{
		Kind:    KindDatabase,
		Message: fmt.Sprintf("database error during %s", label),
		Status:  http.StatusInternalServerError,
		Code:    code,
		Hint:    hint,
		Err:     err,
	}
}

// RateLimited is returned when a caller exceeded its request budget.
func RateLimited() *AppError {
	return &AppError{Kind: KindRateLimited, Message: "too many requests", Status: http.StatusTooManyRequests, Code: "RATE_LIMITED"}
}

// Gateway wraps a payment gateway failure after retries were exhausted.
func Gateway(message string, err error) *AppError {
	return &AppError{Kind: KindGateway, Message: message, Status: http.StatusBadGateway, Code: "GATEWAY_ERROR", Err: err}
}

// As extracts an *AppError from err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// IsUniqueViolation reports whether err is a normalised unique-constraint failure.
func IsUniqueViolation(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == KindDatabase && appErr.Code == CodeUniqueViolation
}

// IsNoData reports whether err is a normalised "no data returned" failure.
func IsNoData(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == KindDatabase && appErr.Code == CodeNoData
}

// Response maps err to an HTTP status and JSON body. Anything that is not an AppError becomes
// an opaque 500. Wrapped causes are never included.
func Response(err error) (int, map[string]any) {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, map[string]any{"success": false, "error": "internal server error"}
	}

	body := map[string]any{"success": false, "error": appErr.Message}
	if appErr.Code != "" {
		body["code"] = appErr.Code
	}
	if appErr.Kind == KindDatabase && appErr.Hint != "" {
		body["hint"] = appErr.Hint
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}

	status := appErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return status, body
}
