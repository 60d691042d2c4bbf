package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code classifies a failure. The HTTP boundary maps it to a status and
// decides how much of the error callers get to see.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	HTTPStatus int
	// PublicMessage replaces the error's own message unless ShowMessage is set.
	PublicMessage  string
	ShowMessage    bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {http.StatusBadRequest, "validation failed", true, true},
	CodeUnauthorized:  {http.StatusUnauthorized, "authentication required", true, false},
	CodeForbidden:     {http.StatusForbidden, "access denied", true, false},
	CodeNotFound:      {http.StatusNotFound, "resource not found", true, false},
	CodeConflict:      {http.StatusBadRequest, "conflict detected", true, false},
	CodeStateConflict: {http.StatusBadRequest, "invalid operation", true, true},
	CodeIdempotency:   {http.StatusConflict, "idempotency key reused", true, true},
	CodeRateLimit:     {http.StatusTooManyRequests, "rate limit exceeded", true, false},
	CodeInternal:      {http.StatusInternalServerError, "internal server error", false, false},
	CodeDependency:    {http.StatusServiceUnavailable, "dependency unavailable", false, true},
}

// MetadataFor treats unknown codes as internal.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error every service returns.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap keeps err as the cause so the full chain reaches the logs.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost typed error in the chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
