// Package errors defines the typed error carried from services to the HTTP
// edge. Each Code maps to a status, a public message and a retry hint.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeRateLimit    Code = "RATE_LIMITED"

	CodeInsufficientShares Code = "INSUFFICIENT_SHARES_AVAILABLE"
	CodeInvalidTransition  Code = "INVALID_STATE_TRANSITION"
	CodeApprovalPending    Code = "APPROVAL_ALREADY_PENDING"
)

// Metadata describes how a code surfaces to API clients.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	// DetailsAllowed lets Details reach the response body.
	DetailsAllowed bool
	// ShowMessage replaces PublicMessage with the error's own message.
	ShowMessage bool
}

type flag uint8

const (
	retry flag = 1 << iota
	details
	message
)

func meta(status int, public string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  public,
		Retryable:      flags&retry != 0,
		DetailsAllowed: flags&details != 0,
		ShowMessage:    flags&message != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         meta(http.StatusBadRequest, "validation failed", details|message),
	CodeUnauthorized:       meta(http.StatusUnauthorized, "authentication required", message),
	CodeForbidden:          meta(http.StatusForbidden, "access denied", message),
	CodeNotFound:           meta(http.StatusNotFound, "resource not found", message),
	CodeConflict:           meta(http.StatusConflict, "conflict detected", message),
	CodeInvalidTransition:  meta(http.StatusConflict, "state transition disallowed", details|message),
	CodeInsufficientShares: meta(http.StatusConflict, "insufficient shares available", details|message),
	CodeApprovalPending:    meta(http.StatusConflict, "an approval is already outstanding for this round", details|message),
	CodeIdempotency:        meta(http.StatusConflict, "idempotency key reused", details|message),
	CodeRateLimit:          meta(http.StatusTooManyRequests, "too many requests", retry|message),
	CodeInternal:           meta(http.StatusInternalServerError, "internal server error", retry),
	CodeDependency:         meta(http.StatusServiceUnavailable, "dependency unavailable", retry|details),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
	}
	return metadataByCode[CodeInternal]
}

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

// Wrap attaches a code to err. A nil err behaves like New.
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
	case e.cause == nil:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	case e.message == "":
		return fmt.Sprintf("%s: %v", e.code, e.cause)
	default:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost typed error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Retryable treats untyped failures as transient.
func Retryable(err error) bool {
	typed := As(err)
	if typed == nil {
		return true
	}
	return MetadataFor(typed.code).Retryable
}

// Status is the HTTP status err would be reported with.
func Status(err error) int {
	if err == nil {
		return http.StatusOK
	}
	typed := As(err)
	if typed == nil {
		return MetadataFor(Classify(err)).HTTPStatus
	}
	return MetadataFor(typed.code).HTTPStatus
}
