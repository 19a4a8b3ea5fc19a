// Package domainerrors gives service failures a stable, transport-neutral
// code. Services return these; the HTTP layer maps the code to a status.
package domainerrors

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInvalidInput Code = "invalid_input"
	CodeValidation   Code = "validation_failed"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal_error"

	// Issuance preconditions: no issuer, or an issuer without key material.
	CodeNotConfigured Code = "not_configured"
	// Key material could not be used: missing platform secret, corrupt blob.
	CodeCrypto Code = "crypto_failure"
)

// Status is the HTTP status a code surfaces as.
func (c Code) Status() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest, CodeInvalidInput, CodeValidation:
		return http.StatusBadRequest
	case CodeConflict:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotConfigured:
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// Label is the "error" string clients see. Input problems collapse to two
// labels; unknown codes read as internal_error.
func (c Code) Label() string {
	switch c {
	case CodeBadRequest, CodeInvalidInput:
		return "bad_request"
	case CodeValidation:
		return "validation_error"
	case CodeNotFound, CodeConflict, CodeUnauthorized, CodeNotConfigured, CodeCrypto:
		return string(c)
	default:
		return string(CodeInternal)
	}
}

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so errors.Is(err, New(CodeNotFound, ""))
// works anywhere in a chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches msg to err. If err already carries a domain code, that code
// wins over the one given here.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: CodeOf(err, code), Message: msg, Err: err}
}

// CodeOf returns the outermost domain code in err's chain, or fallback when
// there is none.
func CodeOf(err error, fallback Code) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return fallback
}

func HasCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
