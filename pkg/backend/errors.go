package backend

import (
	"errors"
	"fmt"
)

// Backend error codes. CodeNoRows matches the PostgREST code for a
// single-row request that matched zero or several rows.
const (
	CodeNoRows           = "PGRST116"
	CodeUndefinedTable   = "42P01"
	CodeUniqueViolation  = "23505"
	CodeInvalidQuery     = "INVALID_QUERY"
	CodeUnfilteredDelete = "UNFILTERED_DELETE"
	CodeTxUnsupported    = "TX_UNSUPPORTED"
	CodeTransport        = "TRANSPORT"
	CodeInternal         = "INTERNAL"
)

// Error is a failed backend request.
type Error struct {
	// Code identifies the failure class, e.g. CodeNoRows.
	Code string `json:"code"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Details carries backend-supplied detail, if any.
	Details string `json:"details,omitempty"`

	// Hint carries a backend-supplied hint, if any.
	Hint string `json:"hint,omitempty"`

	// Status is the HTTP status for HTTP backends, zero otherwise.
	Status int `json:"-"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// NewError creates a backend error with the given code.
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a backend error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf returns the backend code carried by err, or "" if err is not a
// backend error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNoRows reports whether err is the "no row found" condition of a
// single-row lookup.
func IsNoRows(err error) bool {
	return CodeOf(err) == CodeNoRows
}

// IsUndefinedTable reports whether err was caused by a missing table.
func IsUndefinedTable(err error) bool {
	return CodeOf(err) == CodeUndefinedTable
}
