// Package apperror defines the operational error taxonomy returned to API
// clients. Anything that is not an *Error is treated as an internal fault.
package apperror

import (
	"errors"
	"net/http"
	"runtime/debug"
)

// Kind classifies an error for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindMethodNotAllowed
	KindTooManyRequests
	KindDependency
)

var kindStatus = map[Kind]int{
	KindInternal:         http.StatusInternalServerError,
	KindValidation:       http.StatusBadRequest,
	KindConflict:         http.StatusConflict,
	KindAuthentication:   http.StatusUnauthorized,
	KindAuthorization:    http.StatusForbidden,
	KindNotFound:         http.StatusNotFound,
	KindMethodNotAllowed: http.StatusMethodNotAllowed,
	KindTooManyRequests:  http.StatusTooManyRequests,
	KindDependency:       http.StatusInternalServerError,
}

// Error is an operational error: expected, user-facing, with a status and a
// message that is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Err is the underlying cause. It is only exposed in development mode.
	Err error
	// Stack is captured for internal and dependency faults.
	Stack []byte
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status for the error kind.
func (e *Error) StatusCode() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Operational reports whether the message may be shown to clients as is.
func (e *Error) Operational() bool {
	return e.Kind != KindInternal
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches a cause to a new operational error.
func Wrap(kind Kind, code, message string, err error) *Error {
	e := &Error{Kind: kind, Code: code, Message: message, Err: err}
	if kind == KindInternal || kind == KindDependency {
		e.Stack = debug.Stack()
	}
	return e
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Unauthenticated(code, message string) *Error {
	return New(KindAuthentication, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindAuthorization, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func MethodNotAllowed(code, message string) *Error {
	return New(KindMethodNotAllowed, code, message)
}

func TooManyRequests(code, message string) *Error {
	return New(KindTooManyRequests, code, message)
}

func Dependency(code, message string, err error) *Error {
	return Wrap(KindDependency, code, message, err)
}

// Internal wraps an unexpected fault. The message sent to clients is generic.
func Internal(err error) *Error {
	return Wrap(KindInternal, "INTERNAL_ERROR", "something went very wrong", err)
}

// From converts any error into an *Error, downgrading unknown errors to
// Internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
