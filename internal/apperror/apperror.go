package apperror

import (
	"errors"
	"net/http"
	"strings"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUpstream
)

// Error is the typed error every service returns for an expected failure.
// Message is safe to show to clients; Err is kept for logs only.
type Error struct {
	Kind    Kind
	Message string
	Details []string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches two *Error values by kind and message so sentinel vars work
// with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Validation builds a 400 error; the first detail doubles as the message
// when no message is given.
func Validation(message string, details ...string) *Error {
	if message == "" && len(details) > 0 {
		message = details[0]
	}
	return &Error{Kind: KindValidation, Message: message, Details: details}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

// Wrap attaches a cause to a copy of e, leaving sentinels untouched.
func Wrap(e *Error, err error) *Error {
	c := *e
	c.Err = err
	return &c
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// ValidationErrors accumulates field messages before building one error.
type ValidationErrors struct {
	Errors []string
}

func (ve *ValidationErrors) Add(msg string) {
	ve.Errors = append(ve.Errors, msg)
}

func (ve *ValidationErrors) Empty() bool {
	return len(ve.Errors) == 0
}

func (ve *ValidationErrors) Err() error {
	if ve.Empty() {
		return nil
	}
	return Validation("", ve.Errors...)
}

func (ve *ValidationErrors) Error() string {
	return strings.Join(ve.Errors, "; ")
}
