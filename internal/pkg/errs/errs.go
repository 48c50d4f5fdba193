/*
Package errs provides the client's normalized error type and its error code constants.

This file defines CustomError. It implements the error interface and carries the
code, the error kind (validation, rejected, connectivity, unauthorized, canceled),
a user-facing message, the HTTP status used when the error is rendered by the view
server, and optionally field-scoped messages and a redirect target.
*/
package errs

import (
	"errors"
	"fmt"
	"maps"
	"strings"

	"blogclient/internal/pkg/logx"
)

// Kind classifies a failure by how the caller should react to it.
type Kind int

const (
	// KindValidation: client-side, field-scoped, nothing was sent.
	KindValidation Kind = iota + 1
	// KindRejected: the server answered non-2xx with a structured message.
	KindRejected
	// KindConnectivity: no usable response arrived. Retryable.
	KindConnectivity
	// KindUnauthorized: the session is missing or was rejected; resolved by redirecting to login.
	KindUnauthorized
	// KindCanceled: the caller abandoned the request.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	case KindConnectivity:
		return "connectivity"
	case KindUnauthorized:
		return "unauthorized"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// CustomError is the single error contract every caller of this module handles.
type CustomError struct {
	// Code is the error code (see constants).
	Code int

	// Kind is the taxonomy bucket of the error.
	Kind Kind

	// Message is the user-friendly description.
	Message string

	// Status is the HTTP status the view server answers with. For rejected
	// errors it is the status the API server answered with.
	Status int

	// Fields holds field-scoped validation messages, keyed by field name.
	Fields map[string]string

	// Redirect is where the UI should navigate, if anywhere (e.g. "/login").
	Redirect string

	cause error
}

// Error implements the error interface.
func (e *CustomError) Error() string {
	return fmt.Sprintf("Error Code %d (%s, HTTP %d): %s", e.Code, e.Kind, e.Status, e.Message)
}

// Unwrap returns the underlying transport or storage error, if any.
func (e *CustomError) Unwrap() error {
	return e.cause
}

// Retryable reports whether repeating the same operation may succeed.
func (e *CustomError) Retryable() bool {
	return e.Kind == KindConnectivity
}

// WithMessage returns a copy of e with its message replaced. Empty messages are ignored.
func (e *CustomError) WithMessage(msg string) *CustomError {
	c := e.clone()
	if msg != "" {
		c.Message = msg
	}
	return c
}

// WithStatus returns a copy of e with its status replaced.
func (e *CustomError) WithStatus(status int) *CustomError {
	c := e.clone()
	c.Status = status
	return c
}

// WithCause returns a copy of e wrapping err.
func (e *CustomError) WithCause(err error) *CustomError {
	c := e.clone()
	c.cause = err
	return c
}

func (e *CustomError) clone() *CustomError {
	c := *e
	c.Fields = maps.Clone(e.Fields)
	return &c
}

// NewError builds a *CustomError from a predefined code.
// printf-style details are applied when the template message has placeholders.
// For ErrUnknown, an error passed as the first detail is logged and wrapped.
// Unknown codes fall back to ErrUnknown.
func NewError(code int, details ...any) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)

		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr.clone()

	if code == ErrUnknown && len(details) > 0 {
		if originalErr, ok := details[0].(error); ok {
			logx.Error(originalErr, "Handling ErrUnknown with underlying error")
			customErr.cause = originalErr
		}
	} else if len(details) > 0 {
		if strings.Contains(customErr.Message, "%") {
			customErr.Message = fmt.Sprintf(customErr.Message, details...)
		} else {
			logx.Warn(
				"Details provided for error, but message template has no formatting placeholders. Details ignored.",
				"code", code,
			)
		}
	}

	return customErr
}

// Validation builds an ErrInvalidParams error from field-scoped messages.
// With a single field, its message becomes the error message.
// It returns nil when fields is empty.
func Validation(fields map[string]string) *CustomError {
	if len(fields) == 0 {
		return nil
	}

	e := NewError(ErrInvalidParams)
	e.Fields = maps.Clone(fields)

	if len(fields) == 1 {
		for _, msg := range fields {
			e.Message = msg
		}
	}

	return e
}

// From converts any error into a *CustomError. Values that already are
// *CustomError are returned as is; everything else becomes ErrUnknown.
func From(err error) *CustomError {
	if err == nil {
		return nil
	}

	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr
	}

	return NewError(ErrUnknown, err)
}

// HasCode reports whether err is a *CustomError with the given code.
func HasCode(err error, code int) bool {
	var customErr *CustomError
	return errors.As(err, &customErr) && customErr.Code == code
}

// IsKind reports whether err is a *CustomError of the given kind.
func IsKind(err error, kind Kind) bool {
	var customErr *CustomError
	return errors.As(err, &customErr) && customErr.Kind == kind
}
