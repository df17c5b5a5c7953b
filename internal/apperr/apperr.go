// Package apperr carries coded errors between services and Telegram handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error for replies and log summaries.
type Code string

const (
	// CodeUsage marks malformed input that the caller can fix.
	CodeUsage Code = "USAGE"
	// CodeNotFound marks a missing record; the operation is a no-op.
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict marks a state that forbids the transition.
	CodeConflict Code = "CONFLICT"
	// CodeForbidden marks an operation the actor may not perform.
	CodeForbidden Code = "FORBIDDEN"
	// CodeUnavailable marks a store or platform that stayed unreachable after retries.
	CodeUnavailable Code = "UNAVAILABLE"
	// CodeInternal is used for anything else.
	CodeInternal Code = "INTERNAL"
)

// Error is a coded error with an optional cause.
type Error struct {
	code    Code
	message string
	cause   error
}

// New builds an error without a cause.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches a code and message to err.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// With returns a copy of e carrying cause. The copy still matches e under errors.Is.
func (e *Error) With(cause error) *Error {
	return &Error{code: e.code, message: e.message, cause: cause}
}

// Code satisfies the coder interface used by the router log summary.
func (e *Error) Code() string {
	if e == nil {
		return string(CodeInternal)
	}
	return string(e.code)
}

// Message returns the message without the cause chain.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *Error with the same code and message, so package-level
// sentinels work with errors.Is even after wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.code == t.code && e.message == t.message
}

// As returns the first *Error in the chain or nil.
func As(err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// coder is implemented by errors from packages that cannot import apperr.
type coder interface {
	Code() string
}

// CodeOf reports the code of err, CodeInternal for uncoded errors and "" for nil.
// Other errors with a Code method in the chain are honoured too.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if typed := As(err); typed != nil {
		return typed.code
	}
	var c coder
	if errors.As(err, &c) {
		return Code(c.Code())
	}
	return CodeInternal
}

// Usagef is shorthand for a formatted usage error.
func Usagef(format string, args ...any) *Error {
	return New(CodeUsage, fmt.Sprintf(format, args...))
}
