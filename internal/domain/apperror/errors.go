// Package apperror defines the categorized business errors raised by claim operations.
package apperror

import "errors"

// Error is a business violation carrying a kind, a machine code and a human message
type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind. A target that
// also sets Code must match it too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// HTTPStatus returns the HTTP status associated with the error kind
func (e *Error) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// WithMetadata returns a copy of the error with an extra metadata entry
func (e *Error) WithMetadata(key, value string) *Error {
	cp := *e
	cp.Metadata = make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	cp.Metadata[key] = value
	return &cp
}

// Sentinels for errors.Is checks by kind.
var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrInvalidState = &Error{Kind: KindInvalidState}
	ErrForbidden    = &Error{Kind: KindForbidden}
)

// NotFound creates a NotFound error
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Validation creates a ValidationError
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// InvalidState creates an InvalidState error
func InvalidState(code, message string) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Message: message}
}

// Forbidden creates a Forbidden error
func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: message}
}

// Internal wraps an unexpected failure
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: message, Cause: cause}
}

// As extracts the *Error from err's chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf classifies any error; non-business errors are Internal
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
