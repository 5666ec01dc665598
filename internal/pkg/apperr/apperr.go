package apperr

import "errors"

// Kind classifies an application error for the HTTP layer.
type Kind int

const (
	KindInternal Kind = iota
	KindAuth
	KindValidation
	KindConflict
	KindNotFound
	KindNotConnected
	KindForbidden
)

// Error is an application error with a caller-facing description.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal error"
}

func (e *Error) Unwrap() error { return e.Err }

// Auth reports missing or invalid credentials.
func Auth(message string) *Error { return &Error{Kind: KindAuth, Message: message} }

// Validation reports missing or malformed request fields.
func Validation(message string) *Error { return &Error{Kind: KindValidation, Message: message} }

// Conflict reports a state-machine violation (e.g. journey already open).
func Conflict(message string) *Error { return &Error{Kind: KindConflict, Message: message} }

// Forbidden reports an operation on a journey the caller does not own.
func Forbidden(message string) *Error { return &Error{Kind: KindForbidden, Message: message} }

// NotFound reports a required record that does not exist.
func NotFound(message string) *Error { return &Error{Kind: KindNotFound, Message: message} }

// NotConnected reports a live-push target that is unreachable. Callers
// usually surface this as a false result rather than a hard failure.
func NotConnected(message string) *Error { return &Error{Kind: KindNotConnected, Message: message} }

// Wrap attaches an underlying cause to an internal error.
func Wrap(err error, message string) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf extracts the Kind from an error chain, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
