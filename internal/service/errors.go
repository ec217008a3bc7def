package service

import "errors"

// Kind classifies a service error.
type Kind int

const (
	// KindNetwork covers transport failures and timeouts.
	KindNetwork Kind = iota

	// KindUnauthorized means the token is missing, invalid or expired.
	KindUnauthorized

	// KindNotFound means a referenced id no longer exists on the server.
	KindNotFound

	// KindValidation means the server (or a client-side guard) rejected the input.
	KindValidation

	// KindServer covers 5xx responses and malformed response bodies.
	KindServer
)

// Error is the typed failure result every Service call yields.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errf constructs a typed error.
func Errf(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf extracts the kind of a service error. Untyped errors map to KindNetwork.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindNetwork
}

// IsUnauthorized reports whether err is an unauthorized service error.
func IsUnauthorized(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindUnauthorized
}

// IsNotFound reports whether err is a not-found service error.
func IsNotFound(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindNotFound
}

// IsValidation reports whether err is a validation service error.
func IsValidation(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.Kind == KindValidation
}
