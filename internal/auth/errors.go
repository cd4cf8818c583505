package auth

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the transport boundary. Stores return plain
// errors; Service maps them to kinds; only the handler layer translates a
// kind into an HTTP status.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthenticationFailed
	KindTokenMalformed
	KindTokenInvalidSignature
	KindTokenExpired
	KindTokenRevoked
	KindTokenAlreadyUsed
	KindConflict
	KindNotFound
	KindServiceUnavailable
	KindValidationFailed
	KindNotConfigured
)

// Error is a kind-carrying error. Message is safe to return to clients;
// wrapped store internals are not.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.err }

func errOf(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, err: err}
}

// KindOf extracts the kind from an error, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the client-safe message, or a generic one for
// unclassified errors so store internals never leak.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}
