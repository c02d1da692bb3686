// Package apperr defines the typed failures returned by services and
// repositories. Handlers translate a Kind into an HTTP status with
// ctx.Fail; everything else treats an *Error like any wrapped error.
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
//	if apperr.KindOf(err) == apperr.Forbidden { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Internal Kind = iota
	Unauthorized
	Forbidden
	NotFound
	BadRequest
	PersistenceUnavailable
	PaymentProvider
	LLMProvider
	StorageProvider
)

var kindNames = map[Kind]string{
	Internal:               "INTERNAL_SERVER_ERROR",
	Unauthorized:           "UNAUTHORIZED",
	Forbidden:              "FORBIDDEN",
	NotFound:               "NOT_FOUND",
	BadRequest:             "BAD_REQUEST",
	PersistenceUnavailable: "PERSISTENCE_UNAVAILABLE",
	PaymentProvider:        "PAYMENT_PROVIDER_ERROR",
	LLMProvider:            "LLM_PROVIDER_ERROR",
	StorageProvider:        "STORAGE_PROVIDER_ERROR",
}

// String returns the wire code, e.g. "FORBIDDEN".
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Internal]
}

// Sentinels for errors.Is matching against a bare kind.
var (
	ErrUnauthorized           = &Error{Kind: Unauthorized}
	ErrForbidden              = &Error{Kind: Forbidden}
	ErrNotFound               = &Error{Kind: NotFound}
	ErrBadRequest             = &Error{Kind: BadRequest}
	ErrPersistenceUnavailable = &Error{Kind: PersistenceUnavailable}
)

// Error is a classified failure. Op names the operation that failed
// ("cart.addItem", "orders.updateStatus"); Message is safe to show the caller.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind, so errors.Is(err, ErrNotFound)
// works regardless of Op or Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

// New builds an *Error with a caller-facing message.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies err. A nil err returns nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf classifies err and attaches a caller-facing message.
func Wrapf(kind Kind, op string, err error, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// Internal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// MessageOf returns the first non-empty caller-facing message in err's chain.
func MessageOf(err error) string {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Message != "" {
			return e.Message
		}
		err = e.Err
	}
	return ""
}
