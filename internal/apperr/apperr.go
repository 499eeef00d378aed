package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindStorage
	KindDelivery
	KindAuth
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	case KindDelivery:
		return "delivery"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	}
	return "unknown"
}

// Error is the single error type crossing package boundaries.
// Msg is safe to show to a client; Err is the underlying cause and is only logged.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// sentinels for errors.Is
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrStorage    = &Error{Kind: KindStorage}
	ErrDelivery   = &Error{Kind: KindDelivery}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrForbidden  = &Error{Kind: KindForbidden}
)

func Validation(msg string) error { return &Error{Kind: KindValidation, Msg: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Msg: msg} }
func Conflict(msg string) error   { return &Error{Kind: KindConflict, Msg: msg} }
func Auth(msg string) error       { return &Error{Kind: KindAuth, Msg: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Msg: msg} }

func Storage(op string, err error) error {
	return &Error{Kind: KindStorage, Msg: op, Err: err}
}

func Delivery(to string, err error) error {
	return &Error{Kind: KindDelivery, Msg: "deliver to " + to, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Message returns the client-facing message of err, or fallback when err
// carries none or must not leak internals.
func Message(err error, fallback string) string {
	var e *Error
	if !errors.As(err, &e) || e.Msg == "" {
		return fallback
	}
	switch e.Kind {
	case KindStorage, KindDelivery:
		return fallback
	}
	return e.Msg
}

// OnlyDelivery reports whether every error joined into err is a delivery error.
// Used by callers to tell a committed mutation with failed mail apart from a real failure.
func OnlyDelivery(err error) bool {
	if err == nil {
		return false
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			if !OnlyDelivery(e) {
				return false
			}
		}
		return true
	}
	return KindOf(err) == KindDelivery
}
