package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the API layer can pick an HTTP status
// without inspecting error strings.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindUnauthorized
	KindForbidden
	KindPaymentFailed
	KindUnavailable
)

type Error struct {
	Knd Kind
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(what string) error {
	return &Error{Knd: KindNotFound, Msg: what + " not found"}
}

func Validation(format string, args ...any) error {
	return &Error{Knd: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Unauthorized(msg string) error {
	return &Error{Knd: KindUnauthorized, Msg: msg}
}

func Forbidden(msg string) error {
	return &Error{Knd: KindForbidden, Msg: msg}
}

func PaymentFailed(format string, args ...any) error {
	return &Error{Knd: KindPaymentFailed, Msg: fmt.Sprintf(format, args...)}
}

func Unavailable(msg string, err error) error {
	return &Error{Knd: KindUnavailable, Msg: msg, Err: err}
}

// KindOf returns the kind of err, or KindUnknown for plain errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Knd
	}
	return KindUnknown
}

func Is(err error, k Kind) bool { return KindOf(err) == k }
