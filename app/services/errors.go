package services

import (
	"errors"
	"fmt"
)

// Error kinds. Every error a service returns matches exactly one of these
// with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrPayloadTooLarge   = errors.New("payload too large")
	ErrAssetWriteFailed  = errors.New("asset write failed")
	ErrAssetDeleteFailed = errors.New("asset delete failed")
)

// Error is a classified failure with a message safe to show to clients.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

func validationError(message string) *Error {
	return newError(ErrValidation, message, nil)
}

// KindOf returns the kind of err, or nil when err was not produced here.
func KindOf(err error) error {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	for _, kind := range []error{
		ErrValidation, ErrConflict, ErrUnauthorized, ErrNotFound,
		ErrPayloadTooLarge, ErrAssetWriteFailed, ErrAssetDeleteFailed,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Message returns the client-facing text of err.
func Message(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Message
	}
	return err.Error()
}
