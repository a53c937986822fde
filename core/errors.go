package core

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Kind classifies a failure so callers can branch on it without matching strings.
type Kind uint8

const (
	KindStorage Kind = iota // constraint violations, connectivity, anything unclassified
	KindUnauthorized
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "storage"
	}
}

// ErrUnauthorized is returned by every core operation reached without an authenticated identity.
var ErrUnauthorized = errors.New("unauthorized")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

// NotFoundError reports a referenced row that does not exist.
type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return err.Resource + " not found"
}

// KindOf returns the Kind of err, looking through pkg/errors wrapping.
func KindOf(err error) Kind {
	cause := errors.Cause(err)
	if cause == ErrUnauthorized {
		return KindUnauthorized
	}
	switch cause.(type) {
	case *ValidationError, validator.ValidationErrors:
		return KindValidation
	case *NotFoundError:
		return KindNotFound
	}
	return KindStorage
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
