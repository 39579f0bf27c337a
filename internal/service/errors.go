package service

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Sentinel kinds; handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidState  = errors.New("invalid state transition")
	ErrRateLimited   = errors.New("rate limited")
)

// ValidationError carries a single human-readable message
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// kindError keeps the message verbatim while matching its sentinel kind
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

// RateLimitError tells the caller when to retry
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string { return e.Message }

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func notFound(msg string) error { return &kindError{kind: ErrNotFound, msg: msg} }

func alreadyExists(msg string) error { return &kindError{kind: ErrAlreadyExists, msg: msg} }

func unauthorized(msg string) error { return &kindError{kind: ErrUnauthorized, msg: msg} }

func forbidden(msg string) error { return &kindError{kind: ErrForbidden, msg: msg} }

func invalidState(msg string) error { return &kindError{kind: ErrInvalidState, msg: msg} }

// lookupErr turns a missing row into ErrNotFound and passes other failures through.
func lookupErr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(msg)
	}
	return err
}

// writeErr turns a unique-index violation into ErrAlreadyExists.
func writeErr(err error, duplicateMsg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return alreadyExists(duplicateMsg)
	}
	return err
}
