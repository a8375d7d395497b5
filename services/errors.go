package services

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the four client-visible failure classes. Handlers map
// these to HTTP statuses; everything else is an infra error and surfaces as
// a generic 500.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrStateConflict = errors.New("state conflict")
	ErrUnauthorized  = errors.New("unauthorized")
)

// taggedError pairs a client-facing message with one of the sentinel kinds
// above, so errors.Is still classifies it while Error() stays readable.
type taggedError struct {
	msg  string
	kind error
}

func (e *taggedError) Error() string { return e.msg }
func (e *taggedError) Unwrap() error { return e.kind }

func notFound(msg string) error { return &taggedError{msg: msg, kind: ErrNotFound} }
func invalid(msg string) error  { return &taggedError{msg: msg, kind: ErrInvalidInput} }
func conflict(msg string) error { return &taggedError{msg: msg, kind: ErrStateConflict} }

func unauthorized(msg string) error { return &taggedError{msg: msg, kind: ErrUnauthorized} }

// AlreadyVerifiedError rejects a repeat verification. It carries the original
// redemption time so clients can show "already verified at <time>" instead of
// a bare conflict.
type AlreadyVerifiedError struct {
	VerifiedAt time.Time
}

func (e *AlreadyVerifiedError) Error() string {
	return fmt.Sprintf("token already verified at %s", e.VerifiedAt.Format(time.RFC3339))
}

func (e *AlreadyVerifiedError) Is(target error) bool {
	return target == ErrStateConflict
}
