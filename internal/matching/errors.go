package matching

import (
	"errors"
	"fmt"
)

// Sentinel errors for the matching and propagation layer. Callers classify
// failures with errors.Is against these.
var (
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("entity not found")
	// ErrValidation marks rejected input (bad status value, missing field).
	ErrValidation = errors.New("validation failed")
	// ErrPersistence marks a database read or write failure.
	ErrPersistence = errors.New("persistence failure")
)

// DomainError wraps a sentinel with the entity and operation that failed.
type DomainError struct {
	Entity  string // "candidate", "job", "interview"
	Op      string // operation name, e.g. "UpdateOne"
	BaseErr error  // one of the sentinels above
	Detail  string // human-readable context
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %v: %s", e.Entity, e.Op, e.BaseErr, e.Detail)
	}
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Op, e.BaseErr)
}

func (e *DomainError) Unwrap() error {
	return e.BaseErr
}

func (e *DomainError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewDomainError builds a DomainError; detail is formatted with args.
func NewDomainError(entity, op string, base error, detail string, args ...interface{}) *DomainError {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &DomainError{Entity: entity, Op: op, BaseErr: base, Detail: detail}
}
