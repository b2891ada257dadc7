package receipt

import (
	"errors"
	"fmt"
)

// Kind classifies domain failures for the HTTP boundary.
type Kind string

const (
	KindValidation Kind = "validation"
	KindDuplicate  Kind = "duplicate"
	KindNotFound   Kind = "not_found"
)

// ClassifiedError is a domain error that knows its Kind.
type ClassifiedError interface {
	error
	Kind() Kind
}

// KindOf finds the first classified error in err's chain.
func KindOf(err error) (ClassifiedError, bool) {
	var classified ClassifiedError
	if errors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

// ValidationError reports input that reached the core but cannot form a receipt.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Kind implements the classified error contract.
func (e *ValidationError) Kind() Kind { return KindValidation }

func invalid(reason string, err error) *ValidationError {
	return &ValidationError{Reason: reason, Err: err}
}

// DuplicateError is returned when a receipt with the same identity key is already stored.
type DuplicateError struct {
	Key IdentityKey
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Provided receipt is duplicate: %s", e.Key)
}

// Kind implements the classified error contract.
func (e *DuplicateError) Kind() Kind { return KindDuplicate }

// NotFoundError is returned for lookups of unknown ids.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("No receipt found with id=%s", e.ID)
}

// Kind implements the classified error contract.
func (e *NotFoundError) Kind() Kind { return KindNotFound }
