package services

import (
	"errors"
	"fmt"
)

// The fulfillment engine classifies every caller-visible failure into one
// of three kinds so clients can tell "fix your input" (InvalidArgument)
// apart from "refresh and reconsider" (InvalidState) and plain missing
// references (NotFound). Anything else is an internal error.

// NotFoundError reports that a referenced entity does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// NewNotFoundError creates a NotFoundError for the given resource
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidArgumentError reports malformed or semantically invalid input.
// The whole call is rejected; nothing was applied.
type InvalidArgumentError struct {
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return e.Reason
}

// NewInvalidArgumentError creates an InvalidArgumentError
func NewInvalidArgumentError(format string, args ...interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{Reason: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports that the operation is not legal in the
// entity's current lifecycle state: wrong status, insufficient stock, a
// lost concurrency race, or an approval gated on unfinished fulfillment.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string {
	return e.Reason
}

// NewInvalidStateError creates an InvalidStateError
func NewInvalidStateError(format string, args ...interface{}) *InvalidStateError {
	return &InvalidStateError{Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsInvalidArgument reports whether err is an InvalidArgumentError
func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return errors.As(err, &target)
}

// IsInvalidState reports whether err is an InvalidStateError
func IsInvalidState(err error) bool {
	var target *InvalidStateError
	return errors.As(err, &target)
}
