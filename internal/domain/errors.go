/**
 * @description
 * This file defines the typed business-rule failures shared across the service. Every
 * mutating operation returns one of these (or wraps one) instead of a generic error
 * string, so callers and the API layer can distinguish "retry", "refresh" and
 * "abandon" situations. Only infrastructure failures fall outside this taxonomy.
 */

package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAvailable is returned when a worker is already claimed by someone else.
	ErrNotAvailable = errors.New("worker is not available")
	// ErrNotProcessable is returned when an entity is not in a state that accepts
	// the requested action.
	ErrNotProcessable = errors.New("entity is not in a processable state")
	// ErrExpired is returned when a time-boxed entity is past its deadline.
	ErrExpired = errors.New("entity has expired")
	// ErrAlreadyExists is returned when an idempotency guard trips, e.g. a second
	// contract for the same reservation.
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrTooManyAttempts is returned when the OTP attempt cap is exceeded.
	ErrTooManyAttempts = errors.New("too many attempts")
	// ErrRateLimited is returned when OTP dispatch is throttled for a subject.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidCode is returned on an OTP mismatch.
	ErrInvalidCode = errors.New("invalid code")
	// ErrUnauthorized is returned when the actor does not own or administer the entity.
	ErrUnauthorized = errors.New("actor is not authorized for this entity")
	// ErrNotFound is returned when the referenced entity does not exist.
	ErrNotFound = errors.New("entity not found")
)

// InvalidTransitionError reports a status-graph violation, naming the attempted pair.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition %s from %s to %s", e.Entity, e.From, e.To)
}

// NewInvalidTransition builds an InvalidTransitionError for the given entity and pair.
func NewInvalidTransition(entity, from, to string) *InvalidTransitionError {
	return &InvalidTransitionError{Entity: entity, From: from, To: to}
}

// ValidationError reports malformed input with field-level detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidation builds a ValidationError.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
