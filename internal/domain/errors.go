package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing ticket, notification or setting.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks an illegal status change or a failed operation precondition.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict marks a lost optimistic-concurrency race. Callers may retry.
	ErrConflict = errors.New("concurrent modification")
	// ErrValidation marks malformed input.
	ErrValidation = errors.New("validation failed")
)

// TransitionError describes a rejected ticket status change.
type TransitionError struct {
	Op   string
	From TicketStatus
	To   TicketStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move ticket from %s to %s", e.Op, e.From, e.To)
}

// Is lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// Is lets errors.Is match ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFound builds a NotFoundError.
func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}
