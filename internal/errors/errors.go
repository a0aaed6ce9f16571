package errors

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnauthorized = errors.New("user is not authorized")
var ErrForbidden = errors.New("operation is forbidden for user")

var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("slot is not available for the requested window")
	ErrInvalidTransition = errors.New("invalid reservation status transition")
	ErrStaleConfirmation = errors.New("payment confirmation arrived after the hold expired")
	ErrValidation        = errors.New("validation failed")
)

// ConflictError carries the slot and window that could not be held so the
// client can offer an alternative.
type ConflictError struct {
	SlotID int64
	Start  time.Time
	End    time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("slot %d is not available for [%s, %s)",
		e.SlotID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// TransitionError describes a rejected state machine step.
type TransitionError struct {
	ReservationID int64
	From          string
	To            string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("reservation %d: cannot move from %s to %s", e.ReservationID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NotFound wraps ErrNotFound with the kind and id of the missing entity.
func NotFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}

// Validation wraps ErrValidation with a human readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
