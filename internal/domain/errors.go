package domain

import (
	"errors"
	"fmt"
	"strings"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationErrors collects every failing field of one request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation error"
	}
	parts := make([]string, 0, len(e))
	for _, v := range e {
		parts = append(parts, v.Error())
	}
	return strings.Join(parts, "; ")
}

// Fields returns field -> message, the shape sent back to clients.
func (e ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(e))
	for _, v := range e {
		key := v.Field
		if key == "" {
			key = "_"
		}
		out[key] = v.Msg
	}
	return out
}

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// Reasons reported per seat when a ledger transition is refused.
const (
	ReasonNotFound      = "not_found"
	ReasonWrongSchedule = "wrong_schedule"
	ReasonBooked        = "booked"
	ReasonLockedByOther = "locked_by_other"
	ReasonNotLocked     = "not_locked"
	ReasonLockExpired   = "lock_expired"
	ReasonRaced         = "modified_concurrently"
)

type SeatFailure struct {
	SeatID int64  `json:"seatId"`
	Reason string `json:"reason"`
}

// SeatConflictError is returned when a seat set cannot move as a whole.
// No seat of the set was mutated.
type SeatConflictError struct {
	Failed []SeatFailure
}

func (e SeatConflictError) Error() string {
	if len(e.Failed) == 1 {
		return fmt.Sprintf("seat %d unavailable: %s", e.Failed[0].SeatID, e.Failed[0].Reason)
	}
	return fmt.Sprintf("%d seats unavailable", len(e.Failed))
}

type PaymentError struct {
	Msg string
	Err error
}

func (e PaymentError) Error() string {
	if e.Msg != "" {
		return "payment declined: " + e.Msg
	}
	return "payment declined"
}

func (e PaymentError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Msg string
}

func (e ForbiddenError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "forbidden"
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var single ValidationError
	if errors.As(err, &single) {
		return true
	}
	var many ValidationErrors
	return errors.As(err, &many)
}

func IsConflict(err error) bool {
	var target ConflictError
	if errors.As(err, &target) {
		return true
	}
	var seats SeatConflictError
	return errors.As(err, &seats)
}

func IsPayment(err error) bool {
	var target PaymentError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

// SeatFailures extracts the per-seat detail of a SeatConflictError, if any.
func SeatFailures(err error) []SeatFailure {
	var target SeatConflictError
	if errors.As(err, &target) {
		return target.Failed
	}
	return nil
}

// FieldErrors extracts field-level detail of a validation failure, if any.
func FieldErrors(err error) map[string]string {
	var many ValidationErrors
	if errors.As(err, &many) {
		return many.Fields()
	}
	var single ValidationError
	if errors.As(err, &single) {
		return ValidationErrors{single}.Fields()
	}
	return nil
}
