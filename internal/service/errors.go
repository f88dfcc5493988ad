package service

import "fmt"

// ValidationError reports malformed or out-of-range input: bad duration,
// non-existent foreign key, zero or negative capacity.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ConflictError reports schedule overlaps, duplicate bookings and
// double-cancels. ConflictingSlotID is set when a schedule overlap caused
// the conflict, for diagnostics.
type ConflictError struct {
	Reason            string
	ConflictingSlotID int64
}

func (e *ConflictError) Error() string { return e.Reason }

func conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports an unknown slot, reservation or session id.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// CapacityExhaustedError reports a slot with no seats left.
type CapacityExhaustedError struct {
	SlotID int64
}

func (e *CapacityExhaustedError) Error() string {
	return fmt.Sprintf("slot %d has no seats available", e.SlotID)
}

// StateTransitionError reports an operation that is invalid for the
// entity's current state.
type StateTransitionError struct {
	Entity string
	ID     int64
	State  string
	Op     string
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s %s %d in state %q", e.Op, e.Entity, e.ID, e.State)
}
