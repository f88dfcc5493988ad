package model

import "time"

type ReservationState string

const (
	ReservationStateActive    ReservationState = "active"
	ReservationStateCancelled ReservationState = "cancelled"
	ReservationStateCompleted ReservationState = "completed"
	ReservationStateNoShow    ReservationState = "no_show"
)

// Valid reports whether s is one of the defined reservation states.
func (s ReservationState) Valid() bool {
	switch s {
	case ReservationStateActive, ReservationStateCancelled,
		ReservationStateCompleted, ReservationStateNoShow:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
// Active is the only non-terminal state.
func (s ReservationState) Terminal() bool {
	return s != ReservationStateActive
}

// Reservation is a student's booking of a fixed-duration sub-window
// inside an availability slot.
type Reservation struct {
	ID                 int64            `json:"id"`
	SlotID             int64            `json:"slot_id"`
	StudentID          int64            `json:"student_id"`
	State              ReservationState `json:"state"`
	StartsAt           time.Time        `json:"starts_at"`
	EndsAt             time.Time        `json:"ends_at"`
	Modality           string           `json:"modality"`
	MeetingLink        *string          `json:"meeting_link"`
	Observations       string           `json:"observations"`
	CancellationReason *string          `json:"cancellation_reason"`
	CreatedAt          time.Time        `json:"created_at"`
	CancelledAt        *time.Time       `json:"cancelled_at"`
}
