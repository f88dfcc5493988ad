package model

import "time"

type SessionState string

const (
	SessionStatePending    SessionState = "pending"
	SessionStateScheduled  SessionState = "scheduled"
	SessionStateInProgress SessionState = "in_progress"
	SessionStateFinished   SessionState = "finished"
	SessionStateCancelled  SessionState = "cancelled"
)

// Valid reports whether s is one of the defined session states.
func (s SessionState) Valid() bool {
	switch s {
	case SessionStatePending, SessionStateScheduled, SessionStateInProgress,
		SessionStateFinished, SessionStateCancelled:
		return true
	}
	return false
}

type TutoringSession struct {
	ID          int64        `json:"id"`
	TutorID     int64        `json:"tutor_id"`
	SubjectID   int64        `json:"subject_id"`
	Modality    string       `json:"modality"`
	Location    string       `json:"location"`
	Description string       `json:"description"`
	State       SessionState `json:"state"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Loaded on demand, not always populated.
	Slots []*AvailabilitySlot `json:"slots,omitempty"`
}
