package model

import "time"

type SlotStatus string

const (
	SlotStatusActive    SlotStatus = "active"
	SlotStatusInactive  SlotStatus = "inactive"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// Valid reports whether s is one of the defined slot statuses.
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusActive, SlotStatusInactive, SlotStatusCancelled:
		return true
	}
	return false
}

// AvailabilitySlot is a tutor-published block of time with a finite seat
// quota. TutorID is denormalized from the owning session so schedule
// conflicts can be checked without a join.
type AvailabilitySlot struct {
	ID                 int64      `json:"id"`
	SessionID          int64      `json:"session_id"`
	TutorID            int64      `json:"tutor_id"`
	StartsAt           time.Time  `json:"starts_at"`
	EndsAt             time.Time  `json:"ends_at"`
	CapacityMax        int        `json:"capacity_max"`
	CapacityAvailable  int        `json:"capacity_available"`
	Status             SlotStatus `json:"status"`
	CancellationReason *string    `json:"cancellation_reason"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Overlaps reports whether both half-open intervals [StartsAt, EndsAt)
// intersect. Touching endpoints do not overlap.
func (s *AvailabilitySlot) Overlaps(start, end time.Time) bool {
	return s.StartsAt.Before(end) && start.Before(s.EndsAt)
}
