package service

import (
	"context"
	"time"
)

// IdentityDirectory answers existence checks against the user directory.
// Identity management itself lives outside this module.
type IdentityDirectory interface {
	StudentExists(ctx context.Context, id int64) (bool, error)
	TutorExists(ctx context.Context, id int64) (bool, error)
}

// SubjectCatalog answers existence checks against the subject catalog.
type SubjectCatalog interface {
	SubjectExists(ctx context.Context, id int64) (bool, error)
}

// MeetingRequest carries the booking details a meeting collaborator needs
// to provision a meeting room.
type MeetingRequest struct {
	SessionID     int64
	SlotID        int64
	ReservationID int64
	StudentID     int64
	StartsAt      time.Time
	EndsAt        time.Time
	Modality      string
}

// MeetingScheduler provisions a meeting link for a reservation. Calls are
// best effort: a failure is logged and leaves the reservation without a
// link, it never fails the booking.
type MeetingScheduler interface {
	ScheduleMeeting(ctx context.Context, req MeetingRequest) (string, error)
}
