package service

import (
	"context"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
)

// SessionStore persists tutoring sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *model.TutoringSession) error
	GetSession(ctx context.Context, id int64) (*model.TutoringSession, error)
	// SetSessionState writes the state unconditionally.
	SetSessionState(ctx context.Context, id int64, state model.SessionState) error
	// SetSessionStateReconciled writes the state only if the stored state
	// is neither Cancelled nor already equal to it. Reports whether a row
	// was written.
	SetSessionStateReconciled(ctx context.Context, id int64, state model.SessionState) (bool, error)
	UpdateSessionDetails(ctx context.Context, id int64, description, location *string) error
	// ListSessionsForReconcile returns every session whose state is not
	// Cancelled.
	ListSessionsForReconcile(ctx context.Context) ([]*model.TutoringSession, error)
	DeleteSession(ctx context.Context, id int64) error
}

// SlotStore persists availability slots.
type SlotStore interface {
	CreateSlot(ctx context.Context, slot *model.AvailabilitySlot) error
	GetSlot(ctx context.Context, id int64) (*model.AvailabilitySlot, error)
	// GetSlotForUpdate locks the slot row for the duration of the
	// enclosing transaction.
	GetSlotForUpdate(ctx context.Context, id int64) (*model.AvailabilitySlot, error)
	ListSlotsBySession(ctx context.Context, sessionID int64) ([]*model.AvailabilitySlot, error)
	// ListActiveSlotsOverlapping returns the tutor's active slots whose
	// half-open [starts_at, ends_at) interval intersects [start, end).
	ListActiveSlotsOverlapping(ctx context.Context, tutorID int64, start, end time.Time) ([]*model.AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, slot *model.AvailabilitySlot) error
	AdjustSlotCapacity(ctx context.Context, id int64, delta int) error
	DeleteSlot(ctx context.Context, id int64) error
}

// ReservationStore persists reservations.
type ReservationStore interface {
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id int64) (*model.Reservation, error)
	GetReservationForUpdate(ctx context.Context, id int64) (*model.Reservation, error)
	ListReservationsBySlot(ctx context.Context, slotID int64) ([]*model.Reservation, error)
	ListReservationsByStudent(ctx context.Context, studentID int64) ([]*model.Reservation, error)
	CountActiveReservations(ctx context.Context, slotID int64) (int, error)
	// HasActiveReservation reports whether the student already holds an
	// active reservation on the slot for the same sub-window start.
	HasActiveReservation(ctx context.Context, slotID, studentID int64, startsAt time.Time) (bool, error)
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id int64) error
	DeleteReservationsBySlot(ctx context.Context, slotID int64) (int64, error)
}

// Store aggregates the entity stores with transactional execution. Methods
// called on the Store passed to an InTx callback run inside one
// transaction; a returned error rolls everything back.
type Store interface {
	SessionStore
	SlotStore
	ReservationStore
	InTx(ctx context.Context, fn func(Store) error) error
}
