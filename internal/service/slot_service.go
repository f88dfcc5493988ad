package service

import (
	"context"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
	"go.uber.org/zap"
)

// SlotService manages availability slots.
type SlotService struct {
	store     Store
	conflicts *ConflictChecker

	// cancelCascade cancels a slot's active reservations together with
	// the slot. Off by default: students keep their booking
	// administratively until it is cancelled explicitly.
	cancelCascade bool

	logger *zap.Logger
}

func NewSlotService(store Store, conflicts *ConflictChecker, cancelCascade bool, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:         store,
		conflicts:     conflicts,
		cancelCascade: cancelCascade,
		logger:        logger,
	}
}

func validateSpec(spec SlotSpec) error {
	if spec.CapacityMax < 1 {
		return validationf("capacity must be at least 1, got %d", spec.CapacityMax)
	}
	if !spec.StartsAt.Before(spec.EndsAt) {
		return validationf(
			"slot start %s must be before end %s",
			spec.StartsAt.Format(time.RFC3339), spec.EndsAt.Format(time.RFC3339),
		)
	}
	return nil
}

// Create validates and persists one slot under an existing session.
func (s *SlotService) Create(ctx context.Context, in CreateSlotInput) (*model.AvailabilitySlot, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := validateSpec(in.SlotSpec); err != nil {
		return nil, err
	}

	session, err := s.store.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, validationf("session %d does not exist", in.SessionID)
	}

	if err := s.conflicts.CheckAgainstSchedule(ctx, session.TutorID, in.StartsAt, in.EndsAt, 0); err != nil {
		return nil, err
	}

	slot := &model.AvailabilitySlot{
		SessionID:         in.SessionID,
		TutorID:           session.TutorID,
		StartsAt:          in.StartsAt,
		EndsAt:            in.EndsAt,
		CapacityMax:       in.CapacityMax,
		CapacityAvailable: in.CapacityMax,
		Status:            model.SlotStatusActive,
	}

	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("session_id", slot.SessionID),
		zap.Time("starts_at", slot.StartsAt),
		zap.Int("capacity", slot.CapacityMax),
	)

	return slot, nil
}

// Get returns the slot.
func (s *SlotService) Get(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	slot, err := s.store.GetSlot(ctx, id)
	if err != nil {
		return nil, err
	}
	if slot == nil {
		return nil, &NotFoundError{Entity: "slot", ID: id}
	}
	return slot, nil
}

// ListBySession returns every slot owned by the session.
func (s *SlotService) ListBySession(ctx context.Context, sessionID int64) ([]*model.AvailabilitySlot, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}
	return s.store.ListSlotsBySession(ctx, sessionID)
}

// Update patches a slot's window, capacity or active/inactive status.
// Cancelled slots cannot be updated.
func (s *SlotService) Update(ctx context.Context, id int64, in UpdateSlotInput) (*model.AvailabilitySlot, error) {
	var updated *model.AvailabilitySlot

	err := s.store.InTx(ctx, func(st Store) error {
		slot, err := st.GetSlotForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return &NotFoundError{Entity: "slot", ID: id}
		}
		if slot.Status == model.SlotStatusCancelled {
			return &StateTransitionError{Entity: "slot", ID: id, State: string(slot.Status), Op: "update"}
		}

		windowChanged := false
		if in.StartsAt != nil {
			slot.StartsAt = *in.StartsAt
			windowChanged = true
		}
		if in.EndsAt != nil {
			slot.EndsAt = *in.EndsAt
			windowChanged = true
		}
		if !slot.StartsAt.Before(slot.EndsAt) {
			return validationf(
				"slot start %s must be before end %s",
				slot.StartsAt.Format(time.RFC3339), slot.EndsAt.Format(time.RFC3339),
			)
		}

		if in.CapacityMax != nil {
			consumed := slot.CapacityMax - slot.CapacityAvailable
			if *in.CapacityMax < 1 {
				return validationf("capacity must be at least 1, got %d", *in.CapacityMax)
			}
			if *in.CapacityMax < consumed {
				return validationf("capacity %d is below the %d seats already reserved", *in.CapacityMax, consumed)
			}
			slot.CapacityMax = *in.CapacityMax
			slot.CapacityAvailable = *in.CapacityMax - consumed
		}

		becameActive := false
		if in.Inactive != nil {
			if *in.Inactive {
				slot.Status = model.SlotStatusInactive
			} else {
				becameActive = slot.Status == model.SlotStatusInactive
				slot.Status = model.SlotStatusActive
			}
		}

		// An active slot entering the schedule, through a window move or
		// a reactivation, must not overlap another active slot of the
		// tutor.
		if slot.Status == model.SlotStatusActive && (windowChanged || becameActive) {
			overlapping, err := st.ListActiveSlotsOverlapping(ctx, slot.TutorID, slot.StartsAt, slot.EndsAt)
			if err != nil {
				return err
			}
			for _, other := range overlapping {
				if other.ID == slot.ID {
					continue
				}
				return &ConflictError{
					Reason:            "slot window overlaps an existing active slot of the tutor",
					ConflictingSlotID: other.ID,
				}
			}
		}

		// The window may not shrink past a seat already sold: every
		// active reservation's sub-window stays inside the slot.
		if windowChanged {
			reservations, err := st.ListReservationsBySlot(ctx, slot.ID)
			if err != nil {
				return err
			}
			for _, res := range reservations {
				if res.State != model.ReservationStateActive {
					continue
				}
				if res.StartsAt.Before(slot.StartsAt) || slot.EndsAt.Before(res.EndsAt) {
					return validationf(
						"new window %s-%s leaves active reservation %d (%s-%s) outside the slot",
						slot.StartsAt.Format(time.RFC3339), slot.EndsAt.Format(time.RFC3339),
						res.ID,
						res.StartsAt.Format(time.RFC3339), res.EndsAt.Format(time.RFC3339),
					)
				}
			}
		}

		if err := st.UpdateSlot(ctx, slot); err != nil {
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot updated", zap.Int64("slot_id", id))

	return updated, nil
}

// Cancel marks the slot cancelled with a reason. Cancelling twice is a
// conflict. Reservations follow only when the cascade policy is on.
func (s *SlotService) Cancel(ctx context.Context, id int64, reason string) (*model.AvailabilitySlot, error) {
	var cancelled *model.AvailabilitySlot
	var cascaded int

	err := s.store.InTx(ctx, func(st Store) error {
		slot, err := st.GetSlotForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return &NotFoundError{Entity: "slot", ID: id}
		}
		if slot.Status == model.SlotStatusCancelled {
			return conflictf("slot %d is already cancelled", id)
		}

		slot.Status = model.SlotStatusCancelled
		slot.CancellationReason = &reason

		if s.cancelCascade {
			reservations, err := st.ListReservationsBySlot(ctx, id)
			if err != nil {
				return err
			}
			now := time.Now()
			for _, res := range reservations {
				if res.State != model.ReservationStateActive {
					continue
				}
				res.State = model.ReservationStateCancelled
				res.CancellationReason = &reason
				res.CancelledAt = &now
				if err := st.UpdateReservation(ctx, res); err != nil {
					return err
				}
				slot.CapacityAvailable++
				cascaded++
			}
		}

		if err := st.UpdateSlot(ctx, slot); err != nil {
			return err
		}
		cancelled = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot cancelled",
		zap.Int64("slot_id", id),
		zap.String("reason", reason),
		zap.Int("reservations_cascaded", cascaded),
	)

	return cancelled, nil
}

// Delete removes the slot and its reservations in one transaction,
// releasing nothing: the rows are gone, children first.
func (s *SlotService) Delete(ctx context.Context, id int64) error {
	var removedReservations int64

	err := s.store.InTx(ctx, func(st Store) error {
		slot, err := st.GetSlotForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if slot == nil {
			return &NotFoundError{Entity: "slot", ID: id}
		}

		removedReservations, err = st.DeleteReservationsBySlot(ctx, id)
		if err != nil {
			return err
		}
		return st.DeleteSlot(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", id),
		zap.Int64("reservations_removed", removedReservations),
	)

	return nil
}
