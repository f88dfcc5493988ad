package service

import (
	"context"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
	"go.uber.org/zap"
)

// ReservationService is the booking engine: it creates, cancels, completes
// and deletes reservations against a slot, keeping the slot's capacity
// counter in lockstep with the number of active reservations.
type ReservationService struct {
	store     Store
	directory IdentityDirectory
	meetings  MeetingScheduler

	// quantum is the fixed duration every reservation sub-window must
	// have.
	quantum time.Duration

	logger *zap.Logger
}

func NewReservationService(
	store Store,
	directory IdentityDirectory,
	meetings MeetingScheduler,
	quantum time.Duration,
	logger *zap.Logger,
) *ReservationService {
	return &ReservationService{
		store:     store,
		directory: directory,
		meetings:  meetings,
		quantum:   quantum,
		logger:    logger,
	}
}

// Create books a sub-window of a slot for a student. The capacity check
// and decrement run under the slot's row lock so concurrent requests
// cannot oversell the slot. Checks run in a fixed order and the first
// failing one wins.
func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var (
		reservation *model.Reservation
		sessionID   int64
	)

	err := s.store.InTx(ctx, func(st Store) error {
		slot, err := st.GetSlotForUpdate(ctx, in.SlotID)
		if err != nil {
			return err
		}
		if slot == nil {
			return &NotFoundError{Entity: "slot", ID: in.SlotID}
		}
		if slot.Status != model.SlotStatusActive {
			return conflictf("slot %d is not open for booking (status %s)", slot.ID, slot.Status)
		}
		sessionID = slot.SessionID

		exists, err := s.directory.StudentExists(ctx, in.StudentID)
		if err != nil {
			return err
		}
		if !exists {
			return validationf("student %d does not exist", in.StudentID)
		}

		if in.EndsAt.Sub(in.StartsAt) != s.quantum {
			return validationf(
				"reservation window must last exactly %s, got %s",
				s.quantum, in.EndsAt.Sub(in.StartsAt),
			)
		}

		if in.StartsAt.Before(slot.StartsAt) || slot.EndsAt.Before(in.EndsAt) {
			return validationf(
				"reservation window %s-%s is outside slot window %s-%s",
				in.StartsAt.Format(time.RFC3339), in.EndsAt.Format(time.RFC3339),
				slot.StartsAt.Format(time.RFC3339), slot.EndsAt.Format(time.RFC3339),
			)
		}

		if slot.CapacityAvailable <= 0 {
			return &CapacityExhaustedError{SlotID: slot.ID}
		}

		duplicate, err := st.HasActiveReservation(ctx, slot.ID, in.StudentID, in.StartsAt)
		if err != nil {
			return err
		}
		if duplicate {
			return conflictf(
				"student %d already has an active reservation on slot %d at %s",
				in.StudentID, slot.ID, in.StartsAt.Format(time.RFC3339),
			)
		}

		reservation = &model.Reservation{
			SlotID:       slot.ID,
			StudentID:    in.StudentID,
			State:        model.ReservationStateActive,
			StartsAt:     in.StartsAt,
			EndsAt:       in.EndsAt,
			Modality:     in.Modality,
			Observations: in.Observations,
		}
		if err := st.CreateReservation(ctx, reservation); err != nil {
			return err
		}

		return st.AdjustSlotCapacity(ctx, slot.ID, -1)
	})
	if err != nil {
		return nil, err
	}

	s.attachMeetingLink(ctx, sessionID, reservation)

	s.logger.Info("Reservation created",
		zap.Int64("reservation_id", reservation.ID),
		zap.Int64("slot_id", reservation.SlotID),
		zap.Int64("student_id", reservation.StudentID),
		zap.Time("starts_at", reservation.StartsAt),
	)

	return reservation, nil
}

// attachMeetingLink asks the meeting collaborator for a room link, best
// effort: any failure is logged and the reservation stays without a link.
func (s *ReservationService) attachMeetingLink(ctx context.Context, sessionID int64, res *model.Reservation) {
	if s.meetings == nil {
		return
	}

	link, err := s.meetings.ScheduleMeeting(ctx, MeetingRequest{
		SessionID:     sessionID,
		SlotID:        res.SlotID,
		ReservationID: res.ID,
		StudentID:     res.StudentID,
		StartsAt:      res.StartsAt,
		EndsAt:        res.EndsAt,
		Modality:      res.Modality,
	})
	if err != nil {
		s.logger.Warn("Meeting link creation failed, reservation kept without link",
			zap.Int64("reservation_id", res.ID),
			zap.Error(err),
		)
		return
	}
	if link == "" {
		return
	}

	res.MeetingLink = &link
	if err := s.store.UpdateReservation(ctx, res); err != nil {
		s.logger.Warn("Failed to store meeting link",
			zap.Int64("reservation_id", res.ID),
			zap.Error(err),
		)
		res.MeetingLink = nil
	}
}

// Cancel releases the seat held by an active reservation. Cancelling a
// reservation that is not active is a state transition error.
func (s *ReservationService) Cancel(ctx context.Context, id int64, reason string) (*model.Reservation, error) {
	var cancelled *model.Reservation

	err := s.store.InTx(ctx, func(st Store) error {
		res, err := st.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res == nil {
			return &NotFoundError{Entity: "reservation", ID: id}
		}
		if res.State != model.ReservationStateActive {
			return &StateTransitionError{Entity: "reservation", ID: id, State: string(res.State), Op: "cancel"}
		}

		now := time.Now()
		res.State = model.ReservationStateCancelled
		res.CancellationReason = &reason
		res.CancelledAt = &now

		if err := st.UpdateReservation(ctx, res); err != nil {
			return err
		}
		if err := st.AdjustSlotCapacity(ctx, res.SlotID, +1); err != nil {
			return err
		}

		cancelled = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation cancelled",
		zap.Int64("reservation_id", id),
		zap.String("reason", reason),
	)

	return cancelled, nil
}

// MarkCompleted transitions an active reservation to Completed. The seat
// stays consumed: the student attended the session.
func (s *ReservationService) MarkCompleted(ctx context.Context, id int64) (*model.Reservation, error) {
	return s.finish(ctx, id, model.ReservationStateCompleted, "complete")
}

// MarkNoShow transitions an active reservation to NoShow. The seat stays
// consumed: it was held for the session's whole duration.
func (s *ReservationService) MarkNoShow(ctx context.Context, id int64) (*model.Reservation, error) {
	return s.finish(ctx, id, model.ReservationStateNoShow, "mark no-show for")
}

func (s *ReservationService) finish(ctx context.Context, id int64, target model.ReservationState, op string) (*model.Reservation, error) {
	var finished *model.Reservation

	err := s.store.InTx(ctx, func(st Store) error {
		res, err := st.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res == nil {
			return &NotFoundError{Entity: "reservation", ID: id}
		}
		if res.State != model.ReservationStateActive {
			return &StateTransitionError{Entity: "reservation", ID: id, State: string(res.State), Op: op}
		}

		res.State = target
		if err := st.UpdateReservation(ctx, res); err != nil {
			return err
		}

		finished = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation finished",
		zap.Int64("reservation_id", id),
		zap.String("state", string(target)),
	)

	return finished, nil
}

// Delete removes the reservation record. An active reservation releases
// its seat first so deletion never leaks held capacity.
func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	err := s.store.InTx(ctx, func(st Store) error {
		res, err := st.GetReservationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if res == nil {
			return &NotFoundError{Entity: "reservation", ID: id}
		}

		if res.State == model.ReservationStateActive {
			if err := st.AdjustSlotCapacity(ctx, res.SlotID, +1); err != nil {
				return err
			}
		}

		return st.DeleteReservation(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Reservation deleted", zap.Int64("reservation_id", id))

	return nil
}

// UpdateObservations replaces the free-form notes on a reservation.
func (s *ReservationService) UpdateObservations(ctx context.Context, id int64, observations string) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &NotFoundError{Entity: "reservation", ID: id}
	}

	res.Observations = observations
	if err := s.store.UpdateReservation(ctx, res); err != nil {
		return nil, err
	}

	return res, nil
}

// Get returns the reservation.
func (s *ReservationService) Get(ctx context.Context, id int64) (*model.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &NotFoundError{Entity: "reservation", ID: id}
	}
	return res, nil
}

// ListBySlot returns every reservation on the slot.
func (s *ReservationService) ListBySlot(ctx context.Context, slotID int64) ([]*model.Reservation, error) {
	return s.store.ListReservationsBySlot(ctx, slotID)
}

// ListByStudent returns every reservation of the student.
func (s *ReservationService) ListByStudent(ctx context.Context, studentID int64) ([]*model.Reservation, error) {
	return s.store.ListReservationsByStudent(ctx, studentID)
}
