package service

import (
	"context"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
	"go.uber.org/zap"
)

// SessionService orchestrates tutoring sessions and their slot sets:
// create with slots, replace slots, cascade delete, manual cancellation.
type SessionService struct {
	store     Store
	directory IdentityDirectory
	catalog   SubjectCatalog
	conflicts *ConflictChecker
	logger    *zap.Logger
}

func NewSessionService(
	store Store,
	directory IdentityDirectory,
	catalog SubjectCatalog,
	conflicts *ConflictChecker,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		store:     store,
		directory: directory,
		catalog:   catalog,
		conflicts: conflicts,
		logger:    logger,
	}
}

// validateSlotSpecs checks each candidate in isolation, against its batch
// siblings and against the tutor's persisted schedule. Slots owned by
// excludeSessionID are ignored during the persisted check.
func (s *SessionService) validateSlotSpecs(ctx context.Context, tutorID int64, specs []SlotSpec, excludeSessionID int64) error {
	for _, spec := range specs {
		if err := validateSpec(spec); err != nil {
			return err
		}
	}

	if err := s.conflicts.CheckBatch(specs); err != nil {
		return err
	}

	for _, spec := range specs {
		if err := s.conflicts.CheckAgainstSchedule(ctx, tutorID, spec.StartsAt, spec.EndsAt, excludeSessionID); err != nil {
			return err
		}
	}

	return nil
}

// CreateWithSlots creates a session and its initial slot set in one
// transaction. Any conflict aborts with no partial writes.
func (s *SessionService) CreateWithSlots(ctx context.Context, in CreateSessionInput) (*model.TutoringSession, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	exists, err := s.directory.TutorExists(ctx, in.TutorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, validationf("tutor %d does not exist", in.TutorID)
	}

	exists, err = s.catalog.SubjectExists(ctx, in.SubjectID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, validationf("subject %d does not exist", in.SubjectID)
	}

	if err := s.validateSlotSpecs(ctx, in.TutorID, in.Slots, 0); err != nil {
		return nil, err
	}

	session := &model.TutoringSession{
		TutorID:     in.TutorID,
		SubjectID:   in.SubjectID,
		Modality:    in.Modality,
		Location:    in.Location,
		Description: in.Description,
		State:       model.SessionStatePending,
	}

	err = s.store.InTx(ctx, func(st Store) error {
		if err := st.CreateSession(ctx, session); err != nil {
			return err
		}

		for _, spec := range in.Slots {
			slot := &model.AvailabilitySlot{
				SessionID:         session.ID,
				TutorID:           session.TutorID,
				StartsAt:          spec.StartsAt,
				EndsAt:            spec.EndsAt,
				CapacityMax:       spec.CapacityMax,
				CapacityAvailable: spec.CapacityMax,
				Status:            model.SlotStatusActive,
			}
			if err := st.CreateSlot(ctx, slot); err != nil {
				return err
			}
			session.Slots = append(session.Slots, slot)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session created",
		zap.Int64("session_id", session.ID),
		zap.Int64("tutor_id", session.TutorID),
		zap.Int("slots", len(session.Slots)),
	)

	return session, nil
}

// ReplaceSlots deletes the session's current slots (reservations first)
// and creates the new set, all or nothing.
func (s *SessionService) ReplaceSlots(ctx context.Context, sessionID int64, specs []SlotSpec) ([]*model.AvailabilitySlot, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}

	if err := s.validateSlotSpecs(ctx, session.TutorID, specs, sessionID); err != nil {
		return nil, err
	}

	var created []*model.AvailabilitySlot
	var removedSlots, removedReservations int64

	err = s.store.InTx(ctx, func(st Store) error {
		current, err := st.ListSlotsBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		for _, slot := range current {
			n, err := st.DeleteReservationsBySlot(ctx, slot.ID)
			if err != nil {
				return err
			}
			removedReservations += n
		}
		for _, slot := range current {
			if err := st.DeleteSlot(ctx, slot.ID); err != nil {
				return err
			}
			removedSlots++
		}

		for _, spec := range specs {
			slot := &model.AvailabilitySlot{
				SessionID:         sessionID,
				TutorID:           session.TutorID,
				StartsAt:          spec.StartsAt,
				EndsAt:            spec.EndsAt,
				CapacityMax:       spec.CapacityMax,
				CapacityAvailable: spec.CapacityMax,
				Status:            model.SlotStatusActive,
			}
			if err := st.CreateSlot(ctx, slot); err != nil {
				return err
			}
			created = append(created, slot)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session slots replaced",
		zap.Int64("session_id", sessionID),
		zap.Int64("slots_removed", removedSlots),
		zap.Int64("reservations_removed", removedReservations),
		zap.Int("slots_created", len(created)),
	)

	return created, nil
}

// DeleteCascade removes the session and everything under it, children
// first: reservations, then slots, then the session itself.
func (s *SessionService) DeleteCascade(ctx context.Context, sessionID int64) error {
	var removedSlots, removedReservations int64

	err := s.store.InTx(ctx, func(st Store) error {
		session, err := st.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return &NotFoundError{Entity: "session", ID: sessionID}
		}

		slots, err := st.ListSlotsBySession(ctx, sessionID)
		if err != nil {
			return err
		}

		for _, slot := range slots {
			n, err := st.DeleteReservationsBySlot(ctx, slot.ID)
			if err != nil {
				return err
			}
			removedReservations += n
		}
		for _, slot := range slots {
			if err := st.DeleteSlot(ctx, slot.ID); err != nil {
				return err
			}
			removedSlots++
		}

		return st.DeleteSession(ctx, sessionID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Session deleted",
		zap.Int64("session_id", sessionID),
		zap.Int64("slots_removed", removedSlots),
		zap.Int64("reservations_removed", removedReservations),
	)

	return nil
}

// Cancel sets the sticky Cancelled state. The reconciler never overwrites
// it.
func (s *SessionService) Cancel(ctx context.Context, sessionID int64) error {
	err := s.store.InTx(ctx, func(st Store) error {
		session, err := st.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return &NotFoundError{Entity: "session", ID: sessionID}
		}
		if session.State == model.SessionStateCancelled {
			return conflictf("session %d is already cancelled", sessionID)
		}

		return st.SetSessionState(ctx, sessionID, model.SessionStateCancelled)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Session cancelled", zap.Int64("session_id", sessionID))

	return nil
}

// UpdateDetails updates the editable fields. Nil fields stay untouched.
func (s *SessionService) UpdateDetails(ctx context.Context, sessionID int64, description, location *string) (*model.TutoringSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}

	if err := s.store.UpdateSessionDetails(ctx, sessionID, description, location); err != nil {
		return nil, err
	}

	return s.Get(ctx, sessionID)
}

// Get returns the session with its slots loaded.
func (s *SessionService) Get(ctx context.Context, sessionID int64) (*model.TutoringSession, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, &NotFoundError{Entity: "session", ID: sessionID}
	}

	session.Slots, err = s.store.ListSlotsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return session, nil
}

// GetState returns the session's current lifecycle state.
func (s *SessionService) GetState(ctx context.Context, sessionID int64) (model.SessionState, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", &NotFoundError{Entity: "session", ID: sessionID}
	}
	return session.State, nil
}
