package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
	"go.uber.org/zap"
)

// ErrReconcileInProgress is returned when a reconcile run is requested
// while another one is still executing. The run is skipped, not queued.
var ErrReconcileInProgress = errors.New("state reconcile already in progress")

// ReconcileSummary reports what one reconciler run did.
type ReconcileSummary struct {
	Examined int
	Updated  int
	Skipped  int
}

// StateService recomputes each session's lifecycle state from the wall
// clock and its slots. It is the only writer of the state besides manual
// cancellation, which always wins.
type StateService struct {
	store  Store
	logger *zap.Logger

	// now is swapped in tests.
	now func() time.Time

	gate sync.Mutex
}

func NewStateService(store Store, logger *zap.Logger) *StateService {
	return &StateService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// classifySlot places a slot relative to now: in progress inside the
// half-open window, future before it, past at or beyond its end.
type slotPhase int

const (
	phaseInProgress slotPhase = iota
	phaseFuture
	phasePast
)

func classifySlot(slot *model.AvailabilitySlot, now time.Time) slotPhase {
	switch {
	case !now.Before(slot.StartsAt) && now.Before(slot.EndsAt):
		return phaseInProgress
	case now.Before(slot.StartsAt):
		return phaseFuture
	default:
		return phasePast
	}
}

// ResolveSessionState derives a session state from its non-cancelled
// slots. First match wins: any slot in progress, then all past, then any
// future; otherwise Pending.
func ResolveSessionState(slots []*model.AvailabilitySlot, now time.Time) model.SessionState {
	var considered, past int
	var inProgress, future bool

	for _, slot := range slots {
		if slot.Status == model.SlotStatusCancelled {
			continue
		}
		considered++
		switch classifySlot(slot, now) {
		case phaseInProgress:
			inProgress = true
		case phaseFuture:
			future = true
		case phasePast:
			past++
		}
	}

	switch {
	case considered == 0:
		return model.SessionStatePending
	case inProgress:
		return model.SessionStateInProgress
	case past == considered:
		return model.SessionStateFinished
	case future:
		return model.SessionStateScheduled
	default:
		return model.SessionStatePending
	}
}

// Run recomputes the state of every non-cancelled session. A failure on
// one session is logged and skipped, the rest continue. Only one run
// executes at a time; a run requested while another is active returns
// ErrReconcileInProgress.
func (s *StateService) Run(ctx context.Context) (ReconcileSummary, error) {
	if !s.gate.TryLock() {
		return ReconcileSummary{}, ErrReconcileInProgress
	}
	defer s.gate.Unlock()

	sessions, err := s.store.ListSessionsForReconcile(ctx)
	if err != nil {
		return ReconcileSummary{}, err
	}

	now := s.now()
	summary := ReconcileSummary{Examined: len(sessions)}

	for _, session := range sessions {
		slots, err := s.store.ListSlotsBySession(ctx, session.ID)
		if err != nil {
			s.logger.Error("Failed to load slots, skipping session",
				zap.Int64("session_id", session.ID),
				zap.Error(err),
			)
			summary.Skipped++
			continue
		}

		next := ResolveSessionState(slots, now)
		if next == session.State {
			continue
		}

		// Conditional write: manual cancellation between the read
		// above and this write must win.
		written, err := s.store.SetSessionStateReconciled(ctx, session.ID, next)
		if err != nil {
			s.logger.Error("Failed to update session state, skipping",
				zap.Int64("session_id", session.ID),
				zap.Error(err),
			)
			summary.Skipped++
			continue
		}
		if written {
			summary.Updated++
			s.logger.Info("Session state updated",
				zap.Int64("session_id", session.ID),
				zap.String("from", string(session.State)),
				zap.String("to", string(next)),
			)
		}
	}

	s.logger.Info("State reconcile finished",
		zap.Int("examined", summary.Examined),
		zap.Int("updated", summary.Updated),
		zap.Int("skipped", summary.Skipped),
	)

	return summary, nil
}
