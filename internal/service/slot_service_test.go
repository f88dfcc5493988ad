package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
)

func seedSession(t *testing.T, store *memStore, tutorID int64) *model.TutoringSession {
	t.Helper()
	session := &model.TutoringSession{
		TutorID:   tutorID,
		SubjectID: 1,
		Modality:  "presencial",
		State:     model.SessionStatePending,
	}
	require.NoError(t, store.CreateSession(context.Background(), session))
	return session
}

func newSlotService(store *memStore, cascade bool) *SlotService {
	return NewSlotService(store, NewConflictChecker(store), cascade, zap.NewNop())
}

func TestSlotCreate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newSlotService(store, false)
	session := seedSession(t, store, 1)

	t.Run("initializes full capacity", func(t *testing.T) {
		slot, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: at(9, 0), EndsAt: at(10, 0), CapacityMax: 3},
		})
		require.NoError(t, err)
		require.Equal(t, model.SlotStatusActive, slot.Status)
		require.Equal(t, 3, slot.CapacityMax)
		require.Equal(t, 3, slot.CapacityAvailable)
		require.Equal(t, session.TutorID, slot.TutorID)
	})

	t.Run("missing session", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateSlotInput{
			SessionID: 999,
			SlotSpec:  SlotSpec{StartsAt: at(11, 0), EndsAt: at(12, 0), CapacityMax: 1},
		})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("zero capacity", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: at(11, 0), EndsAt: at(12, 0), CapacityMax: 0},
		})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("inverted window", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: at(12, 0), EndsAt: at(11, 0), CapacityMax: 1},
		})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("overlap with own schedule", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: at(9, 30), EndsAt: at(10, 30), CapacityMax: 1},
		})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("touching window allowed", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: at(10, 0), EndsAt: at(11, 0), CapacityMax: 1},
		})
		require.NoError(t, err)
	})
}

func TestSlotUpdate(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newSlotService(store, false)
	session := seedSession(t, store, 1)

	slot, err := svc.Create(ctx, CreateSlotInput{
		SessionID: session.ID,
		SlotSpec:  SlotSpec{StartsAt: at(9, 0), EndsAt: at(10, 0), CapacityMax: 3},
	})
	require.NoError(t, err)

	// Two seats consumed.
	require.NoError(t, store.AdjustSlotCapacity(ctx, slot.ID, -2))

	t.Run("capacity below consumed seats", func(t *testing.T) {
		one := 1
		_, err := svc.Update(ctx, slot.ID, UpdateSlotInput{CapacityMax: &one})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)
	})

	t.Run("capacity grow keeps consumed seats", func(t *testing.T) {
		five := 5
		updated, err := svc.Update(ctx, slot.ID, UpdateSlotInput{CapacityMax: &five})
		require.NoError(t, err)
		require.Equal(t, 5, updated.CapacityMax)
		require.Equal(t, 3, updated.CapacityAvailable)
	})

	t.Run("window move re-checks conflicts", func(t *testing.T) {
		_, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: at(11, 0), EndsAt: at(12, 0), CapacityMax: 1},
		})
		require.NoError(t, err)

		start, end := at(11, 30), at(12, 30)
		_, err = svc.Update(ctx, slot.ID, UpdateSlotInput{StartsAt: &start, EndsAt: &end})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)

		// Moving within a free range, not conflicting with itself.
		start, end = at(8, 0), at(9, 0)
		updated, err := svc.Update(ctx, slot.ID, UpdateSlotInput{StartsAt: &start, EndsAt: &end})
		require.NoError(t, err)
		require.Equal(t, at(8, 0), updated.StartsAt)
	})

	t.Run("inactive toggle", func(t *testing.T) {
		inactive := true
		updated, err := svc.Update(ctx, slot.ID, UpdateSlotInput{Inactive: &inactive})
		require.NoError(t, err)
		require.Equal(t, model.SlotStatusInactive, updated.Status)

		inactive = false
		updated, err = svc.Update(ctx, slot.ID, UpdateSlotInput{Inactive: &inactive})
		require.NoError(t, err)
		require.Equal(t, model.SlotStatusActive, updated.Status)
	})

	t.Run("cancelled slot refuses updates", func(t *testing.T) {
		_, err := svc.Cancel(ctx, slot.ID, "tutor sick")
		require.NoError(t, err)

		five := 5
		_, err = svc.Update(ctx, slot.ID, UpdateSlotInput{CapacityMax: &five})
		var transition *StateTransitionError
		require.ErrorAs(t, err, &transition)
	})
}

func TestSlotUpdateKeepsReservationsInsideWindow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newSlotService(store, false)
	session := seedSession(t, store, 1)

	slot, err := svc.Create(ctx, CreateSlotInput{
		SessionID: session.ID,
		SlotSpec:  SlotSpec{StartsAt: at(9, 0), EndsAt: at(10, 0), CapacityMax: 2},
	})
	require.NoError(t, err)

	res := &model.Reservation{
		SlotID:    slot.ID,
		StudentID: 1,
		State:     model.ReservationStateActive,
		StartsAt:  at(9, 45),
		EndsAt:    at(10, 0),
	}
	require.NoError(t, store.CreateReservation(ctx, res))
	require.NoError(t, store.AdjustSlotCapacity(ctx, slot.ID, -1))

	t.Run("shrinking past a booked sub-window is rejected", func(t *testing.T) {
		end := at(9, 30)
		_, err := svc.Update(ctx, slot.ID, UpdateSlotInput{EndsAt: &end})
		var validation *ValidationError
		require.ErrorAs(t, err, &validation)

		start := at(9, 50)
		_, err = svc.Update(ctx, slot.ID, UpdateSlotInput{StartsAt: &start})
		require.ErrorAs(t, err, &validation)

		stored, err := store.GetSlot(ctx, slot.ID)
		require.NoError(t, err)
		require.Equal(t, at(9, 0), stored.StartsAt)
		require.Equal(t, at(10, 0), stored.EndsAt)
	})

	t.Run("growing the window is allowed", func(t *testing.T) {
		end := at(10, 30)
		updated, err := svc.Update(ctx, slot.ID, UpdateSlotInput{EndsAt: &end})
		require.NoError(t, err)
		require.Equal(t, at(10, 30), updated.EndsAt)
	})

	t.Run("cancelled reservation no longer pins the window", func(t *testing.T) {
		res.State = model.ReservationStateCancelled
		require.NoError(t, store.UpdateReservation(ctx, res))
		require.NoError(t, store.AdjustSlotCapacity(ctx, slot.ID, +1))

		end := at(9, 30)
		updated, err := svc.Update(ctx, slot.ID, UpdateSlotInput{EndsAt: &end})
		require.NoError(t, err)
		require.Equal(t, at(9, 30), updated.EndsAt)
	})
}

func TestSlotReactivationChecksConflicts(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newSlotService(store, false)
	session := seedSession(t, store, 1)

	slotA, err := svc.Create(ctx, CreateSlotInput{
		SessionID: session.ID,
		SlotSpec:  SlotSpec{StartsAt: at(9, 0), EndsAt: at(10, 0), CapacityMax: 1},
	})
	require.NoError(t, err)

	inactive := true
	_, err = svc.Update(ctx, slotA.ID, UpdateSlotInput{Inactive: &inactive})
	require.NoError(t, err)

	// The window freed by deactivation may be taken by a new slot.
	slotB, err := svc.Create(ctx, CreateSlotInput{
		SessionID: session.ID,
		SlotSpec:  SlotSpec{StartsAt: at(9, 0), EndsAt: at(10, 0), CapacityMax: 1},
	})
	require.NoError(t, err)

	t.Run("reactivating into an occupied window is rejected", func(t *testing.T) {
		active := false
		_, err := svc.Update(ctx, slotA.ID, UpdateSlotInput{Inactive: &active})
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, slotB.ID, conflict.ConflictingSlotID)

		stored, err := store.GetSlot(ctx, slotA.ID)
		require.NoError(t, err)
		require.Equal(t, model.SlotStatusInactive, stored.Status)
	})

	t.Run("reactivating once the window is free succeeds", func(t *testing.T) {
		_, err := svc.Cancel(ctx, slotB.ID, "room changed")
		require.NoError(t, err)

		active := false
		updated, err := svc.Update(ctx, slotA.ID, UpdateSlotInput{Inactive: &active})
		require.NoError(t, err)
		require.Equal(t, model.SlotStatusActive, updated.Status)
	})
}

func TestSlotCancel(t *testing.T) {
	ctx := context.Background()

	seedSlotWithReservation := func(t *testing.T, cascade bool) (*memStore, *SlotService, *model.AvailabilitySlot, *model.Reservation) {
		store := newMemStore()
		svc := newSlotService(store, cascade)
		session := seedSession(t, store, 1)

		slot, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: at(9, 0), EndsAt: at(10, 0), CapacityMax: 2},
		})
		require.NoError(t, err)

		res := &model.Reservation{
			SlotID:    slot.ID,
			StudentID: 1,
			State:     model.ReservationStateActive,
			StartsAt:  at(9, 0),
			EndsAt:    at(9, 15),
			Modality:  "presencial",
		}
		require.NoError(t, store.CreateReservation(ctx, res))
		require.NoError(t, store.AdjustSlotCapacity(ctx, slot.ID, -1))

		return store, svc, slot, res
	}

	t.Run("reservations survive without cascade", func(t *testing.T) {
		store, svc, slot, res := seedSlotWithReservation(t, false)

		cancelled, err := svc.Cancel(ctx, slot.ID, "room unavailable")
		require.NoError(t, err)
		require.Equal(t, model.SlotStatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancellationReason)

		stored, err := store.GetReservation(ctx, res.ID)
		require.NoError(t, err)
		require.Equal(t, model.ReservationStateActive, stored.State)
		require.Equal(t, 1, cancelled.CapacityAvailable)
	})

	t.Run("cascade cancels active reservations", func(t *testing.T) {
		store, svc, slot, res := seedSlotWithReservation(t, true)

		cancelled, err := svc.Cancel(ctx, slot.ID, "room unavailable")
		require.NoError(t, err)

		stored, err := store.GetReservation(ctx, res.ID)
		require.NoError(t, err)
		require.Equal(t, model.ReservationStateCancelled, stored.State)
		require.NotNil(t, stored.CancellationReason)
		require.Equal(t, "room unavailable", *stored.CancellationReason)
		require.Equal(t, 2, cancelled.CapacityAvailable)
	})

	t.Run("cancel twice", func(t *testing.T) {
		_, svc, slot, _ := seedSlotWithReservation(t, false)

		_, err := svc.Cancel(ctx, slot.ID, "first")
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, slot.ID, "second")
		var conflict *ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("cancelled window frees the schedule", func(t *testing.T) {
		store, svc, slot, _ := seedSlotWithReservation(t, false)

		_, err := svc.Cancel(ctx, slot.ID, "gone")
		require.NoError(t, err)

		checker := NewConflictChecker(store)
		require.NoError(t, checker.CheckAgainstSchedule(ctx, 1, at(9, 0), at(10, 0), 0))
	})
}

func TestSlotDeleteRemovesReservations(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newSlotService(store, false)
	session := seedSession(t, store, 1)

	slot, err := svc.Create(ctx, CreateSlotInput{
		SessionID: session.ID,
		SlotSpec:  SlotSpec{StartsAt: at(9, 0), EndsAt: at(10, 0), CapacityMax: 2},
	})
	require.NoError(t, err)

	res := &model.Reservation{
		SlotID:    slot.ID,
		StudentID: 1,
		State:     model.ReservationStateActive,
		StartsAt:  at(9, 0),
		EndsAt:    at(9, 15),
	}
	require.NoError(t, store.CreateReservation(ctx, res))

	require.NoError(t, svc.Delete(ctx, slot.ID))

	gone, err := store.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	require.Nil(t, gone)

	orphan, err := store.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	require.Nil(t, orphan)
}

func TestSlotListBySession(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newSlotService(store, false)
	session := seedSession(t, store, 1)

	for _, window := range []struct{ start, end time.Time }{
		{at(9, 0), at(10, 0)},
		{at(10, 0), at(11, 0)},
	} {
		_, err := svc.Create(ctx, CreateSlotInput{
			SessionID: session.ID,
			SlotSpec:  SlotSpec{StartsAt: window.start, EndsAt: window.end, CapacityMax: 1},
		})
		require.NoError(t, err)
	}

	slots, err := svc.ListBySession(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.True(t, slots[0].StartsAt.Before(slots[1].StartsAt))

	_, err = svc.ListBySession(ctx, 999)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
