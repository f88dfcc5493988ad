package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
)

// memStore is an in-memory Store for tests. txMu serializes InTx
// callbacks, so concurrent booking tests exercise the same
// check-then-write atomicity the Postgres row lock provides; mu guards
// the maps themselves, so direct calls outside a transaction are safe
// too. Rollback is not simulated; tests assert abort paths before any
// write happens.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID int64

	sessions     map[int64]*model.TutoringSession
	slots        map[int64]*model.AvailabilitySlot
	reservations map[int64]*model.Reservation
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[int64]*model.TutoringSession),
		slots:        make(map[int64]*model.AvailabilitySlot),
		reservations: make(map[int64]*model.Reservation),
	}
}

// id must be called with mu held.
func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) InTx(_ context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(m)
}

func copySession(s *model.TutoringSession) *model.TutoringSession {
	c := *s
	c.Slots = nil
	return &c
}

func copySlot(s *model.AvailabilitySlot) *model.AvailabilitySlot {
	c := *s
	return &c
}

func copyReservation(r *model.Reservation) *model.Reservation {
	c := *r
	return &c
}

func (m *memStore) CreateSession(_ context.Context, session *model.TutoringSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session.ID = m.id()
	session.CreatedAt = time.Now()
	session.UpdatedAt = session.CreatedAt
	m.sessions[session.ID] = copySession(session)
	return nil
}

func (m *memStore) GetSession(_ context.Context, id int64) (*model.TutoringSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return copySession(session), nil
}

func (m *memStore) SetSessionState(_ context.Context, id int64, state model.SessionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %d not found", id)
	}
	session.State = state
	session.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) SetSessionStateReconciled(_ context.Context, id int64, state model.SessionState) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	if session.State == model.SessionStateCancelled || session.State == state {
		return false, nil
	}
	session.State = state
	session.UpdatedAt = time.Now()
	return true, nil
}

func (m *memStore) UpdateSessionDetails(_ context.Context, id int64, description, location *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %d not found", id)
	}
	if description != nil {
		session.Description = *description
	}
	if location != nil {
		session.Location = *location
	}
	session.UpdatedAt = time.Now()
	return nil
}

func (m *memStore) ListSessionsForReconcile(_ context.Context) ([]*model.TutoringSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []*model.TutoringSession
	for _, session := range m.sessions {
		if session.State != model.SessionStateCancelled {
			sessions = append(sessions, copySession(session))
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].ID < sessions[j].ID })
	return sessions, nil
}

func (m *memStore) DeleteSession(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %d not found", id)
	}
	delete(m.sessions, id)
	return nil
}

func (m *memStore) CreateSlot(_ context.Context, slot *model.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot.ID = m.id()
	slot.CreatedAt = time.Now()
	m.slots[slot.ID] = copySlot(slot)
	return nil
}

func (m *memStore) GetSlot(_ context.Context, id int64) (*model.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[id]
	if !ok {
		return nil, nil
	}
	return copySlot(slot), nil
}

func (m *memStore) GetSlotForUpdate(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	return m.GetSlot(ctx, id)
}

func (m *memStore) ListSlotsBySession(_ context.Context, sessionID int64) ([]*model.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var slots []*model.AvailabilitySlot
	for _, slot := range m.slots {
		if slot.SessionID == sessionID {
			slots = append(slots, copySlot(slot))
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartsAt.Before(slots[j].StartsAt) })
	return slots, nil
}

func (m *memStore) ListActiveSlotsOverlapping(_ context.Context, tutorID int64, start, end time.Time) ([]*model.AvailabilitySlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var slots []*model.AvailabilitySlot
	for _, slot := range m.slots {
		if slot.TutorID != tutorID || slot.Status != model.SlotStatusActive {
			continue
		}
		if slot.Overlaps(start, end) {
			slots = append(slots, copySlot(slot))
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartsAt.Before(slots[j].StartsAt) })
	return slots, nil
}

func (m *memStore) UpdateSlot(_ context.Context, slot *model.AvailabilitySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[slot.ID]; !ok {
		return fmt.Errorf("slot %d not found", slot.ID)
	}
	m.slots[slot.ID] = copySlot(slot)
	return nil
}

func (m *memStore) AdjustSlotCapacity(_ context.Context, id int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[id]
	if !ok {
		return fmt.Errorf("slot %d not found", id)
	}
	next := slot.CapacityAvailable + delta
	if next < 0 || next > slot.CapacityMax {
		return fmt.Errorf("capacity %d out of range [0, %d]", next, slot.CapacityMax)
	}
	slot.CapacityAvailable = next
	return nil
}

func (m *memStore) DeleteSlot(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[id]; !ok {
		return fmt.Errorf("slot %d not found", id)
	}
	delete(m.slots, id)
	return nil
}

func (m *memStore) CreateReservation(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	res.ID = m.id()
	res.CreatedAt = time.Now()
	m.reservations[res.ID] = copyReservation(res)
	return nil
}

func (m *memStore) GetReservation(_ context.Context, id int64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	return copyReservation(res), nil
}

func (m *memStore) GetReservationForUpdate(ctx context.Context, id int64) (*model.Reservation, error) {
	return m.GetReservation(ctx, id)
}

func (m *memStore) ListReservationsBySlot(_ context.Context, slotID int64) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reservations []*model.Reservation
	for _, res := range m.reservations {
		if res.SlotID == slotID {
			reservations = append(reservations, copyReservation(res))
		}
	}
	sort.Slice(reservations, func(i, j int) bool { return reservations[i].ID < reservations[j].ID })
	return reservations, nil
}

func (m *memStore) ListReservationsByStudent(_ context.Context, studentID int64) ([]*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var reservations []*model.Reservation
	for _, res := range m.reservations {
		if res.StudentID == studentID {
			reservations = append(reservations, copyReservation(res))
		}
	}
	sort.Slice(reservations, func(i, j int) bool { return reservations[i].ID < reservations[j].ID })
	return reservations, nil
}

func (m *memStore) CountActiveReservations(_ context.Context, slotID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, res := range m.reservations {
		if res.SlotID == slotID && res.State == model.ReservationStateActive {
			count++
		}
	}
	return count, nil
}

func (m *memStore) HasActiveReservation(_ context.Context, slotID, studentID int64, startsAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, res := range m.reservations {
		if res.SlotID == slotID && res.StudentID == studentID &&
			res.State == model.ReservationStateActive && res.StartsAt.Equal(startsAt) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UpdateReservation(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reservations[res.ID]; !ok {
		return fmt.Errorf("reservation %d not found", res.ID)
	}
	m.reservations[res.ID] = copyReservation(res)
	return nil
}

func (m *memStore) DeleteReservation(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reservations[id]; !ok {
		return fmt.Errorf("reservation %d not found", id)
	}
	delete(m.reservations, id)
	return nil
}

func (m *memStore) DeleteReservationsBySlot(_ context.Context, slotID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, res := range m.reservations {
		if res.SlotID == slotID {
			delete(m.reservations, id)
			deleted++
		}
	}
	return deleted, nil
}

var _ Store = (*memStore)(nil)

// fakeDirectory is an IdentityDirectory and SubjectCatalog backed by maps.
type fakeDirectory struct {
	students map[int64]bool
	tutors   map[int64]bool
	subjects map[int64]bool
}

func (d *fakeDirectory) StudentExists(_ context.Context, id int64) (bool, error) {
	return d.students[id], nil
}

func (d *fakeDirectory) TutorExists(_ context.Context, id int64) (bool, error) {
	return d.tutors[id], nil
}

func (d *fakeDirectory) SubjectExists(_ context.Context, id int64) (bool, error) {
	return d.subjects[id], nil
}

// fakeMeetings is a MeetingScheduler returning a fixed link or error.
type fakeMeetings struct {
	link string
	err  error
}

func (f *fakeMeetings) ScheduleMeeting(_ context.Context, _ MeetingRequest) (string, error) {
	return f.link, f.err
}

// TestMemStoreDirectConcurrentAccess drives the fake from many goroutines
// without a transaction; the race detector flags any unguarded map access.
func TestMemStoreDirectConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	res := &model.Reservation{SlotID: 1, StudentID: 1, State: model.ReservationStateActive}
	require.NoError(t, store.CreateReservation(ctx, res))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if n%2 == 0 {
					updated := copyReservation(res)
					updated.Observations = "rotating note"
					_ = store.UpdateReservation(ctx, updated)
				} else {
					_, _ = store.GetReservation(ctx, res.ID)
					_, _ = store.CountActiveReservations(ctx, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	stored, err := store.GetReservation(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, model.ReservationStateActive, stored.State)
}
