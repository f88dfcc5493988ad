package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/repository/base"
)

type SlotRepository struct {
	db base.Querier
}

func NewSlotRepository(db base.Querier) *SlotRepository {
	return &SlotRepository{db: db}
}

const slotColumns = `id, session_id, tutor_id, starts_at, ends_at, capacity_max, capacity_available, status, cancellation_reason, created_at`

func scanSlot(row interface{ Scan(...any) error }) (*model.AvailabilitySlot, error) {
	var s model.AvailabilitySlot
	err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.TutorID,
		&s.StartsAt,
		&s.EndsAt,
		&s.CapacityMax,
		&s.CapacityAvailable,
		&s.Status,
		&s.CancellationReason,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SlotRepository) querySlots(ctx context.Context, query string, args ...any) ([]*model.AvailabilitySlot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	return slots, rows.Err()
}

// CreateSlot persists a new slot and fills in its id and created_at.
func (r *SlotRepository) CreateSlot(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (session_id, tutor_id, starts_at, ends_at, capacity_max, capacity_available, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		slot.SessionID,
		slot.TutorID,
		slot.StartsAt,
		slot.EndsAt,
		slot.CapacityMax,
		slot.CapacityAvailable,
		slot.Status,
	).Scan(&slot.ID, &slot.CreatedAt)

	if err != nil {
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetSlot returns the slot or nil when it does not exist.
func (r *SlotRepository) GetSlot(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}

	return slot, nil
}

// GetSlotForUpdate locks the slot row until the enclosing transaction
// ends. Capacity check-and-decrement depends on this lock.
func (r *SlotRepository) GetSlotForUpdate(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id = $1 FOR UPDATE`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot for update: %w", err)
	}

	return slot, nil
}

// ListSlotsBySession returns every slot owned by the session.
func (r *SlotRepository) ListSlotsBySession(ctx context.Context, sessionID int64) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE session_id = $1
		ORDER BY starts_at
	`

	slots, err := r.querySlots(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list slots by session: %w", err)
	}

	return slots, nil
}

// ListActiveSlotsOverlapping returns the tutor's active slots whose
// half-open interval intersects [start, end). Touching endpoints do not
// overlap.
func (r *SlotRepository) ListActiveSlotsOverlapping(ctx context.Context, tutorID int64, start, end time.Time) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE tutor_id = $1
		  AND status = $2
		  AND starts_at < $4
		  AND $3 < ends_at
		ORDER BY starts_at
	`

	slots, err := r.querySlots(ctx, query, tutorID, model.SlotStatusActive, start, end)
	if err != nil {
		return nil, fmt.Errorf("list overlapping slots: %w", err)
	}

	return slots, nil
}

// UpdateSlot writes the mutable slot fields.
func (r *SlotRepository) UpdateSlot(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		UPDATE availability_slots
		SET starts_at = $1,
		    ends_at = $2,
		    capacity_max = $3,
		    capacity_available = $4,
		    status = $5,
		    cancellation_reason = $6
		WHERE id = $7
	`

	tag, err := r.db.Exec(
		ctx, query,
		slot.StartsAt,
		slot.EndsAt,
		slot.CapacityMax,
		slot.CapacityAvailable,
		slot.Status,
		slot.CancellationReason,
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %d not found", slot.ID)
	}

	return nil
}

// AdjustSlotCapacity moves capacity_available by delta. The CHECK
// constraints on the table keep the counter inside [0, capacity_max];
// callers hold the row lock so the constraint is only a backstop.
func (r *SlotRepository) AdjustSlotCapacity(ctx context.Context, id int64, delta int) error {
	query := `
		UPDATE availability_slots
		SET capacity_available = capacity_available + $1
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("adjust slot capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %d not found", id)
	}

	return nil
}

// DeleteSlot removes the slot row. Reservations must be gone first.
func (r *SlotRepository) DeleteSlot(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %d not found", id)
	}

	return nil
}
