package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/repository/base"
)

type ReservationRepository struct {
	db base.Querier
}

func NewReservationRepository(db base.Querier) *ReservationRepository {
	return &ReservationRepository{db: db}
}

const reservationColumns = `id, slot_id, student_id, state, starts_at, ends_at, modality, meeting_link, observations, cancellation_reason, created_at, cancelled_at`

func scanReservation(row interface{ Scan(...any) error }) (*model.Reservation, error) {
	var res model.Reservation
	err := row.Scan(
		&res.ID,
		&res.SlotID,
		&res.StudentID,
		&res.State,
		&res.StartsAt,
		&res.EndsAt,
		&res.Modality,
		&res.MeetingLink,
		&res.Observations,
		&res.CancellationReason,
		&res.CreatedAt,
		&res.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]*model.Reservation, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []*model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}

	return reservations, rows.Err()
}

// CreateReservation persists a new reservation and fills in its id and
// created_at.
func (r *ReservationRepository) CreateReservation(ctx context.Context, res *model.Reservation) error {
	query := `
		INSERT INTO reservations (slot_id, student_id, state, starts_at, ends_at, modality, meeting_link, observations)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(
		ctx, query,
		res.SlotID,
		res.StudentID,
		res.State,
		res.StartsAt,
		res.EndsAt,
		res.Modality,
		res.MeetingLink,
		res.Observations,
	).Scan(&res.ID, &res.CreatedAt)

	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}

	return nil
}

// GetReservation returns the reservation or nil when it does not exist.
func (r *ReservationRepository) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	res, err := scanReservation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation by id: %w", err)
	}

	return res, nil
}

// GetReservationForUpdate locks the reservation row until the enclosing
// transaction ends.
func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, id int64) (*model.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`

	res, err := scanReservation(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation for update: %w", err)
	}

	return res, nil
}

// ListReservationsBySlot returns every reservation on the slot.
func (r *ReservationRepository) ListReservationsBySlot(ctx context.Context, slotID int64) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE slot_id = $1
		ORDER BY starts_at, id
	`

	reservations, err := r.queryReservations(ctx, query, slotID)
	if err != nil {
		return nil, fmt.Errorf("list reservations by slot: %w", err)
	}

	return reservations, nil
}

// ListReservationsByStudent returns every reservation of the student.
func (r *ReservationRepository) ListReservationsByStudent(ctx context.Context, studentID int64) ([]*model.Reservation, error) {
	query := `
		SELECT ` + reservationColumns + `
		FROM reservations
		WHERE student_id = $1
		ORDER BY starts_at, id
	`

	reservations, err := r.queryReservations(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list reservations by student: %w", err)
	}

	return reservations, nil
}

// CountActiveReservations returns the number of active reservations on the
// slot. capacity_available must always equal capacity_max minus this.
func (r *ReservationRepository) CountActiveReservations(ctx context.Context, slotID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE slot_id = $1 AND state = $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, slotID, model.ReservationStateActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active reservations: %w", err)
	}

	return count, nil
}

// HasActiveReservation reports whether the student already holds an active
// reservation on the slot for the same sub-window start.
func (r *ReservationRepository) HasActiveReservation(ctx context.Context, slotID, studentID int64, startsAt time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE slot_id = $1 AND student_id = $2 AND starts_at = $3 AND state = $4
		)
	`

	var exists bool
	err := r.db.QueryRow(ctx, query, slotID, studentID, startsAt, model.ReservationStateActive).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active reservation: %w", err)
	}

	return exists, nil
}

// UpdateReservation writes the mutable reservation fields.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, res *model.Reservation) error {
	query := `
		UPDATE reservations
		SET state = $1,
		    meeting_link = $2,
		    observations = $3,
		    cancellation_reason = $4,
		    cancelled_at = $5
		WHERE id = $6
	`

	tag, err := r.db.Exec(
		ctx, query,
		res.State,
		res.MeetingLink,
		res.Observations,
		res.CancellationReason,
		res.CancelledAt,
		res.ID,
	)
	if err != nil {
		return fmt.Errorf("update reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation %d not found", res.ID)
	}

	return nil
}

// DeleteReservation removes the reservation row.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reservation %d not found", id)
	}

	return nil
}

// DeleteReservationsBySlot removes every reservation on the slot and
// returns how many were deleted.
func (r *ReservationRepository) DeleteReservationsBySlot(ctx context.Context, slotID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM reservations WHERE slot_id = $1`, slotID)
	if err != nil {
		return 0, fmt.Errorf("delete reservations by slot: %w", err)
	}

	return tag.RowsAffected(), nil
}
