package repository

import (
	"context"
	"fmt"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/model"
	"github.com/UrrutiaTs17/TutoUIS-Project/internal/repository/base"
)

type SessionRepository struct {
	db base.Querier
}

func NewSessionRepository(db base.Querier) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, tutor_id, subject_id, modality, location, description, state, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*model.TutoringSession, error) {
	var s model.TutoringSession
	err := row.Scan(
		&s.ID,
		&s.TutorID,
		&s.SubjectID,
		&s.Modality,
		&s.Location,
		&s.Description,
		&s.State,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateSession persists a new session and fills in its id and timestamps.
func (r *SessionRepository) CreateSession(ctx context.Context, session *model.TutoringSession) error {
	query := `
		INSERT INTO tutoring_sessions (tutor_id, subject_id, modality, location, description, state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		ctx, query,
		session.TutorID,
		session.SubjectID,
		session.Modality,
		session.Location,
		session.Description,
		session.State,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

// GetSession returns the session or nil when it does not exist.
func (r *SessionRepository) GetSession(ctx context.Context, id int64) (*model.TutoringSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM tutoring_sessions WHERE id = $1`

	session, err := scanSession(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by id: %w", err)
	}

	return session, nil
}

// SetSessionState writes the lifecycle state unconditionally.
func (r *SessionRepository) SetSessionState(ctx context.Context, id int64, state model.SessionState) error {
	query := `
		UPDATE tutoring_sessions
		SET state = $1, updated_at = now()
		WHERE id = $2
	`

	tag, err := r.db.Exec(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("set session state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %d not found", id)
	}

	return nil
}

// SetSessionStateReconciled writes the state only when the stored state is
// neither Cancelled nor already equal to it. Manual cancellation always
// wins over the reconciler.
func (r *SessionRepository) SetSessionStateReconciled(ctx context.Context, id int64, state model.SessionState) (bool, error) {
	query := `
		UPDATE tutoring_sessions
		SET state = $1, updated_at = now()
		WHERE id = $2
		  AND state <> $3
		  AND state <> $1
	`

	tag, err := r.db.Exec(ctx, query, state, id, model.SessionStateCancelled)
	if err != nil {
		return false, fmt.Errorf("reconcile session state: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// UpdateSessionDetails updates the editable fields. Nil fields are left
// untouched.
func (r *SessionRepository) UpdateSessionDetails(ctx context.Context, id int64, description, location *string) error {
	query := `
		UPDATE tutoring_sessions
		SET description = COALESCE($1, description),
		    location    = COALESCE($2, location),
		    updated_at  = now()
		WHERE id = $3
	`

	tag, err := r.db.Exec(ctx, query, description, location, id)
	if err != nil {
		return fmt.Errorf("update session details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %d not found", id)
	}

	return nil
}

// ListSessionsForReconcile returns every session the reconciler may touch,
// i.e. everything not manually cancelled.
func (r *SessionRepository) ListSessionsForReconcile(ctx context.Context) ([]*model.TutoringSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM tutoring_sessions
		WHERE state <> $1
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, model.SessionStateCancelled)
	if err != nil {
		return nil, fmt.Errorf("list sessions for reconcile: %w", err)
	}
	defer rows.Close()

	var sessions []*model.TutoringSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// DeleteSession removes the session row. Slots and reservations must be
// gone first; the foreign keys reject anything else.
func (r *SessionRepository) DeleteSession(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tutoring_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %d not found", id)
	}

	return nil
}
