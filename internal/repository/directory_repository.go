package repository

import (
	"context"
	"fmt"

	"github.com/UrrutiaTs17/TutoUIS-Project/internal/repository/base"
)

// DirectoryRepository answers the identity and catalog existence checks
// the booking engine needs. User and subject management live elsewhere;
// this only reads.
type DirectoryRepository struct {
	db base.Querier
}

func NewDirectoryRepository(db base.Querier) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) exists(ctx context.Context, query string, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *DirectoryRepository) StudentExists(ctx context.Context, id int64) (bool, error) {
	exists, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND role = 'student')`, id)
	if err != nil {
		return false, fmt.Errorf("check student exists: %w", err)
	}
	return exists, nil
}

func (r *DirectoryRepository) TutorExists(ctx context.Context, id int64) (bool, error) {
	exists, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1 AND role = 'tutor')`, id)
	if err != nil {
		return false, fmt.Errorf("check tutor exists: %w", err)
	}
	return exists, nil
}

func (r *DirectoryRepository) SubjectExists(ctx context.Context, id int64) (bool, error) {
	exists, err := r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM subjects WHERE id = $1)`, id)
	if err != nil {
		return false, fmt.Errorf("check subject exists: %w", err)
	}
	return exists, nil
}
