package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-center-api/internal/models"
)

const groupColumns = `id, course_id, name, level, max_students, status, teacher_id, department_id, created_at`

// GroupRepository provides persistence for course groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// FindByID loads a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM course_groups WHERE id = $1`
	var group models.Group
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// FindByIDForUpdate loads and row-locks a group, serializing membership changes for it.
func (r *GroupRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Group, error) {
	query := `SELECT ` + groupColumns + ` FROM course_groups WHERE id = $1 FOR UPDATE`
	var group models.Group
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// UpdateStatus sets the operational status of a group.
func (r *GroupRepository) UpdateStatus(ctx context.Context, id string, status models.GroupStatus) error {
	const query = `UPDATE course_groups SET status = $2 WHERE id = $1`
	if _, err := executor(ctx, r.db).ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update group status: %w", err)
	}
	return nil
}
