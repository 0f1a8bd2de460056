package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-center-api/internal/models"
)

const enrollmentColumns = `id, student_id, course_id, group_id, level, status, enrolled_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByIDForUpdate loads and row-locks an enrollment. It must run inside a transaction.
func (r *EnrollmentRepository) FindByIDForUpdate(ctx context.Context, id string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1 FOR UPDATE`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndCourseForUpdate row-locks the student's enrollment in a course.
func (r *EnrollmentRepository) FindByStudentAndCourseForUpdate(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE`
	var enrollment models.Enrollment
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Create persists a new enrollment. A second enrollment for the same student and course returns ErrDuplicate.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	enrollment.UpdatedAt = now
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, group_id, level, status, enrolled_at, updated_at)
        VALUES (:id, :student_id, :course_id, :group_id, :level, :status, :enrolled_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", classify(err))
	}
	return nil
}

// UpdateStatus moves an enrollment from one status to another. The WHERE clause re-checks
// the expected status so a lost race surfaces as ErrStaleStatus instead of a silent overwrite.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
	result, err := executor(ctx, r.db).ExecContext(ctx, query, id, from, to, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check enrollment update rows: %w", err)
	}
	if rows == 0 {
		return ErrStaleStatus
	}
	return nil
}

// SetGroup sets or clears the group reference of an enrollment.
func (r *EnrollmentRepository) SetGroup(ctx context.Context, id string, groupID *string) error {
	const query = `UPDATE enrollments SET group_id = $2, updated_at = $3 WHERE id = $1`
	result, err := executor(ctx, r.db).ExecContext(ctx, query, id, groupID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set enrollment group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check enrollment group rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByGroup returns the live number of enrollments referencing a group.
func (r *EnrollmentRepository) CountByGroup(ctx context.Context, groupID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE group_id = $1`
	var total int
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, query, groupID); err != nil {
		return 0, fmt.Errorf("count group members: %w", err)
	}
	return total, nil
}
