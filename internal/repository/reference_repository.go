package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-center-api/internal/models"
)

// ReferenceRepository reads the catalog tables that enrollments, groups and sessions point at.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs the repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// FindCourse loads a course.
func (r *ReferenceRepository) FindCourse(ctx context.Context, id string) (*models.Course, error) {
	var course models.Course
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &course, `SELECT id, name, department_id FROM courses WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindTeacher loads a teacher.
func (r *ReferenceRepository) FindTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	var teacher models.Teacher
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &teacher, `SELECT id, full_name, active FROM teachers WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// FindStudent loads a student.
func (r *ReferenceRepository) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	var student models.Student
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &student, `SELECT id, full_name FROM students WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindRoom loads a room.
func (r *ReferenceRepository) FindRoom(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &room, `SELECT id, name, capacity, location, active FROM rooms WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListActiveRooms returns bookable rooms ordered by name.
func (r *ReferenceRepository) ListActiveRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &rooms, `SELECT id, name, capacity, location, active FROM rooms WHERE active = TRUE ORDER BY name ASC, id ASC`); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// CountActiveTeachers returns the number of active teachers.
func (r *ReferenceRepository) CountActiveTeachers(ctx context.Context) (int, error) {
	var total int
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &total, `SELECT COUNT(*) FROM teachers WHERE active = TRUE`); err != nil {
		return 0, fmt.Errorf("count teachers: %w", err)
	}
	return total, nil
}
