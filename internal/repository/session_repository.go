package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-center-api/internal/models"
)

const sessionColumns = `id, course_id, teacher_id, group_id, room_id, start_time, end_time, topic, created_at`

// SessionRepository persists scheduled sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// LockResources takes transaction-scoped advisory locks on the given resource keys.
// Keys are locked in sorted order so two writers never wait on each other in a cycle.
func (r *SessionRepository) LockResources(ctx context.Context, keys ...string) error {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)
	exec := executor(ctx, r.db)
	var last string
	for i, key := range sorted {
		if key == "" || (i > 0 && key == last) {
			continue
		}
		last = key
		if _, err := exec.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
			return fmt.Errorf("lock %s: %w", key, err)
		}
	}
	return nil
}

// FindOverlapping returns sessions sharing the teacher or the room whose interval overlaps [start, end).
func (r *SessionRepository) FindOverlapping(ctx context.Context, teacherID string, roomID *string, start, end time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
        WHERE (teacher_id = $1 OR ($2::text IS NOT NULL AND room_id = $2))
        AND start_time < $4 AND $3 < end_time
        ORDER BY start_time ASC, id ASC`
	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &sessions, query, teacherID, roomID, start, end); err != nil {
		return nil, fmt.Errorf("find overlapping sessions: %w", err)
	}
	return sessions, nil
}

// Create inserts a session. An overlap caught by the exclusion constraints returns ErrOverlap.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO sessions (id, course_id, teacher_id, group_id, room_id, start_time, end_time, topic, created_at)
        VALUES (:id, :course_id, :teacher_id, :group_id, :room_id, :start_time, :end_time, :topic, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, executor(ctx, r.db), query, session); err != nil {
		return fmt.Errorf("create session: %w", classify(err))
	}
	return nil
}

// ListBetween returns sessions overlapping [from, to) ordered by start time.
func (r *SessionRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
        WHERE start_time < $2 AND $1 < end_time
        ORDER BY start_time ASC, id ASC`
	var sessions []models.Session
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &sessions, query, from, to); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}
