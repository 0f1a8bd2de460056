package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/training-center-api/internal/models"
)

// HistoryRepository appends and reads registration history. Rows are never updated or deleted.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one history entry using the transaction on ctx when present. The database
// stamps created_at and the stamp is copied back onto entry.
func (r *HistoryRepository) Append(ctx context.Context, entry *models.RegistrationHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	const query = `INSERT INTO registration_history (id, enrollment_id, old_status, new_status, changed_by)
        VALUES ($1, $2, $3, $4, $5) RETURNING created_at`
	var createdAt time.Time
	if err := sqlx.GetContext(ctx, executor(ctx, r.db), &createdAt, query,
		entry.ID, entry.EnrollmentID, entry.OldStatus, entry.NewStatus, entry.ChangedBy); err != nil {
		return fmt.Errorf("append registration history: %w", err)
	}
	entry.CreatedAt = createdAt
	return nil
}

// ListByEnrollment returns entries in insertion order.
func (r *HistoryRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.RegistrationHistoryEntry, error) {
	const query = `SELECT id, enrollment_id, old_status, new_status, changed_by, created_at
        FROM registration_history WHERE enrollment_id = $1 ORDER BY seq ASC`
	var entries []models.RegistrationHistoryEntry
	if err := sqlx.SelectContext(ctx, executor(ctx, r.db), &entries, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list registration history: %w", err)
	}
	return entries, nil
}
