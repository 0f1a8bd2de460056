package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/training-center-api/internal/models"
)

// ErrHistoryInconsistent is returned by ReplayHistory when entries do not chain.
var ErrHistoryInconsistent = errors.New("registration history is inconsistent")

type historyStore interface {
	Append(ctx context.Context, entry *models.RegistrationHistoryEntry) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.RegistrationHistoryEntry, error)
}

// AuditTrail appends immutable registration history. Every lifecycle transition goes through Record.
type AuditTrail struct {
	store historyStore
	now   func() time.Time
}

// NewAuditTrail constructs the recorder.
func NewAuditTrail(store historyStore) *AuditTrail {
	return &AuditTrail{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends one entry. ctx must carry the transaction of the status write.
func (a *AuditTrail) Record(ctx context.Context, enrollmentID string, from, to models.EnrollmentStatus, actorID string) (*models.RegistrationHistoryEntry, error) {
	entry := &models.RegistrationHistoryEntry{
		EnrollmentID: enrollmentID,
		OldStatus:    from,
		NewStatus:    to,
		ChangedBy:    actorID,
		CreatedAt:    a.now(),
	}
	if err := a.store.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the entries of an enrollment in creation order.
func (a *AuditTrail) History(ctx context.Context, enrollmentID string) ([]models.RegistrationHistoryEntry, error) {
	return a.store.ListByEnrollment(ctx, enrollmentID)
}

// ReplayHistory folds entries over initial and returns the reconstructed status.
// Each entry must start where the previous one ended and follow the transition table.
func ReplayHistory(initial models.EnrollmentStatus, entries []models.RegistrationHistoryEntry) (models.EnrollmentStatus, error) {
	status := initial
	for i, entry := range entries {
		if entry.OldStatus != status {
			return status, fmt.Errorf("%w: entry %d starts at %s, expected %s", ErrHistoryInconsistent, i, entry.OldStatus, status)
		}
		if _, ok := actionBetween(entry.OldStatus, entry.NewStatus); !ok {
			return status, fmt.Errorf("%w: entry %d moves %s to %s", ErrHistoryInconsistent, i, entry.OldStatus, entry.NewStatus)
		}
		status = entry.NewStatus
	}
	return status, nil
}
