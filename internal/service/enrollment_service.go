package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
	"github.com/noah-isme/training-center-api/internal/repository"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
)

// lifecycleTable is the only definition of legal enrollment transitions.
var lifecycleTable = map[models.EnrollmentStatus]map[models.EnrollmentAction]models.EnrollmentStatus{
	models.EnrollmentStatusPending: {
		models.EnrollmentActionValidate: models.EnrollmentStatusValidated,
		models.EnrollmentActionReject:   models.EnrollmentStatusRejected,
	},
	models.EnrollmentStatusValidated: {
		models.EnrollmentActionMarkPaid: models.EnrollmentStatusPaid,
	},
	models.EnrollmentStatusPaid: {
		models.EnrollmentActionFinish: models.EnrollmentStatusFinished,
	},
}

// nextStatus resolves action from the current status.
func nextStatus(from models.EnrollmentStatus, action models.EnrollmentAction) (models.EnrollmentStatus, bool) {
	to, ok := lifecycleTable[from][action]
	return to, ok
}

// actionBetween finds the action that moves from to to, if any.
func actionBetween(from, to models.EnrollmentStatus) (models.EnrollmentAction, bool) {
	for action, target := range lifecycleTable[from] {
		if target == to {
			return action, true
		}
	}
	return "", false
}

type enrollmentStore interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, from, to models.EnrollmentStatus) error
}

type enrollmentReferenceReader interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
	FindCourse(ctx context.Context, id string) (*models.Course, error)
}

// EnrollmentService drives the enrollment approval workflow.
type EnrollmentService struct {
	tx          Transactor
	enrollments enrollmentStore
	refs        enrollmentReferenceReader
	audit       *AuditTrail
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(tx Transactor, enrollments enrollmentStore, refs enrollmentReferenceReader, audit *AuditTrail, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		tx:          tx,
		enrollments: enrollments,
		refs:        refs,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Create registers a PENDING enrollment.
func (s *EnrollmentService) Create(ctx context.Context, req dto.CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	if _, err := s.refs.FindStudent(ctx, req.StudentID); err != nil {
		return nil, notFoundOrInternal(err, "student not found", "failed to load student")
	}
	if _, err := s.refs.FindCourse(ctx, req.CourseID); err != nil {
		return nil, notFoundOrInternal(err, "course not found", "failed to load course")
	}

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Level:     trimmedOrNil(req.Level),
		Status:    models.EnrollmentStatusPending,
	}
	if err := s.enrollments.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.ErrDuplicateEnrollment
		}
		return nil, appErrors.Internal(err, "failed to create enrollment")
	}
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("course_id", enrollment.CourseID))
	return enrollment, nil
}

// Get returns an enrollment by id.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "enrollment not found", "failed to load enrollment")
	}
	return enrollment, nil
}

// History returns the audit trail of an enrollment and whether it replays to the stored status.
func (s *EnrollmentService) History(ctx context.Context, id string) (*dto.EnrollmentHistoryResponse, error) {
	enrollment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.History(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load enrollment history")
	}
	replayed, replayErr := ReplayHistory(models.EnrollmentStatusPending, entries)
	consistent := replayErr == nil && replayed == enrollment.Status
	if !consistent {
		s.logger.Warn("enrollment history does not replay to current status",
			zap.String("enrollment_id", id),
			zap.String("current_status", string(enrollment.Status)),
			zap.String("replayed_status", string(replayed)),
			zap.Error(replayErr))
	}
	if entries == nil {
		entries = []models.RegistrationHistoryEntry{}
	}
	return &dto.EnrollmentHistoryResponse{
		EnrollmentID:   id,
		CurrentStatus:  enrollment.Status,
		ReplayedStatus: replayed,
		Consistent:     consistent,
		Entries:        entries,
	}, nil
}

// Validate moves a PENDING enrollment to VALIDATED.
func (s *EnrollmentService) Validate(ctx context.Context, id, actorID string) (*models.Enrollment, error) {
	return s.apply(ctx, id, models.EnrollmentActionValidate, actorID)
}

// Reject moves a PENDING enrollment to REJECTED.
func (s *EnrollmentService) Reject(ctx context.Context, id, actorID string) (*models.Enrollment, error) {
	return s.apply(ctx, id, models.EnrollmentActionReject, actorID)
}

// MarkPaid moves a VALIDATED enrollment to PAID.
func (s *EnrollmentService) MarkPaid(ctx context.Context, id, actorID string) (*models.Enrollment, error) {
	return s.apply(ctx, id, models.EnrollmentActionMarkPaid, actorID)
}

// Finish moves a PAID enrollment to FINISHED.
func (s *EnrollmentService) Finish(ctx context.Context, id, actorID string) (*models.Enrollment, error) {
	return s.apply(ctx, id, models.EnrollmentActionFinish, actorID)
}

// apply locks the enrollment, checks the guard against the locked row, writes the status and
// appends history in one transaction.
func (s *EnrollmentService) apply(ctx context.Context, id string, action models.EnrollmentAction, actorID string) (*models.Enrollment, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "acting user is required")
	}

	var updated *models.Enrollment
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		enrollment, err := s.enrollments.FindByIDForUpdate(ctx, id)
		if err != nil {
			return notFoundOrInternal(err, "enrollment not found", "failed to load enrollment")
		}

		from := enrollment.Status
		to, ok := nextStatus(from, action)
		if !ok {
			return invalidTransition(from, action)
		}
		if err := s.enrollments.UpdateStatus(ctx, id, from, to); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return invalidTransition(from, action)
			}
			return appErrors.Internal(err, "failed to update enrollment status")
		}
		if _, err := s.audit.Record(ctx, id, from, to, actorID); err != nil {
			return appErrors.Internal(err, "failed to record enrollment history")
		}

		enrollment.Status = to
		enrollment.UpdatedAt = time.Now().UTC()
		updated = enrollment
		return nil
	})
	s.metrics.RecordTransition(string(action), err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("enrollment transitioned",
		zap.String("enrollment_id", id),
		zap.String("action", string(action)),
		zap.String("status", string(updated.Status)),
		zap.String("actor_id", actorID))
	return updated, nil
}

func invalidTransition(from models.EnrollmentStatus, action models.EnrollmentAction) error {
	return appErrors.WithDetails(appErrors.ErrInvalidTransition,
		"cannot "+string(action)+" an enrollment in status "+string(from),
		map[string]string{"current_status": string(from), "action": string(action)})
}

func notFoundOrInternal(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, internal)
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
