package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
	"github.com/noah-isme/training-center-api/internal/repository"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
)

// DefaultSessionDuration applies when a proposal has no end time and none is configured.
const DefaultSessionDuration = 90 * time.Minute

type sessionStore interface {
	LockResources(ctx context.Context, keys ...string) error
	FindOverlapping(ctx context.Context, teacherID string, roomID *string, start, end time.Time) ([]models.Session, error)
	Create(ctx context.Context, session *models.Session) error
}

type scheduleReferenceReader interface {
	FindCourse(ctx context.Context, id string) (*models.Course, error)
	FindTeacher(ctx context.Context, id string) (*models.Teacher, error)
	FindRoom(ctx context.Context, id string) (*models.Room, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
}

type cacheInvalidator interface {
	Bump(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// SessionServiceConfig tunes session defaults.
type SessionServiceConfig struct {
	DefaultDuration time.Duration
	Grid            SlotGrid
}

// SessionService creates sessions without double-booking teachers or rooms.
type SessionService struct {
	tx        Transactor
	sessions  sessionStore
	refs      scheduleReferenceReader
	groups    groupReader
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    SessionServiceConfig
}

// NewSessionService constructs the service.
func NewSessionService(tx Transactor, sessions sessionStore, refs scheduleReferenceReader, groups groupReader, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, config SessionServiceConfig) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultDuration <= 0 {
		config.DefaultDuration = DefaultSessionDuration
	}
	return &SessionService{
		tx:        tx,
		sessions:  sessions,
		refs:      refs,
		groups:    groups,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    config,
	}
}

// CreateSession validates references, checks teacher and room availability over [start, end)
// and persists the session. Check and insert run under advisory locks in one transaction.
func (s *SessionService) CreateSession(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if req.StartTime.IsZero() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time is required")
	}
	start := req.StartTime.UTC()
	end := start.Add(s.config.DefaultDuration)
	if req.EndTime != nil {
		end = req.EndTime.UTC()
	}
	if !end.After(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}

	roomID := trimmedOrNil(req.RoomID)
	if err := s.checkReferences(ctx, req.CourseID, req.TeacherID, req.GroupID, roomID); err != nil {
		return nil, err
	}

	candidate := &models.Session{
		CourseID:  req.CourseID,
		TeacherID: req.TeacherID,
		GroupID:   req.GroupID,
		RoomID:    roomID,
		StartTime: start,
		EndTime:   end,
		Topic:     strings.TrimSpace(req.Topic),
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		keys := []string{resourceLockKey(models.ResourceTeacher, candidate.TeacherID)}
		if roomID != nil {
			keys = append(keys, resourceLockKey(models.ResourceRoom, *roomID))
		}
		if err := s.sessions.LockResources(ctx, keys...); err != nil {
			return appErrors.Internal(err, "failed to lock schedule resources")
		}

		existing, err := s.sessions.FindOverlapping(ctx, candidate.TeacherID, roomID, start, end)
		if err != nil {
			return appErrors.Internal(err, "failed to check schedule conflicts")
		}
		if conflicts := DetectConflicts(*candidate, existing); len(conflicts) > 0 {
			return conflictError(conflicts)
		}

		if err := s.sessions.Create(ctx, candidate); err != nil {
			if errors.Is(err, repository.ErrOverlap) {
				return overlapError(err, candidate)
			}
			return appErrors.Internal(err, "failed to create session")
		}
		return nil
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrScheduleConflict.Code {
			if conflicts, ok := appErr.Details.([]models.ScheduleConflict); ok && len(conflicts) > 0 {
				s.metrics.RecordConflict(string(conflicts[0].Resource))
			}
		}
		return nil, err
	}

	if s.cache != nil {
		s.invalidateDays(ctx, candidate.ID, start, end)
	}
	s.logger.Info("session created",
		zap.String("session_id", candidate.ID),
		zap.String("teacher_id", candidate.TeacherID),
		zap.Time("start_time", start),
		zap.Time("end_time", end))
	return candidate, nil
}

// invalidateDays moves every touched day to a new cache generation. Readers that started
// before the bump fill the old generation's key, which nothing reads any more.
func (s *SessionService) invalidateDays(ctx context.Context, sessionID string, start, end time.Time) {
	for _, day := range touchedDays(s.config.Grid, start, end) {
		gen, err := s.cache.Bump(ctx, dayGenerationKey(day))
		if err != nil {
			s.logger.Warn("failed to invalidate day schedule cache",
				zap.String("session_id", sessionID), zap.String("day", day.Format(dateLayout)), zap.Error(err))
			continue
		}
		if gen > 0 {
			if err := s.cache.Delete(ctx, dayListKey(day, gen-1)); err != nil {
				s.logger.Debug("failed to drop superseded day schedule", zap.String("day", day.Format(dateLayout)), zap.Error(err))
			}
		}
	}
}

func (s *SessionService) checkReferences(ctx context.Context, courseID, teacherID, groupID string, roomID *string) error {
	if _, err := s.refs.FindCourse(ctx, courseID); err != nil {
		return invalidReferenceOrInternal(err, "course", courseID)
	}
	if _, err := s.refs.FindTeacher(ctx, teacherID); err != nil {
		return invalidReferenceOrInternal(err, "teacher", teacherID)
	}
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return invalidReferenceOrInternal(err, "group", groupID)
	}
	if group.CourseID != courseID {
		return appErrors.WithDetails(appErrors.ErrInvalidReference, "group does not belong to course",
			map[string]string{"group_id": groupID, "course_id": courseID})
	}
	if roomID != nil {
		room, err := s.refs.FindRoom(ctx, *roomID)
		if err != nil {
			return invalidReferenceOrInternal(err, "room", *roomID)
		}
		if !room.Active {
			return appErrors.WithDetails(appErrors.ErrInvalidReference, "room is not active",
				map[string]string{"room_id": *roomID})
		}
	}
	return nil
}

// DetectConflicts lists existing sessions sharing the candidate's teacher or room whose
// half-open interval overlaps the candidate. Teacher conflicts come first.
func DetectConflicts(candidate models.Session, existing []models.Session) []models.ScheduleConflict {
	var teacher, room []models.ScheduleConflict
	for _, session := range sortedByStart(existing) {
		if session.ID != "" && session.ID == candidate.ID {
			continue
		}
		if !session.Overlaps(candidate.StartTime, candidate.EndTime) {
			continue
		}
		if session.TeacherID == candidate.TeacherID {
			teacher = append(teacher, newConflict(models.ResourceTeacher, candidate.TeacherID, session))
		}
		if candidate.RoomID != nil && session.InRoom(*candidate.RoomID) {
			room = append(room, newConflict(models.ResourceRoom, *candidate.RoomID, session))
		}
	}
	return append(teacher, room...)
}

// touchedDays returns the local midnight of every day [start, end) touches.
func touchedDays(grid SlotGrid, start, end time.Time) []time.Time {
	var days []time.Time
	for day := grid.Midnight(start); day.Before(end); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func dayGenerationKey(day time.Time) string {
	return "sessions:gen:" + day.Format(dateLayout)
}

func dayListKey(day time.Time, gen int64) string {
	return fmt.Sprintf("sessions:day:%s:%d", day.Format(dateLayout), gen)
}

func resourceLockKey(kind models.ResourceKind, id string) string {
	return string(kind) + ":" + id
}

func newConflict(kind models.ResourceKind, resourceID string, session models.Session) models.ScheduleConflict {
	return models.ScheduleConflict{
		Resource:   kind,
		ResourceID: resourceID,
		SessionID:  session.ID,
		StartTime:  session.StartTime,
		EndTime:    session.EndTime,
	}
}

func conflictError(conflicts []models.ScheduleConflict) error {
	first := conflicts[0]
	message := fmt.Sprintf("%s %s is already booked by session %s", first.Resource, first.ResourceID, first.SessionID)
	return appErrors.WithDetails(appErrors.ErrScheduleConflict, message, conflicts)
}

// overlapError reports a conflict caught by the exclusion constraints after the explicit check.
func overlapError(err error, candidate *models.Session) error {
	conflict := models.ScheduleConflict{
		Resource:   models.ResourceTeacher,
		ResourceID: candidate.TeacherID,
		StartTime:  candidate.StartTime,
		EndTime:    candidate.EndTime,
	}
	if strings.Contains(err.Error(), "room") && candidate.RoomID != nil {
		conflict.Resource = models.ResourceRoom
		conflict.ResourceID = *candidate.RoomID
	}
	appErr := appErrors.WithDetails(appErrors.ErrScheduleConflict,
		fmt.Sprintf("%s %s is already booked", conflict.Resource, conflict.ResourceID),
		[]models.ScheduleConflict{conflict})
	appErr.Err = err
	return appErr
}

func invalidReferenceOrInternal(err error, kind, id string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.WithDetails(appErrors.ErrInvalidReference, kind+" not found",
			map[string]string{kind + "_id": id})
	}
	return appErrors.Internal(err, "failed to load "+kind)
}
