package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
)

const (
	assignmentAssign = "assign"
	assignmentRemove = "remove"
)

type groupStore interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	FindByIDForUpdate(ctx context.Context, id string) (*models.Group, error)
	UpdateStatus(ctx context.Context, id string, status models.GroupStatus) error
}

type membershipStore interface {
	FindByStudentAndCourseForUpdate(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	SetGroup(ctx context.Context, id string, groupID *string) error
	CountByGroup(ctx context.Context, groupID string) (int, error)
}

type studentReader interface {
	FindStudent(ctx context.Context, id string) (*models.Student, error)
}

// GroupService manages seats in course groups. Occupancy is always a live count of enrollments
// referencing the group.
type GroupService struct {
	tx       Transactor
	groups   groupStore
	members  membershipStore
	students studentReader
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewGroupService constructs the service.
func NewGroupService(tx Transactor, groups groupStore, members membershipStore, students studentReader, metrics *MetricsService, logger *zap.Logger) *GroupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{tx: tx, groups: groups, members: members, students: students, metrics: metrics, logger: logger}
}

// Get returns a group with its live occupancy.
func (s *GroupService) Get(ctx context.Context, groupID string) (*models.GroupOccupancy, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		return nil, notFoundOrInternal(err, "group not found", "failed to load group")
	}
	count, err := s.members.CountByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count group members")
	}
	occupancy := models.NewGroupOccupancy(*group, count)
	return &occupancy, nil
}

// AssignStudent places the student's enrollment for the group's course into the group.
// The group row lock serializes concurrent assignments so the live count cannot overshoot.
func (s *GroupService) AssignStudent(ctx context.Context, groupID, studentID, actorID string) (*dto.GroupMembershipResponse, error) {
	var result *dto.GroupMembershipResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		group, enrollment, err := s.lockMembership(ctx, groupID, studentID)
		if err != nil {
			return err
		}
		if enrollment == nil {
			return appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in the group's course")
		}
		if enrollment.Status == models.EnrollmentStatusRejected {
			return appErrors.WithDetails(appErrors.ErrInvalidTransition, "rejected enrollments cannot join a group",
				map[string]string{"current_status": string(enrollment.Status)})
		}
		if enrollment.InGroup(group.ID) {
			return appErrors.ErrAlreadyAssigned
		}
		if enrollment.GroupID != nil {
			return appErrors.WithDetails(appErrors.ErrAlreadyInAnotherGroup, "",
				map[string]string{"group_id": *enrollment.GroupID})
		}

		count, err := s.members.CountByGroup(ctx, group.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to count group members")
		}
		if count >= group.MaxStudents {
			return appErrors.WithDetails(appErrors.ErrGroupFull, "",
				map[string]int{"occupancy": count, "max_students": group.MaxStudents})
		}
		if group.Status != models.GroupStatusOpen {
			return appErrors.WithDetails(appErrors.ErrGroupClosed, "",
				map[string]string{"status": string(group.Status)})
		}

		if err := s.members.SetGroup(ctx, enrollment.ID, &group.ID); err != nil {
			return appErrors.Internal(err, "failed to assign student to group")
		}
		count++
		if count >= group.MaxStudents {
			if err := s.groups.UpdateStatus(ctx, group.ID, models.GroupStatusFull); err != nil {
				return appErrors.Internal(err, "failed to mark group full")
			}
			group.Status = models.GroupStatusFull
		}

		enrollment.GroupID = &group.ID
		result = &dto.GroupMembershipResponse{Enrollment: *enrollment, Group: models.NewGroupOccupancy(*group, count)}
		return nil
	})
	s.metrics.RecordAssignment(assignmentAssign, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student assigned to group",
		zap.String("group_id", groupID),
		zap.String("student_id", studentID),
		zap.Int("occupancy", result.Group.Occupancy),
		zap.String("actor_id", actorID))
	return result, nil
}

// RemoveStudent clears the student's group reference. A FULL group that drops below capacity reopens.
func (s *GroupService) RemoveStudent(ctx context.Context, groupID, studentID, actorID string) (*dto.GroupMembershipResponse, error) {
	var result *dto.GroupMembershipResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		group, enrollment, err := s.lockMembership(ctx, groupID, studentID)
		if err != nil {
			return err
		}
		if enrollment == nil || !enrollment.InGroup(group.ID) {
			return appErrors.ErrNotAssigned
		}

		if err := s.members.SetGroup(ctx, enrollment.ID, nil); err != nil {
			return appErrors.Internal(err, "failed to remove student from group")
		}
		count, err := s.members.CountByGroup(ctx, group.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to count group members")
		}
		if group.Status == models.GroupStatusFull && count < group.MaxStudents {
			if err := s.groups.UpdateStatus(ctx, group.ID, models.GroupStatusOpen); err != nil {
				return appErrors.Internal(err, "failed to reopen group")
			}
			group.Status = models.GroupStatusOpen
		}

		enrollment.GroupID = nil
		result = &dto.GroupMembershipResponse{Enrollment: *enrollment, Group: models.NewGroupOccupancy(*group, count)}
		return nil
	})
	s.metrics.RecordAssignment(assignmentRemove, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student removed from group",
		zap.String("group_id", groupID),
		zap.String("student_id", studentID),
		zap.Int("occupancy", result.Group.Occupancy),
		zap.String("actor_id", actorID))
	return result, nil
}

// lockMembership locks the group and then the student's enrollment in the group's course.
// A nil enrollment means the student exists but never enrolled in that course.
func (s *GroupService) lockMembership(ctx context.Context, groupID, studentID string) (*models.Group, *models.Enrollment, error) {
	group, err := s.groups.FindByIDForUpdate(ctx, groupID)
	if err != nil {
		return nil, nil, notFoundOrInternal(err, "group not found", "failed to load group")
	}
	if _, err := s.students.FindStudent(ctx, studentID); err != nil {
		return nil, nil, notFoundOrInternal(err, "student not found", "failed to load student")
	}
	enrollment, err := s.members.FindByStudentAndCourseForUpdate(ctx, studentID, group.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return group, nil, nil
		}
		return nil, nil, appErrors.Internal(err, "failed to load enrollment")
	}
	return group, enrollment, nil
}
