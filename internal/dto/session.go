package dto

import "time"

// CreateSessionRequest proposes a session. EndTime defaults to StartTime plus the configured duration.
type CreateSessionRequest struct {
	CourseID  string     `json:"course_id" validate:"required"`
	TeacherID string     `json:"teacher_id" validate:"required"`
	GroupID   string     `json:"group_id" validate:"required"`
	RoomID    *string    `json:"room_id" validate:"omitempty,min=1"`
	StartTime time.Time  `json:"start_time" validate:"required"`
	EndTime   *time.Time `json:"end_time"`
	Topic     string     `json:"topic" validate:"max=255"`
}
