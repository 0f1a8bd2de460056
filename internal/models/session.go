package models

import "time"

// Session is one scheduled meeting of a group. The interval is half-open: [StartTime, EndTime).
type Session struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	RoomID    *string   `db:"room_id" json:"room_id,omitempty"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Topic     string    `db:"topic" json:"topic"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Overlaps applies the half-open rule: touching endpoints do not overlap.
func (s Session) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// ActiveAt reports start <= at < end.
func (s Session) ActiveAt(at time.Time) bool {
	return !at.Before(s.StartTime) && at.Before(s.EndTime)
}

// InRoom reports whether the session is booked in roomID.
func (s Session) InRoom(roomID string) bool {
	return s.RoomID != nil && *s.RoomID == roomID
}

// ResourceKind distinguishes the two independent conflict classes.
type ResourceKind string

const (
	ResourceTeacher ResourceKind = "teacher"
	ResourceRoom    ResourceKind = "room"
)

// ScheduleConflict identifies the resource and the existing session a proposal collides with.
type ScheduleConflict struct {
	Resource   ResourceKind `json:"resource"`
	ResourceID string       `json:"resource_id"`
	SessionID  string       `json:"session_id"`
	StartTime  time.Time    `json:"start_time"`
	EndTime    time.Time    `json:"end_time"`
}
