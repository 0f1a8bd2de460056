package models

import "time"

// GroupStatus is the operational state of a course group.
type GroupStatus string

const (
	GroupStatusOpen     GroupStatus = "OPEN"
	GroupStatusClosed   GroupStatus = "CLOSED"
	GroupStatusFull     GroupStatus = "FULL"
	GroupStatusFinished GroupStatus = "FINISHED"
)

// Group is a capacity-bounded cohort for one course at one level.
type Group struct {
	ID           string      `db:"id" json:"id"`
	CourseID     string      `db:"course_id" json:"course_id"`
	Name         string      `db:"name" json:"name"`
	Level        *string     `db:"level" json:"level,omitempty"`
	MaxStudents  int         `db:"max_students" json:"max_students"`
	Status       GroupStatus `db:"status" json:"status"`
	TeacherID    *string     `db:"teacher_id" json:"teacher_id,omitempty"`
	DepartmentID *string     `db:"department_id" json:"department_id,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
}

// GroupOccupancy is a group with its live seat count.
type GroupOccupancy struct {
	Group
	Occupancy      int `json:"occupancy"`
	AvailableSeats int `json:"available_seats"`
}

// NewGroupOccupancy derives seat availability from a live member count.
func NewGroupOccupancy(group Group, members int) GroupOccupancy {
	available := group.MaxStudents - members
	if available < 0 {
		available = 0
	}
	return GroupOccupancy{Group: group, Occupancy: members, AvailableSeats: available}
}
