package models

import "time"

// EnrollmentStatus represents the approval workflow of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. REJECTED and FINISHED are terminal.
const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusValidated EnrollmentStatus = "VALIDATED"
	EnrollmentStatusPaid      EnrollmentStatus = "PAID"
	EnrollmentStatusFinished  EnrollmentStatus = "FINISHED"
	EnrollmentStatusRejected  EnrollmentStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusValidated, EnrollmentStatusPaid,
		EnrollmentStatusFinished, EnrollmentStatusRejected:
		return true
	}
	return false
}

// EnrollmentAction names an administrative step applied to an enrollment.
type EnrollmentAction string

const (
	EnrollmentActionValidate EnrollmentAction = "validate"
	EnrollmentActionReject   EnrollmentAction = "reject"
	EnrollmentActionMarkPaid EnrollmentAction = "mark-paid"
	EnrollmentActionFinish   EnrollmentAction = "finish"
)

// Enrollment captures one student's registration for one course.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	CourseID   string           `db:"course_id" json:"course_id"`
	GroupID    *string          `db:"group_id" json:"group_id"`
	Level      *string          `db:"level" json:"level,omitempty"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// InGroup reports whether the enrollment currently references groupID.
func (e *Enrollment) InGroup(groupID string) bool {
	return e.GroupID != nil && *e.GroupID == groupID
}

// RegistrationHistoryEntry is an immutable record of one status transition.
type RegistrationHistoryEntry struct {
	ID           string           `db:"id" json:"id"`
	EnrollmentID string           `db:"enrollment_id" json:"enrollment_id"`
	OldStatus    EnrollmentStatus `db:"old_status" json:"old_status"`
	NewStatus    EnrollmentStatus `db:"new_status" json:"new_status"`
	ChangedBy    string           `db:"changed_by" json:"changed_by"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}
