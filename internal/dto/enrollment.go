package dto

import "github.com/noah-isme/training-center-api/internal/models"

// CreateEnrollmentRequest registers a student for a course.
type CreateEnrollmentRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	CourseID  string  `json:"course_id" validate:"required"`
	Level     *string `json:"level" validate:"omitempty,max=64"`
}

// EnrollmentHistoryResponse is the audit trail of an enrollment together with a replay check.
type EnrollmentHistoryResponse struct {
	EnrollmentID   string                            `json:"enrollment_id"`
	CurrentStatus  models.EnrollmentStatus           `json:"current_status"`
	ReplayedStatus models.EnrollmentStatus           `json:"replayed_status"`
	Consistent     bool                              `json:"consistent"`
	Entries        []models.RegistrationHistoryEntry `json:"entries"`
}
