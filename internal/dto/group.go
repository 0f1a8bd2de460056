package dto

import "github.com/noah-isme/training-center-api/internal/models"

// GroupMembershipResponse returns the enrollment touched by an assign/remove and the group's new occupancy.
type GroupMembershipResponse struct {
	Enrollment models.Enrollment     `json:"enrollment"`
	Group      models.GroupOccupancy `json:"group"`
}
