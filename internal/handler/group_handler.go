package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/training-center-api/internal/dto"
	"github.com/noah-isme/training-center-api/internal/models"
	appErrors "github.com/noah-isme/training-center-api/pkg/errors"
	"github.com/noah-isme/training-center-api/pkg/response"
)

type groupService interface {
	Get(ctx context.Context, groupID string) (*models.GroupOccupancy, error)
	AssignStudent(ctx context.Context, groupID, studentID, actorID string) (*dto.GroupMembershipResponse, error)
	RemoveStudent(ctx context.Context, groupID, studentID, actorID string) (*dto.GroupMembershipResponse, error)
}

// GroupHandler exposes group seat management.
type GroupHandler struct {
	service groupService
}

// NewGroupHandler constructs the handler.
func NewGroupHandler(service groupService) *GroupHandler {
	return &GroupHandler{service: service}
}

// Get godoc
// @Summary Get a group with live occupancy
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Get(c *gin.Context) {
	group, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, group)
}

// AddStudent godoc
// @Summary Assign a student to a group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Param sid path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/students/{sid} [post]
func (h *GroupHandler) AddStudent(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.AssignStudent(c.Request.Context(), c.Param("id"), c.Param("sid"), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// RemoveStudent godoc
// @Summary Remove a student from a group
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Param sid path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/students/{sid} [delete]
func (h *GroupHandler) RemoveStudent(c *gin.Context) {
	actorID, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.service.RemoveStudent(c.Request.Context(), c.Param("id"), c.Param("sid"), actorID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
