package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-workflow-api/internal/dto"
	"github.com/noah-isme/admission-workflow-api/pkg/response"
)

type schoolService interface {
	SetActiveAcademicYear(ctx context.Context, schoolID, yearID, actorID int64) error
	SetActiveAdmissionPeriod(ctx context.Context, schoolID, periodID, actorID int64) error
	RefreshRoles(ctx context.Context, schoolID, userID, actorID int64) error
}

// SchoolHandler exposes school settings endpoints.
type SchoolHandler struct {
	service schoolService
}

// NewSchoolHandler constructs a school handler.
func NewSchoolHandler(svc schoolService) *SchoolHandler {
	return &SchoolHandler{service: svc}
}

// SetActiveAcademicYear godoc
// @Summary Set active academic year
// @Tags Schools
// @Accept json
// @Param id path int true "School ID"
// @Param payload body dto.SetActiveRequest true "Academic year"
// @Success 204
// @Router /schools/{id}/academic-years/active [put]
func (h *SchoolHandler) SetActiveAcademicYear(c *gin.Context) {
	h.setActive(c, h.service.SetActiveAcademicYear)
}

// SetActiveAdmissionPeriod godoc
// @Summary Set active admission period
// @Tags Schools
// @Accept json
// @Param id path int true "School ID"
// @Param payload body dto.SetActiveRequest true "Admission period"
// @Success 204
// @Router /schools/{id}/admission-periods/active [put]
func (h *SchoolHandler) SetActiveAdmissionPeriod(c *gin.Context) {
	h.setActive(c, h.service.SetActiveAdmissionPeriod)
}

// RefreshRoles godoc
// @Summary Refresh cached roles of a user
// @Tags Schools
// @Param id path int true "School ID"
// @Param userId path int true "User ID"
// @Success 204
// @Router /schools/{id}/users/{userId}/roles/refresh [post]
func (h *SchoolHandler) RefreshRoles(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	schoolID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	if err := h.service.RefreshRoles(c.Request.Context(), schoolID, userID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *SchoolHandler) setActive(c *gin.Context, apply func(ctx context.Context, schoolID, id, actorID int64) error) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	schoolID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := apply(c.Request.Context(), schoolID, req.ID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
