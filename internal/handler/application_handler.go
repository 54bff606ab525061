package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-workflow-api/internal/dto"
	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
	"github.com/noah-isme/admission-workflow-api/pkg/response"
)

type applicationService interface {
	Create(ctx context.Context, req dto.CreateApplicationRequest, actorID int64) (*models.Application, error)
	Get(ctx context.Context, id, actorID int64) (*models.Application, error)
	List(ctx context.Context, query dto.ApplicationQuery, actorID int64) ([]models.Application, *models.Pagination, error)
	History(ctx context.Context, id, actorID int64, limit, offset int) ([]models.ActivityLog, error)
	Submit(ctx context.Context, id, actorID int64) (bool, *models.Application, error)
	TransitionStatus(ctx context.Context, id int64, req dto.TransitionApplicationRequest, actorID int64) (bool, *models.Application, error)
	Withdraw(ctx context.Context, id int64, reason *string, actorID int64) (bool, *models.Application, error)
	UpdateDetails(ctx context.Context, id int64, req dto.UpdateApplicationRequest, actorID int64) (*models.Application, error)
}

// ApplicationHandler exposes the admission application endpoints.
type ApplicationHandler struct {
	service  applicationService
	registry *workflow.Registry
}

// NewApplicationHandler constructs an application handler.
func NewApplicationHandler(svc applicationService, registry *workflow.Registry) *ApplicationHandler {
	if registry == nil {
		registry = workflow.DefaultRegistry()
	}
	return &ApplicationHandler{service: svc, registry: registry}
}

// Create godoc
// @Summary Create application
// @Description Open a draft application for the authenticated parent
// @Tags Applications
// @Accept json
// @Produce json
// @Param payload body dto.CreateApplicationRequest true "Application payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /applications [post]
func (h *ApplicationHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreateApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.present(app))
}

// List godoc
// @Summary List applications
// @Description Staff see the applications of their school; parents see their own
// @Tags Applications
// @Produce json
// @Param schoolId query int false "School"
// @Param admissionPeriodId query int false "Admission period"
// @Param status query string false "Comma separated statuses"
// @Param search query string false "Application number or student name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /applications [get]
func (h *ApplicationHandler) List(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	query := dto.ApplicationQuery{
		SchoolID:          queryInt64(c, "schoolId"),
		AdmissionPeriodID: queryInt64(c, "admissionPeriodId"),
		Search:            strings.TrimSpace(c.Query("search")),
		Page:              queryInt(c, "page", 1),
		PageSize:          queryInt(c, "limit", 20),
	}
	if raw := c.Query("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				query.Status = append(query.Status, models.ApplicationStatus(strings.ToLower(part)))
			}
		}
	}

	apps, pagination, err := h.service.List(c.Request.Context(), query, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		out = append(out, h.present(&apps[i]))
	}
	response.JSON(c, http.StatusOK, out, pagination)
}

// Get godoc
// @Summary Get application
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /applications/{id} [get]
func (h *ApplicationHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := h.service.Get(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present(app), nil)
}

// Update godoc
// @Summary Update application details
// @Description Student identity, school, period and level are locked once the application leaves draft
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.UpdateApplicationRequest true "Changed fields"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /applications/{id} [patch]
func (h *ApplicationHandler) Update(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	app, err := h.service.UpdateDetails(c.Request.Context(), id, req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present(app), nil)
}

// Submit godoc
// @Summary Submit application
// @Description Idempotent: an application that already left draft returns changed=false
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /applications/{id}/submit [post]
func (h *ApplicationHandler) Submit(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, app, err := h.service.Submit(c.Request.Context(), id, actor)
	h.respondTransition(c, changed, app, err)
}

// Transition godoc
// @Summary Change application status
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.TransitionApplicationRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /applications/{id}/transition [post]
func (h *ApplicationHandler) Transition(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Status = strings.ToLower(strings.TrimSpace(req.Status))
	req.ExpectedStatus = strings.ToLower(strings.TrimSpace(req.ExpectedStatus))
	changed, app, err := h.service.TransitionStatus(c.Request.Context(), id, req, actor)
	h.respondTransition(c, changed, app, err)
}

// Withdraw godoc
// @Summary Withdraw application
// @Tags Applications
// @Accept json
// @Produce json
// @Param id path int true "Application ID"
// @Param payload body dto.WithdrawApplicationRequest false "Reason"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/withdraw [post]
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.WithdrawApplicationRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	changed, app, err := h.service.Withdraw(c.Request.Context(), id, req.Reason, actor)
	h.respondTransition(c, changed, app, err)
}

// History godoc
// @Summary Application activity log
// @Tags Applications
// @Produce json
// @Param id path int true "Application ID"
// @Param limit query int false "Max entries"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/history [get]
func (h *ApplicationHandler) History(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entries, err := h.service.History(c.Request.Context(), id, actor, queryInt(c, "limit", 50), queryInt(c, "offset", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Statuses godoc
// @Summary Application status catalog
// @Description Every application status with display metadata, its allowed next statuses and whether it is final
// @Tags Applications
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /applications/statuses [get]
func (h *ApplicationHandler) Statuses(c *gin.Context) {
	out := make([]dto.StatusCatalogEntry, 0, len(models.ApplicationStatuses))
	for _, status := range models.ApplicationStatuses {
		out = append(out, dto.StatusCatalogEntry{
			Status:   string(status),
			Meta:     status.Meta(),
			Next:     h.registry.Allowed(workflow.EntityApplication, string(status)),
			Terminal: h.registry.IsTerminal(workflow.EntityApplication, string(status)),
		})
	}
	response.JSON(c, http.StatusOK, out, nil)
}

func (h *ApplicationHandler) respondTransition(c *gin.Context, changed bool, app *models.Application, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TransitionResponse{Changed: changed, Data: h.present(app)}, nil)
}

func (h *ApplicationHandler) present(app *models.Application) dto.ApplicationResponse {
	return dto.ApplicationResponse{
		Application:        app,
		StatusMeta:         app.Status.Meta(),
		AllowedTransitions: h.registry.Allowed(workflow.EntityApplication, string(app.Status)),
	}
}
