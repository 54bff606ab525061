package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-workflow-api/internal/dto"
	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/internal/workflow"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
	"github.com/noah-isme/admission-workflow-api/pkg/response"
)

type paymentService interface {
	Create(ctx context.Context, req dto.CreatePaymentRequest, actorID int64) (*models.Payment, error)
	Get(ctx context.Context, id, actorID int64) (*models.Payment, error)
	ListByApplication(ctx context.Context, applicationID, actorID int64, status models.PaymentStatus) ([]models.Payment, error)
	History(ctx context.Context, id, actorID int64, limit, offset int) ([]models.ActivityLog, error)
	SubmitProof(ctx context.Context, id int64, req dto.SubmitProofRequest, actorID int64) (bool, *models.Payment, error)
	Verify(ctx context.Context, id int64, notes *string, actorID int64) (bool, *models.Payment, error)
	Reject(ctx context.Context, id int64, reason string, actorID int64) (bool, *models.Payment, error)
	Refund(ctx context.Context, id int64, actorID int64) (bool, *models.Payment, error)
}

// PaymentHandler exposes payment verification endpoints.
type PaymentHandler struct {
	service  paymentService
	registry *workflow.Registry
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(svc paymentService, registry *workflow.Registry) *PaymentHandler {
	if registry == nil {
		registry = workflow.DefaultRegistry()
	}
	return &PaymentHandler{service: svc, registry: registry}
}

// Create godoc
// @Summary Open payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body dto.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	var req dto.CreatePaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := h.service.Create(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, h.present(payment))
}

// Get godoc
// @Summary Get payment
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	payment, err := h.service.Get(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, h.present(payment), nil)
}

// ListByApplication godoc
// @Summary List application payments
// @Tags Payments
// @Produce json
// @Param id path int true "Application ID"
// @Param status query string false "Payment status; submitted is accepted for waiting_verification"
// @Success 200 {object} response.Envelope
// @Router /applications/{id}/payments [get]
func (h *PaymentHandler) ListByApplication(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	status := models.ParsePaymentStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown payment status"))
		return
	}
	payments, err := h.service.ListByApplication(c.Request.Context(), id, actor, status)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]dto.PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, h.present(&payments[i]))
	}
	response.JSON(c, http.StatusOK, out, nil)
}

// History godoc
// @Summary Payment activity log
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/history [get]
func (h *PaymentHandler) History(c *gin.Context) {
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

// SubmitProof godoc
// @Summary Submit proof of payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param payload body dto.SubmitProofRequest true "Proof metadata"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/proof [post]
func (h *PaymentHandler) SubmitProof(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitProofRequest
	if !bindJSON(c, &req) {
		return
	}
	changed, payment, err := h.service.SubmitProof(c.Request.Context(), id, req, actor)
	h.respondTransition(c, changed, payment, err)
}

// Verify godoc
// @Summary Verify payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param payload body dto.VerifyPaymentRequest false "Notes"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/verify [post]
func (h *PaymentHandler) Verify(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.VerifyPaymentRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	changed, payment, err := h.service.Verify(c.Request.Context(), id, req.Notes, actor)
	h.respondTransition(c, changed, payment, err)
}

// Reject godoc
// @Summary Reject payment
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Payment ID"
// @Param payload body dto.RejectPaymentRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/reject [post]
func (h *PaymentHandler) Reject(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.RejectPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	changed, payment, err := h.service.Reject(c.Request.Context(), id, req.Reason, actor)
	h.respondTransition(c, changed, payment, err)
}

// Refund godoc
// @Summary Refund payment
// @Tags Payments
// @Produce json
// @Param id path int true "Payment ID"
// @Success 200 {object} response.Envelope
// @Router /payments/{id}/refund [post]
func (h *PaymentHandler) Refund(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	changed, payment, err := h.service.Refund(c.Request.Context(), id, actor)
	h.respondTransition(c, changed, payment, err)
}

func (h *PaymentHandler) respondTransition(c *gin.Context, changed bool, payment *models.Payment, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.TransitionResponse{Changed: changed, Data: h.present(payment)}, nil)
}

func (h *PaymentHandler) present(payment *models.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		Payment:            payment,
		StatusMeta:         payment.Status.Meta(),
		AllowedTransitions: h.registry.Allowed(workflow.EntityPayment, string(payment.Status)),
	}
}
