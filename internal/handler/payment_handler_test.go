package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-workflow-api/internal/dto"
	"github.com/noah-isme/admission-workflow-api/internal/middleware"
	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
	"github.com/noah-isme/admission-workflow-api/pkg/response"
)

type paymentServiceMock struct {
	payment    *models.Payment
	changed    bool
	err        error
	lastNotes  *string
	lastReason string
	lastProof  dto.SubmitProofRequest
	lastStatus models.PaymentStatus
}

func (m *paymentServiceMock) Create(context.Context, dto.CreatePaymentRequest, int64) (*models.Payment, error) {
	return m.payment, m.err
}

func (m *paymentServiceMock) Get(context.Context, int64, int64) (*models.Payment, error) {
	return m.payment, m.err
}

func (m *paymentServiceMock) ListByApplication(_ context.Context, _ int64, _ int64, status models.PaymentStatus) ([]models.Payment, error) {
	m.lastStatus = status
	if m.err != nil {
		return nil, m.err
	}
	return []models.Payment{*m.payment}, nil
}

func (m *paymentServiceMock) History(context.Context, int64, int64, int, int) ([]models.ActivityLog, error) {
	return nil, m.err
}

func (m *paymentServiceMock) SubmitProof(_ context.Context, _ int64, req dto.SubmitProofRequest, _ int64) (bool, *models.Payment, error) {
	m.lastProof = req
	return m.changed, m.payment, m.err
}

func (m *paymentServiceMock) Verify(_ context.Context, _ int64, notes *string, _ int64) (bool, *models.Payment, error) {
	m.lastNotes = notes
	return m.changed, m.payment, m.err
}

func (m *paymentServiceMock) Reject(_ context.Context, _ int64, reason string, _ int64) (bool, *models.Payment, error) {
	m.lastReason = reason
	return m.changed, m.payment, m.err
}

func (m *paymentServiceMock) Refund(context.Context, int64, int64) (bool, *models.Payment, error) {
	return m.changed, m.payment, m.err
}

func paymentRouter(svc paymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPaymentHandler(svc, nil)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 4})
		c.Next()
	})
	router.POST("/payments/:id/proof", h.SubmitProof)
	router.POST("/payments/:id/verify", h.Verify)
	router.POST("/payments/:id/reject", h.Reject)
	router.POST("/payments/:id/refund", h.Refund)
	router.GET("/applications/:id/payments", h.ListByApplication)
	return router
}

func TestPaymentHandlerVerify(t *testing.T) {
	svc := &paymentServiceMock{payment: &models.Payment{ID: 30, Status: models.PaymentStatusVerified}, changed: true}
	router := paymentRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/payments/30/verify", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, svc.lastNotes)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	data := env.Data.(map[string]interface{})
	assert.Equal(t, true, data["changed"])
	payment := data["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"refunded"}, payment["allowedTransitions"])
}

func TestPaymentHandlerRejectRequiresBody(t *testing.T) {
	svc := &paymentServiceMock{payment: &models.Payment{ID: 30}}
	router := paymentRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/30/reject", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentHandlerCrossTenantVerify(t *testing.T) {
	svc := &paymentServiceMock{err: appErrors.Clone(appErrors.ErrUnauthorizedTransition, "actor has no access to payment 30")}
	router := paymentRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/payments/30/verify", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED_TRANSITION")
}

func TestPaymentHandlerListByApplication(t *testing.T) {
	svc := &paymentServiceMock{payment: &models.Payment{ID: 30, ApplicationID: 7, Status: models.PaymentStatusPending}}
	router := paymentRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/applications/7/payments", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"transaction_code"`)
	assert.Contains(t, w.Body.String(), `"waiting_verification"`)
}

func TestPaymentHandlerListByApplicationStatusFilter(t *testing.T) {
	svc := &paymentServiceMock{payment: &models.Payment{ID: 30, ApplicationID: 7, Status: models.PaymentStatusWaitingVerification}}
	router := paymentRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/applications/7/payments?status=Submitted", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PaymentStatusWaitingVerification, svc.lastStatus)

	svc.lastStatus = ""
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/applications/7/payments?status=paid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.lastStatus)
}
