package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/admission-workflow-api/internal/middleware"
	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
)

type schoolServiceMock struct {
	err     error
	school  int64
	target  int64
	periods int
	user    int64
}

func (m *schoolServiceMock) SetActiveAcademicYear(_ context.Context, schoolID, yearID, _ int64) error {
	m.school, m.target = schoolID, yearID
	return m.err
}

func (m *schoolServiceMock) SetActiveAdmissionPeriod(_ context.Context, schoolID, periodID, _ int64) error {
	m.school, m.target = schoolID, periodID
	m.periods++
	return m.err
}

func (m *schoolServiceMock) RefreshRoles(_ context.Context, schoolID, userID, _ int64) error {
	m.school, m.user = schoolID, userID
	return m.err
}

func schoolRouter(svc schoolService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewSchoolHandler(svc)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: 5})
		c.Next()
	})
	router.PUT("/schools/:id/academic-years/active", h.SetActiveAcademicYear)
	router.PUT("/schools/:id/admission-periods/active", h.SetActiveAdmissionPeriod)
	router.POST("/schools/:id/users/:userId/roles/refresh", h.RefreshRoles)
	return router
}

func TestSchoolHandlerSetActive(t *testing.T) {
	svc := &schoolServiceMock{}
	router := schoolRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/schools/10/admission-periods/active", bytes.NewBufferString(`{"id":4}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(10), svc.school)
	assert.Equal(t, int64(4), svc.target)
	assert.Equal(t, 1, svc.periods)
}

func TestSchoolHandlerSetActiveForbidden(t *testing.T) {
	svc := &schoolServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "only school admins")}
	router := schoolRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/schools/10/academic-years/active", bytes.NewBufferString(`{"id":3}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestSchoolHandlerRefreshRoles(t *testing.T) {
	svc := &schoolServiceMock{}
	router := schoolRouter(svc)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/schools/10/users/4/roles/refresh", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(10), svc.school)
	assert.Equal(t, int64(4), svc.user)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/schools/10/users/abc/roles/refresh", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
