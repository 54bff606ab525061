package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admission-workflow-api/internal/middleware"
	"github.com/noah-isme/admission-workflow-api/internal/models"
	appErrors "github.com/noah-isme/admission-workflow-api/pkg/errors"
	"github.com/noah-isme/admission-workflow-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorID writes a 401 and returns false when the request is anonymous.
func actorID(c *gin.Context) (int64, bool) {
	claims := claimsFromContext(c)
	if claims == nil || claims.UserID <= 0 {
		response.Error(c, appErrors.ErrUnauthorized)
		return 0, false
	}
	return claims.UserID, true
}

// pathID parses a positive numeric path parameter, writing a 400 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid "+name))
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func queryInt64(c *gin.Context, name string) int64 {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return v
		}
	}
	return 0
}
