package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/skillpath-api/internal/middleware"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
	"github.com/noah-isme/skillpath-api/pkg/response"
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

// requireClaims writes a 401 and returns nil when the request is unauthenticated.
func requireClaims(c *gin.Context) *models.JWTClaims {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
	}
	return claims
}

// idParam returns the path parameter when it is a UUID. Anything else cannot
// match a stored row, so a 404 is written and ok is false.
func idParam(c *gin.Context, key, resource string) (string, bool) {
	raw := c.Param(key)
	if _, err := uuid.Parse(raw); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, resource+" not found"))
		return "", false
	}
	return raw, true
}

func courseFromQuery(c *gin.Context) models.Course {
	return models.NewCourse(c.Query("skill_group"), c.Query("skill_subgroup"), c.Query("skill_name"))
}

func pageFromQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return page, size
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
