package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	"github.com/noah-isme/skillpath-api/pkg/response"
)

type profileService interface {
	Profile(ctx context.Context, userID string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
}

type skillService interface {
	List(ctx context.Context, userID string) (models.GroupedSkills, error)
	Upsert(ctx context.Context, userID string, req dto.UpsertSkillRequest) (*models.Skill, error)
	Delete(ctx context.Context, userID, skillName string) error
}

// ProfileHandler serves the authenticated user's profile and skill record.
type ProfileHandler struct {
	profiles profileService
	skills   skillService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(profiles profileService, skills skillService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, skills: skills}
}

// GetProfile godoc
// @Summary Get my profile
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/profile [get]
func (h *ProfileHandler) GetProfile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	profile, err := h.profiles.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// UpdateProfile godoc
// @Summary Update my profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body dto.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /me/profile [put]
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid profile payload"))
		return
	}
	profile, err := h.profiles.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// ListSkills godoc
// @Summary List my skills grouped by group and subgroup
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /me/skills [get]
func (h *ProfileHandler) ListSkills(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	skills, err := h.skills.List(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, skills, nil)
}

// UpsertSkill godoc
// @Summary Set the level of one of my skills
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body dto.UpsertSkillRequest true "Skill payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /me/skills [put]
func (h *ProfileHandler) UpsertSkill(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.UpsertSkillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid skill payload"))
		return
	}
	skill, err := h.skills.Upsert(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, skill, nil)
}

// DeleteSkill godoc
// @Summary Remove one of my skills
// @Tags Profile
// @Param skill_name path string true "Skill name"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /me/skills/{skill_name} [delete]
func (h *ProfileHandler) DeleteSkill(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	if err := h.skills.Delete(c.Request.Context(), claims.UserID, c.Param("skill_name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
