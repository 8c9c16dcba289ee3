package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
)

type profileServiceMock struct {
	updated dto.UpdateProfileRequest
}

func (m *profileServiceMock) Profile(ctx context.Context, userID string) (*dto.ProfileResponse, error) {
	return &dto.ProfileResponse{User: models.UserInfo{ID: userID}, Profile: models.Profile{UserID: userID, Name: "Ada"}}, nil
}

func (m *profileServiceMock) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	m.updated = req
	return &dto.ProfileResponse{Profile: models.Profile{UserID: userID, City: req.City}}, nil
}

type skillServiceMock struct {
	upserted dto.UpsertSkillRequest
	deleted  string
	err      error
}

func (m *skillServiceMock) List(ctx context.Context, userID string) (models.GroupedSkills, error) {
	return models.GroupSkills([]models.Skill{{UserID: userID, Group: "Math", Subgroup: "Algebra", SkillName: "Fractions", Level: 40}}), nil
}

func (m *skillServiceMock) Upsert(ctx context.Context, userID string, req dto.UpsertSkillRequest) (*models.Skill, error) {
	m.upserted = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Skill{UserID: userID, SkillName: req.SkillName, Level: models.ClampLevel(req.Level)}, nil
}

func (m *skillServiceMock) Delete(ctx context.Context, userID, skillName string) error {
	m.deleted = skillName
	return m.err
}

func TestProfileHandlerUpdate(t *testing.T) {
	profiles := &profileServiceMock{}
	h := NewProfileHandler(profiles, &skillServiceMock{})

	c, w := newGinContext(http.MethodPut, "/me/profile", []byte(`{"city":"London"}`))
	asLearner(c)
	h.UpdateProfile(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "London", profiles.updated.City)
}

func TestProfileHandlerRequiresAuth(t *testing.T) {
	h := NewProfileHandler(&profileServiceMock{}, &skillServiceMock{})

	c, w := newGinContext(http.MethodGet, "/me/profile", nil)
	h.GetProfile(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileHandlerListSkillsGrouped(t *testing.T) {
	h := NewProfileHandler(&profileServiceMock{}, &skillServiceMock{})

	c, w := newGinContext(http.MethodGet, "/me/skills", nil)
	asLearner(c)
	h.ListSkills(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Math":{"Algebra":[`)
}

func TestProfileHandlerUpsertUnknownSkill(t *testing.T) {
	skills := &skillServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "unknown skill")}
	h := NewProfileHandler(&profileServiceMock{}, skills)

	c, w := newGinContext(http.MethodPut, "/me/skills", []byte(`{"skill_name":"Juggling","level":50}`))
	asLearner(c)
	h.UpsertSkill(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Juggling", skills.upserted.SkillName)
}

func TestProfileHandlerDeleteSkill(t *testing.T) {
	skills := &skillServiceMock{}
	h := NewProfileHandler(&profileServiceMock{}, skills)

	c, w := newGinContext(http.MethodDelete, "/me/skills/Fractions", nil)
	c.Params = gin.Params{{Key: "skill_name", Value: "Fractions"}}
	asLearner(c)
	h.DeleteSkill(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Fractions", skills.deleted)
}
