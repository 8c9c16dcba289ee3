package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/skillpath-api/internal/catalog"
	"github.com/noah-isme/skillpath-api/internal/dto"
	"github.com/noah-isme/skillpath-api/internal/models"
	appErrors "github.com/noah-isme/skillpath-api/pkg/errors"
)

type skillRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Skill, error)
	Upsert(ctx context.Context, skill *models.Skill) error
	Delete(ctx context.Context, userID, skillName string) (bool, error)
}

type skillLookup interface {
	LookupSkill(name string) (models.Course, error)
}

// SkillService manages a user's self-reported skill levels.
type SkillService struct {
	repo      skillRepository
	catalog   skillLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSkillService constructs SkillService.
func NewSkillService(repo skillRepository, lookup skillLookup, validate *validator.Validate, logger *zap.Logger) *SkillService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &SkillService{repo: repo, catalog: lookup, validator: validate, logger: logger}
}

// List returns the user's skills grouped by group then subgroup.
func (s *SkillService) List(ctx context.Context, userID string) (models.GroupedSkills, error) {
	skills, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list skills")
	}
	return models.GroupSkills(skills), nil
}

// Upsert records a level for a catalog skill, clamping it into range.
func (s *SkillService) Upsert(ctx context.Context, userID string, req dto.UpsertSkillRequest) (*models.Skill, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid skill payload")
	}
	placement, err := s.catalog.LookupSkill(req.SkillName)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownSkill) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown skill "+req.SkillName)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up skill")
	}

	skill := &models.Skill{
		UserID:      userID,
		SkillName:   placement.Name,
		Group:       placement.Group,
		Subgroup:    placement.Subgroup,
		Level:       models.ClampLevel(req.Level),
		LastUpdated: time.Now().UTC(),
	}
	if err := s.repo.Upsert(ctx, skill); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save skill")
	}
	s.logger.Debug("skill saved", zap.String("user_id", userID), zap.String("skill", skill.SkillName), zap.Int("level", skill.Level))
	return skill, nil
}

// Delete removes a skill from the user's record.
func (s *SkillService) Delete(ctx context.Context, userID, skillName string) error {
	deleted, err := s.repo.Delete(ctx, userID, skillName)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete skill")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "skill not found")
	}
	return nil
}
