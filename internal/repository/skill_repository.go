package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/skillpath-api/internal/models"
)

// SkillRepository persists per-user skill levels.
type SkillRepository struct {
	db *sqlx.DB
}

// NewSkillRepository constructs the repository.
func NewSkillRepository(db *sqlx.DB) *SkillRepository {
	return &SkillRepository{db: db}
}

// ListByUser returns a user's skills ordered by group, subgroup and name.
func (r *SkillRepository) ListByUser(ctx context.Context, userID string) ([]models.Skill, error) {
	const query = `SELECT id, user_id, skill_name, skill_group, skill_subgroup, level, last_updated FROM skills
WHERE user_id = $1 ORDER BY skill_group, skill_subgroup, skill_name`
	var skills []models.Skill
	if err := r.db.SelectContext(ctx, &skills, query, userID); err != nil {
		return nil, fmt.Errorf("list skills: %w", err)
	}
	return skills, nil
}

// Upsert stores the level for (user, skill), replacing any previous value.
func (r *SkillRepository) Upsert(ctx context.Context, skill *models.Skill) error {
	if skill.ID == "" {
		skill.ID = uuid.NewString()
	}
	skill.LastUpdated = time.Now().UTC()
	const query = `INSERT INTO skills (id, user_id, skill_name, skill_group, skill_subgroup, level, last_updated)
VALUES (:id, :user_id, :skill_name, :skill_group, :skill_subgroup, :level, :last_updated)
ON CONFLICT (user_id, skill_name) DO UPDATE SET level = EXCLUDED.level, skill_group = EXCLUDED.skill_group,
skill_subgroup = EXCLUDED.skill_subgroup, last_updated = EXCLUDED.last_updated
RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, skill)
	if err != nil {
		return fmt.Errorf("upsert skill: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&skill.ID); err != nil {
			return fmt.Errorf("scan skill id: %w", err)
		}
	}
	return rows.Err()
}

// Delete removes one of the user's skills. It reports whether a row was removed.
func (r *SkillRepository) Delete(ctx context.Context, userID, skillName string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM skills WHERE user_id = $1 AND skill_name = $2`, userID, skillName)
	if err != nil {
		return false, fmt.Errorf("delete skill: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("skill rows affected: %w", err)
	}
	return affected > 0, nil
}
