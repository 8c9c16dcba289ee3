package models

import "time"

// Skill level bounds.
const (
	MinSkillLevel = 0
	MaxSkillLevel = 100
)

// Skill pairs a user with a level for one catalog skill. Group and subgroup
// are denormalised from the catalog for filtering.
type Skill struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	SkillName   string    `db:"skill_name" json:"skill_name"`
	Group       string    `db:"skill_group" json:"skill_group"`
	Subgroup    string    `db:"skill_subgroup" json:"skill_subgroup"`
	Level       int       `db:"level" json:"level"`
	LastUpdated time.Time `db:"last_updated" json:"last_updated"`
}

// ClampLevel bounds a level to [MinSkillLevel, MaxSkillLevel].
func ClampLevel(level int) int {
	if level < MinSkillLevel {
		return MinSkillLevel
	}
	if level > MaxSkillLevel {
		return MaxSkillLevel
	}
	return level
}

// GroupedSkills nests skills by group then subgroup.
type GroupedSkills map[string]map[string][]Skill

// GroupSkills arranges a flat slice into GroupedSkills.
func GroupSkills(skills []Skill) GroupedSkills {
	grouped := make(GroupedSkills)
	for _, skill := range skills {
		if grouped[skill.Group] == nil {
			grouped[skill.Group] = make(map[string][]Skill)
		}
		grouped[skill.Group][skill.Subgroup] = append(grouped[skill.Group][skill.Subgroup], skill)
	}
	return grouped
}
