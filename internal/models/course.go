package models

import (
	"fmt"
	"strings"
)

// Course identifies a course by its skill taxonomy labels. It is a comparable
// value type and the only place the (group, subgroup, name) triple is compared.
type Course struct {
	Group    string `db:"skill_group" json:"skill_group" validate:"required,max=200"`
	Subgroup string `db:"skill_subgroup" json:"skill_subgroup" validate:"required,max=200"`
	Name     string `db:"skill_name" json:"skill_name" validate:"required,max=200"`
}

// NewCourse builds a Course trimming surrounding whitespace from every label.
func NewCourse(group, subgroup, name string) Course {
	return Course{
		Group:    strings.TrimSpace(group),
		Subgroup: strings.TrimSpace(subgroup),
		Name:     strings.TrimSpace(name),
	}
}

// IsZero reports whether any label is missing.
func (c Course) IsZero() bool {
	return c.Group == "" || c.Subgroup == "" || c.Name == ""
}

// Key is a stable identifier used for cache keys and advisory locks.
func (c Course) Key() string {
	return fmt.Sprintf("%s|%s|%s", c.Group, c.Subgroup, c.Name)
}

// FullName renders the course for display.
func (c Course) FullName() string {
	return fmt.Sprintf("%s > %s > %s", c.Group, c.Subgroup, c.Name)
}

func (c Course) String() string {
	return c.Group + "/" + c.Subgroup + "/" + c.Name
}
