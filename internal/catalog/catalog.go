// Package catalog holds the read-only skill taxonomy (group → subgroup → skill)
// used to populate choice lists and normalise course identifiers.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/skillpath-api/internal/models"
)

// ErrUnknownCourse is returned when a course does not exist in a non-empty catalog.
var ErrUnknownCourse = errors.New("course not found in skill catalog")

// ErrUnknownSkill is returned when a skill name does not exist in a non-empty catalog.
var ErrUnknownSkill = errors.New("skill not found in skill catalog")

// Group is a top level catalog entry.
type Group struct {
	Name      string     `yaml:"group" json:"group"`
	Subgroups []Subgroup `yaml:"subgroups" json:"subgroups"`
}

// Subgroup nests skills under a group.
type Subgroup struct {
	Name   string  `yaml:"name" json:"name"`
	Skills []Entry `yaml:"skills" json:"skills"`
}

// Entry is a single skill name.
type Entry struct {
	Skill       string `yaml:"skill" json:"skill"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type placement struct {
	group    string
	subgroup string
}

// Catalog is an immutable lookup structure built once at startup and shared
// by every request.
type Catalog struct {
	groups  []Group
	courses map[string]models.Course
	skills  map[string]placement
}

// Load reads the YAML file at path. A missing file yields an empty catalog.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(nil), nil
		}
		return nil, fmt.Errorf("read skill catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document into a Catalog.
func Parse(raw []byte) (*Catalog, error) {
	var groups []Group
	if err := yaml.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("decode skill catalog: %w", err)
	}
	for i, group := range groups {
		if strings.TrimSpace(group.Name) == "" {
			return nil, fmt.Errorf("skill catalog entry %d: group name is required", i)
		}
		for j, sub := range group.Subgroups {
			if strings.TrimSpace(sub.Name) == "" {
				return nil, fmt.Errorf("skill catalog group %q subgroup %d: name is required", group.Name, j)
			}
		}
	}
	return New(groups), nil
}

// New indexes the provided groups.
func New(groups []Group) *Catalog {
	c := &Catalog{
		groups:  groups,
		courses: make(map[string]models.Course),
		skills:  make(map[string]placement),
	}
	for _, group := range groups {
		for _, sub := range group.Subgroups {
			for _, entry := range sub.Skills {
				course := models.NewCourse(group.Name, sub.Name, entry.Skill)
				if course.IsZero() {
					continue
				}
				c.courses[foldKey(course)] = course
				skillKey := strings.ToLower(course.Name)
				if _, exists := c.skills[skillKey]; !exists {
					c.skills[skillKey] = placement{group: course.Group, subgroup: course.Subgroup}
				}
			}
		}
	}
	return c
}

// Groups returns the catalog tree. Callers must not modify the result.
func (c *Catalog) Groups() []Group {
	if c == nil {
		return nil
	}
	return c.groups
}

// Empty reports whether the catalog has no skills.
func (c *Catalog) Empty() bool {
	return c == nil || len(c.courses) == 0
}

// Size returns the number of distinct courses.
func (c *Catalog) Size() int {
	if c == nil {
		return 0
	}
	return len(c.courses)
}

// Resolve normalises a free-text course into its canonical labels. With an
// empty catalog the trimmed input is returned unchanged.
func (c *Catalog) Resolve(course models.Course) (models.Course, error) {
	course = models.NewCourse(course.Group, course.Subgroup, course.Name)
	if c.Empty() {
		return course, nil
	}
	canonical, ok := c.courses[foldKey(course)]
	if !ok {
		return course, ErrUnknownCourse
	}
	return canonical, nil
}

// LookupSkill returns the group and subgroup a skill name belongs to.
func (c *Catalog) LookupSkill(name string) (models.Course, error) {
	name = strings.TrimSpace(name)
	if c.Empty() {
		return models.Course{Group: "Unknown", Subgroup: "Unknown", Name: name}, nil
	}
	p, ok := c.skills[strings.ToLower(name)]
	if !ok {
		return models.Course{}, ErrUnknownSkill
	}
	canonical := c.courses[foldKey(models.Course{Group: p.group, Subgroup: p.subgroup, Name: name})]
	return canonical, nil
}

func foldKey(course models.Course) string {
	return strings.ToLower(course.Key())
}
