package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/skillpath-api/internal/models"
)

const sampleYAML = `
- group: Math
  subgroups:
    - name: Algebra
      skills:
        - skill: Fractions
        - skill: Linear Equations
- group: Life Skills
  subgroups:
    - name: Cooking
      skills:
        - skill: Baking
`

func TestParseAndResolve(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Size())
	assert.Len(t, c.Groups(), 2)

	course, err := c.Resolve(models.NewCourse(" math ", "ALGEBRA", "fractions"))
	require.NoError(t, err)
	assert.Equal(t, models.Course{Group: "Math", Subgroup: "Algebra", Name: "Fractions"}, course)

	_, err = c.Resolve(models.NewCourse("Math", "Algebra", "Calculus"))
	assert.ErrorIs(t, err, ErrUnknownCourse)
}

func TestLookupSkill(t *testing.T) {
	c, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	course, err := c.LookupSkill("baking")
	require.NoError(t, err)
	assert.Equal(t, "Life Skills", course.Group)
	assert.Equal(t, "Cooking", course.Subgroup)
	assert.Equal(t, "Baking", course.Name)

	_, err = c.LookupSkill("juggling")
	assert.ErrorIs(t, err, ErrUnknownSkill)
}

func TestParseRejectsMissingGroupName(t *testing.T) {
	_, err := Parse([]byte("- subgroups: []\n"))
	assert.Error(t, err)
}

func TestLoadMissingFileYieldsEmptyCatalog(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.True(t, c.Empty())

	course, err := c.Resolve(models.NewCourse(" Art ", "Drawing", "Shading "))
	require.NoError(t, err)
	assert.Equal(t, "Art", course.Group)
	assert.Equal(t, "Shading", course.Name)
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	assert.False(t, c.Empty())
}
