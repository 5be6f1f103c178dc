package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/skillmatch/internal/model"
)

func testCatalog() *Catalog {
	return New([]model.SkillCategory{
		{Category: "Backend", Skills: []string{"Go", "Java", "Python", "Kotlin"}},
		{Category: "Frontend", Skills: []string{"React", "TypeScript", "java"}},
	})
}

func TestResolveExactIgnoresCase(t *testing.T) {
	t.Parallel()
	c := testCatalog()
	sk, ok := c.Resolve("  python ")
	require.True(t, ok)
	require.Equal(t, "Python", sk)
	require.Equal(t, "Backend", c.CategoryOf(sk))
}

func TestResolveTypo(t *testing.T) {
	t.Parallel()
	c := testCatalog()
	sk, ok := c.Resolve("Pyhton")
	require.True(t, ok)
	require.Equal(t, "Python", sk)

	sk, ok = c.Resolve("typescrpt")
	require.True(t, ok)
	require.Equal(t, "TypeScript", sk)
}

func TestResolveRejectsFarInput(t *testing.T) {
	t.Parallel()
	c := testCatalog()
	_, ok := c.Resolve("haskell")
	require.False(t, ok)
	_, ok = c.Resolve("")
	require.False(t, ok)

	var nilCat *Catalog
	_, ok = nilCat.Resolve("go")
	require.False(t, ok)
}

func TestSkillsDeduplicated(t *testing.T) {
	t.Parallel()
	c := testCatalog()
	require.Equal(t, []string{"Go", "Java", "Kotlin", "Python", "React", "TypeScript"}, c.Skills())
	require.Equal(t, []string{"Java"}, c.Suggest("av", 0))
	require.Len(t, c.Suggest("", 2), 2)
	require.Len(t, c.Categories(), 2)
}
