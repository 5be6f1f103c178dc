// Package catalog resolves user-typed skill names against the skill list the
// match API knows about.
package catalog

import (
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/skillmatch/internal/model"
)

// MaxDistance is the largest edit distance still accepted as a typo.
const MaxDistance = 2

type Catalog struct {
	categories []model.SkillCategory
	skills     []string
	byFold     map[string]string
	category   map[string]string
}

func New(categories []model.SkillCategory) *Catalog {
	c := &Catalog{
		byFold:   map[string]string{},
		category: map[string]string{},
	}
	for _, cat := range categories {
		cat.Skills = slices.Clone(cat.Skills)
		c.categories = append(c.categories, cat)
		for _, sk := range cat.Skills {
			sk = strings.TrimSpace(sk)
			if sk == "" {
				continue
			}
			key := strings.ToLower(sk)
			if _, dup := c.byFold[key]; dup {
				continue
			}
			c.byFold[key] = sk
			c.category[sk] = cat.Category
			c.skills = append(c.skills, sk)
		}
	}
	slices.Sort(c.skills)
	return c
}

// Categories returns the catalog grouped as received.
func (c *Catalog) Categories() []model.SkillCategory {
	if c == nil {
		return nil
	}
	out := make([]model.SkillCategory, len(c.categories))
	for i, cat := range c.categories {
		out[i] = model.SkillCategory{Category: cat.Category, Skills: slices.Clone(cat.Skills)}
	}
	return out
}

// Skills returns every distinct skill, sorted.
func (c *Catalog) Skills() []string {
	if c == nil {
		return nil
	}
	return slices.Clone(c.skills)
}

// CategoryOf returns the category a canonical skill belongs to.
func (c *Catalog) CategoryOf(skill string) string {
	if c == nil {
		return ""
	}
	return c.category[skill]
}

// Resolve maps input to a canonical skill: a case-insensitive exact match
// first, otherwise the closest skill within MaxDistance. Ties go to the
// alphabetically first skill.
func (c *Catalog) Resolve(input string) (string, bool) {
	if c == nil {
		return "", false
	}
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return "", false
	}
	if sk, ok := c.byFold[key]; ok {
		return sk, true
	}
	best, bestDist := "", MaxDistance+1
	for _, sk := range c.skills {
		d := levenshtein.ComputeDistance(key, strings.ToLower(sk))
		if d < bestDist {
			best, bestDist = sk, d
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

// Suggest returns up to limit skills containing input, case-insensitively.
func (c *Catalog) Suggest(input string, limit int) []string {
	if c == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(input))
	var out []string
	for _, sk := range c.skills {
		if limit > 0 && len(out) >= limit {
			break
		}
		if key == "" || strings.Contains(strings.ToLower(sk), key) {
			out = append(out, sk)
		}
	}
	return out
}
