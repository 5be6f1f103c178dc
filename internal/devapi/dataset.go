package devapi

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jask/skillmatch/internal/model"
)

// Dataset is the fixed corpus the dev server answers from.
type Dataset struct {
	Categories []model.SkillCategory
	Recruits   []model.RecruitDetail
	Candidates []model.CandidateDetail
}

var defaultCategories = []model.SkillCategory{
	{Category: "Backend", Skills: []string{"Java", "Spring", "Go", "Python", "Django", "Node.js", "Kotlin"}},
	{Category: "Frontend", Skills: []string{"React", "TypeScript", "JavaScript", "Vue", "CSS"}},
	{Category: "Data", Skills: []string{"SQL", "PostgreSQL", "Spark", "Pandas", "Kafka"}},
	{Category: "DevOps", Skills: []string{"Docker", "Kubernetes", "AWS", "Terraform", "Linux"}},
	{Category: "Mobile", Skills: []string{"Swift", "Flutter", "Android"}},
}

var positions = map[string][]string{
	"Backend":  {"Backend Engineer", "Server Developer", "API Engineer"},
	"Frontend": {"Frontend Engineer", "Web Developer", "UI Engineer"},
	"Data":     {"Data Engineer", "Analytics Engineer", "Data Scientist"},
	"DevOps":   {"Platform Engineer", "Site Reliability Engineer", "DevOps Engineer"},
	"Mobile":   {"iOS Developer", "Mobile Engineer", "Android Developer"},
}

var companies = []string{"Acme Labs", "Northwind", "Globex", "Initech", "Umbrella Systems", "Hooli", "Stark Industries", "Wayne Tech"}

var englishLevels = []string{"Basic", "Intermediate", "Upper-Intermediate", "Fluent"}

// Generate builds n job postings and n candidate profiles. The same seed
// always yields the same dataset.
func Generate(seed int64, n int) *Dataset {
	r := rand.New(rand.NewSource(seed))
	d := &Dataset{Categories: cloneCategories(defaultCategories)}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < n; i++ {
		cat := d.Categories[r.Intn(len(d.Categories))]
		years := r.Intn(13)
		d.Recruits = append(d.Recruits, model.RecruitDetail{
			ID:              recordID("recruit", i),
			Position:        pick(r, positions[cat.Category]),
			CompanyName:     pick(r, companies),
			ExperienceYears: &years,
			PrimaryKeyword:  cat.Category,
			EnglishLevel:    pick(r, englishLevels),
			Skills:          pickSkills(r, cat, d.Categories),
			Description:     fmt.Sprintf("We are hiring for our %s team.", cat.Category),
			PublishedAt:     base.Add(-time.Duration(i) * 6 * time.Hour).Format(time.RFC3339),
		})
	}
	for i := 0; i < n; i++ {
		cat := d.Categories[r.Intn(len(d.Categories))]
		years := r.Intn(13)
		d.Candidates = append(d.Candidates, model.CandidateDetail{
			ID:               recordID("candidate", i),
			PositionCategory: cat.Category,
			ExperienceYears:  &years,
			OriginalResume:   fmt.Sprintf("%d years of %s work.", years, strings.ToLower(cat.Category)),
			LookingFor:       pick(r, positions[cat.Category]),
			Skills:           pickSkills(r, cat, d.Categories),
			CreatedAt:        base.Add(-time.Duration(i) * 4 * time.Hour).Format(time.RFC3339),
		})
	}
	return d
}

func recordID(kind string, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s:%d", kind, i))).String()
}

func pick(r *rand.Rand, from []string) string {
	return from[r.Intn(len(from))]
}

// pickSkills draws two to five skills from the home category plus, sometimes,
// one from elsewhere.
func pickSkills(r *rand.Rand, home model.SkillCategory, all []model.SkillCategory) []string {
	n := 2 + r.Intn(min(4, len(home.Skills)-1))
	perm := r.Perm(len(home.Skills))
	out := make([]string, 0, n+1)
	for _, idx := range perm[:n] {
		out = append(out, home.Skills[idx])
	}
	if r.Intn(3) == 0 {
		other := all[r.Intn(len(all))]
		sk := pick(r, other.Skills)
		if !slices.Contains(out, sk) {
			out = append(out, sk)
		}
	}
	return out
}

func cloneCategories(in []model.SkillCategory) []model.SkillCategory {
	out := make([]model.SkillCategory, len(in))
	for i, c := range in {
		out[i] = model.SkillCategory{Category: c.Category, Skills: slices.Clone(c.Skills)}
	}
	return out
}

// experienceRange maps a level to an inclusive range of years.
func experienceRange(level string) (lo, hi int, ok bool) {
	switch strings.ToUpper(level) {
	case "JUNIOR":
		return 0, 2, true
	case "MID":
		return 3, 6, true
	case "SENIOR":
		return 7, 100, true
	}
	return 0, 0, false
}

type scored struct {
	rec  model.MatchRecord
	date string
}

// Search ranks the mode's corpus by the share of skills matched. Records
// outside the requested experience band lose ten points.
func (d *Dataset) Search(mode model.Mode, skills []string, experience string, limit, offset int) []model.MatchRecord {
	want := lowerSet(skills)
	if len(want) == 0 {
		return nil
	}
	lo, hi, banded := experienceRange(experience)
	var hits []scored
	d.each(mode, func(rec model.MatchRecord, date string) {
		matched := 0
		for _, sk := range rec.Skills {
			if _, ok := want[strings.ToLower(sk)]; ok {
				matched++
			}
		}
		if matched == 0 {
			return
		}
		score := float64(matched) / float64(len(want)) * 100
		if banded && rec.Experience != nil && (*rec.Experience < lo || *rec.Experience > hi) {
			score = math.Max(score-10, 1)
		}
		rec.Score = math.Round(score*10) / 10
		hits = append(hits, scored{rec: rec, date: date})
	})
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rec.Score != hits[j].rec.Score {
			return hits[i].rec.Score > hits[j].rec.Score
		}
		if hits[i].date != hits[j].date {
			return hits[i].date > hits[j].date
		}
		return hits[i].rec.ID < hits[j].rec.ID
	})
	if offset >= len(hits) || limit <= 0 {
		return []model.MatchRecord{}
	}
	end := min(offset+limit, len(hits))
	out := make([]model.MatchRecord, 0, end-offset)
	for _, h := range hits[offset:end] {
		out = append(out, h.rec)
	}
	return out
}

// Statistics counts skill frequencies among records matching any of skills.
func (d *Dataset) Statistics(mode model.Mode, skills []string, limit int) ([]model.SkillFrequency, int) {
	want := lowerSet(skills)
	counts := map[string]int{}
	total := 0
	d.each(mode, func(rec model.MatchRecord, _ string) {
		hit := false
		for _, sk := range rec.Skills {
			if _, ok := want[strings.ToLower(sk)]; ok {
				hit = true
				break
			}
		}
		if !hit {
			return
		}
		total++
		for _, sk := range rec.Skills {
			counts[sk]++
		}
	})
	out := make([]model.SkillFrequency, 0, len(counts))
	for sk, n := range counts {
		out = append(out, model.SkillFrequency{
			Skill:      sk,
			Count:      n,
			Percentage: math.Round(float64(n)/float64(total)*1000) / 10,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Skill < out[j].Skill
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total
}

// Dashboard tallies every catalog skill across the mode's corpus.
func (d *Dataset) Dashboard(mode model.Mode) []model.DashboardCategory {
	counts := map[string]int{}
	d.each(mode, func(rec model.MatchRecord, _ string) {
		for _, sk := range rec.Skills {
			counts[sk]++
		}
	})
	out := make([]model.DashboardCategory, 0, len(d.Categories))
	for _, cat := range d.Categories {
		dc := model.DashboardCategory{Category: cat.Category}
		for _, sk := range cat.Skills {
			dc.Skills = append(dc.Skills, model.SkillCount{Skill: sk, Count: counts[sk]})
		}
		sort.SliceStable(dc.Skills, func(i, j int) bool { return dc.Skills[i].Count > dc.Skills[j].Count })
		out = append(out, dc)
	}
	return out
}

func (d *Dataset) Recruit(id string) *model.RecruitDetail {
	for i := range d.Recruits {
		if d.Recruits[i].ID == id {
			r := d.Recruits[i]
			return &r
		}
	}
	return nil
}

func (d *Dataset) Candidate(id string) *model.CandidateDetail {
	for i := range d.Candidates {
		if d.Candidates[i].ID == id {
			c := d.Candidates[i]
			return &c
		}
	}
	return nil
}

// each visits the corpus a mode searches: job postings for seekers,
// candidates for recruiters.
func (d *Dataset) each(mode model.Mode, fn func(rec model.MatchRecord, date string)) {
	if mode == model.Recruiter {
		for _, c := range d.Candidates {
			fn(model.MatchRecord{
				ID:         c.ID,
				Title:      c.PositionCategory,
				Company:    c.LookingFor,
				Skills:     slices.Clone(c.Skills),
				Experience: c.ExperienceYears,
			}, c.CreatedAt)
		}
		return
	}
	for _, r := range d.Recruits {
		fn(model.MatchRecord{
			ID:         r.ID,
			Title:      r.Position,
			Company:    r.CompanyName,
			Skills:     slices.Clone(r.Skills),
			Experience: r.ExperienceYears,
		}, r.PublishedAt)
	}
}

func lowerSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

// CategoryDistribution spreads skills over the catalog categories. Each
// share is the fraction of the given skills that belong to the category;
// skills outside the catalog only count towards the whole.
func (d *Dataset) CategoryDistribution(skills []string) []model.CategoryShare {
	want := lowerSet(skills)
	if len(want) == 0 {
		return []model.CategoryShare{}
	}
	out := []model.CategoryShare{}
	for _, cat := range d.Categories {
		var matched []string
		for _, sk := range cat.Skills {
			if _, ok := want[strings.ToLower(sk)]; ok {
				matched = append(matched, sk)
			}
		}
		if len(matched) == 0 {
			continue
		}
		out = append(out, model.CategoryShare{
			Category:      cat.Category,
			Percentage:    round1(float64(len(matched)) * 100 / float64(len(want))),
			MatchedSkills: matched,
			SkillCount:    len(matched),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out
}

// Competency compares searched with the skills of the record id in the
// corpus mode searches. It reports false when no such record exists.
func (d *Dataset) Competency(mode model.Mode, id string, searched []string) (model.SkillCompetency, bool) {
	var target []string
	found := false
	d.each(mode, func(rec model.MatchRecord, _ string) {
		if rec.ID == id {
			target, found = rec.Skills, true
		}
	})
	if !found {
		return model.SkillCompetency{}, false
	}

	have := lowerSet(target)
	asked := lowerSet(searched)
	m := model.SkillCompetency{
		MatchedSkills:       []string{},
		MissingSkills:       []string{},
		ExtraSkills:         []string{},
		TotalTargetSkills:   len(have),
		TotalSearchedSkills: len(asked),
	}
	for _, sk := range target {
		if _, ok := asked[strings.ToLower(sk)]; ok {
			m.MatchedSkills = append(m.MatchedSkills, sk)
		} else {
			m.MissingSkills = append(m.MissingSkills, sk)
		}
	}
	for _, sk := range searched {
		if _, ok := have[strings.ToLower(strings.TrimSpace(sk))]; !ok && strings.TrimSpace(sk) != "" {
			m.ExtraSkills = append(m.ExtraSkills, sk)
		}
	}
	if len(have) > 0 {
		m.MatchingPercentage = round1(float64(len(m.MatchedSkills)) * 100 / float64(len(have)))
	}
	m.CompetencyLevel = model.CompetencyLevelFor(m.MatchingPercentage)
	return m, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
