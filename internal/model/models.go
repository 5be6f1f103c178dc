package model

import (
	"fmt"
	"strings"
)

// Mode selects one of the two isolated operating contexts.
type Mode string

const (
	Seeker    Mode = "SEEKER"
	Recruiter Mode = "RECRUITER"
)

// Modes lists every mode in display order.
var Modes = []Mode{Seeker, Recruiter}

func (m Mode) Valid() bool {
	return m == Seeker || m == Recruiter
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == Recruiter {
		return Seeker
	}
	return Recruiter
}

func (m Mode) Label() string {
	if m == Recruiter {
		return "Recruiter"
	}
	return "Seeker"
}

// ParseMode accepts the canonical names plus the wire alias CANDIDATE.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SEEKER", "CANDIDATE":
		return Seeker, nil
	case "RECRUITER":
		return Recruiter, nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// MatchRecord is one row of a search result page.
type MatchRecord struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Company    string   `json:"company"`
	Score      float64  `json:"score"`
	Skills     []string `json:"skills"`
	Experience *int     `json:"experience,omitempty"`
}

// ViewKind names a navigable view.
type ViewKind string

const (
	ViewDashboard ViewKind = "dashboard"
	ViewInput     ViewKind = "input"
	ViewResults   ViewKind = "results"
	ViewDetail    ViewKind = "detail"
	ViewAnalysis  ViewKind = "analysis"
)

// NavigationEntry is one position in a mode's view history.
type NavigationEntry struct {
	View            ViewKind `json:"view"`
	SelectedMatchID string   `json:"selectedMatchId,omitempty"`
}

// DashboardRoot is the implicit first history entry.
func DashboardRoot() NavigationEntry {
	return NavigationEntry{View: ViewDashboard}
}

// SkillCount is a dashboard skill tally.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// DashboardCategory groups skill tallies under a category.
type DashboardCategory struct {
	Category string       `json:"category"`
	Skills   []SkillCount `json:"skills"`
}

// SkillFrequency is one entry of the top-skills summary.
type SkillFrequency struct {
	Skill      string  `json:"skill"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SkillCategory is a catalog group of selectable skills.
type SkillCategory struct {
	Category string   `json:"category"`
	Skills   []string `json:"skills"`
}

// CategoryShare is the part of a skill set that falls into one category.
// Percentage is 0-100 of the whole set.
type CategoryShare struct {
	Category      string   `json:"category"`
	Percentage    float64  `json:"percentage"`
	MatchedSkills []string `json:"matchedSkills"`
	SkillCount    int      `json:"skillCount"`
}

// Competency levels by matching percentage.
const (
	CompetencyHigh   = "High"
	CompetencyMedium = "Medium"
	CompetencyLow    = "Low"
)

// SkillCompetency compares searched skills with a target's skills.
// MatchingPercentage is matched over TotalTargetSkills.
type SkillCompetency struct {
	MatchedSkills       []string `json:"matchedSkills"`
	MissingSkills       []string `json:"missingSkills"`
	ExtraSkills         []string `json:"extraSkills"`
	MatchingPercentage  float64  `json:"matchingPercentage"`
	CompetencyLevel     string   `json:"competencyLevel"`
	TotalTargetSkills   int      `json:"totalTargetSkills"`
	TotalSearchedSkills int      `json:"totalSearchedSkills"`
}

// CompetencyLevelFor maps a matching percentage to its level.
func CompetencyLevelFor(pct float64) string {
	switch {
	case pct >= 80:
		return CompetencyHigh
	case pct >= 50:
		return CompetencyMedium
	}
	return CompetencyLow
}

// RecruitDetail is a job posting, shown in seeker mode.
type RecruitDetail struct {
	ID              string   `json:"id"`
	Position        string   `json:"position"`
	CompanyName     string   `json:"companyName"`
	ExperienceYears *int     `json:"experienceYears,omitempty"`
	PrimaryKeyword  string   `json:"primaryKeyword,omitempty"`
	EnglishLevel    string   `json:"englishLevel,omitempty"`
	Skills          []string `json:"skills"`
	Description     string   `json:"description"`
	PublishedAt     string   `json:"publishedAt,omitempty"`
}

// CandidateDetail is a candidate profile, shown in recruiter mode.
type CandidateDetail struct {
	ID               string   `json:"id"`
	PositionCategory string   `json:"positionCategory"`
	ExperienceYears  *int     `json:"experienceYears,omitempty"`
	OriginalResume   string   `json:"originalResume,omitempty"`
	LookingFor       string   `json:"lookingFor,omitempty"`
	Skills           []string `json:"skills"`
	CreatedAt        string   `json:"createdAt,omitempty"`
}

// Detail holds exactly one of Recruit or Candidate depending on Mode.
type Detail struct {
	Mode      Mode
	Recruit   *RecruitDetail
	Candidate *CandidateDetail
}

func (d Detail) Title() string {
	switch {
	case d.Recruit != nil:
		return d.Recruit.Position + " @ " + d.Recruit.CompanyName
	case d.Candidate != nil:
		return d.Candidate.PositionCategory
	}
	return ""
}

func (d Detail) Skills() []string {
	switch {
	case d.Recruit != nil:
		return d.Recruit.Skills
	case d.Candidate != nil:
		return d.Candidate.Skills
	}
	return nil
}

// Theme is the display palette preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}
