package graphql

import (
	"encoding/json"
	"fmt"

	"github.com/jask/skillmatch/internal/model"
)

// Operation names; the dev server dispatches on these.
const (
	OpSearchMatches    = "SearchMatches"
	OpRecruitDetail    = "GetRecruitDetail"
	OpCandidateDetail  = "GetCandidateDetail"
	OpDashboardData    = "GetDashboardData"
	OpSearchStatistics = "GetSearchStatistics"
	OpSkillCategories  = "GetSkillCategories"
	OpCategoryDist     = "GetCategoryDistribution"
	OpCompetencyMatch  = "GetSkillCompetencyMatch"
)

const searchMatchesQuery = `query SearchMatches($mode: UserMode!, $skills: [String!]!, $experience: String!, $limit: Int!, $offset: Int!, $sortBy: String) {
  searchMatches(mode: $mode, skills: $skills, experience: $experience, limit: $limit, offset: $offset, sortBy: $sortBy) {
    matches { id title company score skills experience }
  }
}`

const recruitDetailQuery = `query GetRecruitDetail($id: ID!) {
  getRecruit(id: $id) { id position companyName experienceYears primaryKeyword englishLevel skills description publishedAt }
}`

const candidateDetailQuery = `query GetCandidateDetail($id: ID!) {
  getCandidate(id: $id) { id positionCategory experienceYears originalResume lookingFor skills createdAt }
}`

const dashboardQuery = `query GetDashboardData($userMode: UserMode!) {
  dashboardData(userMode: $userMode) { category skills { skill count } }
}`

const statisticsQuery = `query GetSearchStatistics($mode: UserMode!, $skills: [String!]!, $limit: Int) {
  searchStatistics(mode: $mode, skills: $skills, limit: $limit) { topSkills { skill count percentage } totalCount }
}`

const skillCategoriesQuery = `query GetSkillCategories {
  skillCategories { category skills }
}`

const categoryDistributionQuery = `query GetCategoryDistribution($skills: [String!]!) {
  getCategoryDistribution(skills: $skills) { category percentage matchedSkills skillCount }
}`

const competencyMatchQuery = `query GetSkillCompetencyMatch($mode: UserMode!, $targetId: ID!, $searchedSkills: [String!]!) {
  getSkillCompetencyMatch(mode: $mode, targetId: $targetId, searchedSkills: $searchedSkills) {
    matchedSkills missingSkills extraSkills matchingPercentage competencyLevel totalTargetSkills totalSearchedSkills
  }
}`

// Request is the POST body of every call.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is the envelope every call answers with.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []Error         `json:"errors,omitempty"`
}

type Error struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Classification values carried in Error.Extensions["classification"].
const (
	ClassBadRequest = "BAD_REQUEST"
	ClassNotFound   = "NOT_FOUND"
	ClassInternal   = "INTERNAL_ERROR"
)

func (e Error) Classification() string {
	s, _ := e.Extensions["classification"].(string)
	return s
}

// WireMode maps a mode to the server's UserMode enum. The server calls the
// seeker side CANDIDATE.
func WireMode(m model.Mode) string {
	if m == model.Recruiter {
		return "RECRUITER"
	}
	return "CANDIDATE"
}

func ParseWireMode(s string) (model.Mode, error) {
	switch s {
	case "CANDIDATE":
		return model.Seeker, nil
	case "RECRUITER":
		return model.Recruiter, nil
	}
	return "", fmt.Errorf("unknown user mode %q", s)
}

// Response payloads, one per operation.

type SearchMatchesData struct {
	SearchMatches struct {
		Matches []model.MatchRecord `json:"matches"`
	} `json:"searchMatches"`
}

type RecruitData struct {
	GetRecruit *model.RecruitDetail `json:"getRecruit"`
}

type CandidateData struct {
	GetCandidate *model.CandidateDetail `json:"getCandidate"`
}

type DashboardData struct {
	DashboardData []model.DashboardCategory `json:"dashboardData"`
}

type StatisticsData struct {
	SearchStatistics struct {
		TopSkills  []model.SkillFrequency `json:"topSkills"`
		TotalCount int                    `json:"totalCount"`
	} `json:"searchStatistics"`
}

type SkillCategoriesData struct {
	SkillCategories []model.SkillCategory `json:"skillCategories"`
}

type CategoryDistributionData struct {
	GetCategoryDistribution []model.CategoryShare `json:"getCategoryDistribution"`
}

type CompetencyMatchData struct {
	GetSkillCompetencyMatch *model.SkillCompetency `json:"getSkillCompetencyMatch"`
}
