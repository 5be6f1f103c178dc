// Package query defines the contract between the controllers and whatever
// answers match-search requests.
package query

import (
	"context"

	"github.com/jask/skillmatch/internal/model"
)

// SearchRequest asks for one page of matches.
type SearchRequest struct {
	Mode       model.Mode
	Criteria   []string
	Experience string
	SortKey    string
	Limit      int
	Offset     int
}

type SearchResponse struct {
	Records    []model.MatchRecord
	TotalCount *int
}

type DetailRequest struct {
	Mode model.Mode
	ID   string
}

type DashboardRequest struct {
	Mode model.Mode
}

type DashboardResponse struct {
	Categories []model.DashboardCategory
}

type StatisticsRequest struct {
	Mode     model.Mode
	Criteria []string
	Limit    int
}

type StatisticsResponse struct {
	TopSkills  []model.SkillFrequency
	TotalCount int
}

// CategoryDistributionRequest asks how the given skills spread over the
// catalog categories.
type CategoryDistributionRequest struct {
	Skills []string
}

// CompetencyRequest compares the searched skills with the skills of one
// match record.
type CompetencyRequest struct {
	Mode           model.Mode
	TargetID       string
	SearchedSkills []string
}

// Executor issues described requests. Implementations return a *Failure (or
// an error Classify can map to one) on any failure.
type Executor interface {
	Search(ctx context.Context, req SearchRequest) (SearchResponse, error)
	Detail(ctx context.Context, req DetailRequest) (model.Detail, error)
	Dashboard(ctx context.Context, req DashboardRequest) (DashboardResponse, error)
	Statistics(ctx context.Context, req StatisticsRequest) (StatisticsResponse, error)
	SkillCategories(ctx context.Context) ([]model.SkillCategory, error)
	CategoryDistribution(ctx context.Context, req CategoryDistributionRequest) ([]model.CategoryShare, error)
	SkillCompetency(ctx context.Context, req CompetencyRequest) (model.SkillCompetency, error)
}
