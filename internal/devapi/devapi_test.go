package devapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/query/graphql"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateIsDeterministic(t *testing.T) {
	t.Parallel()
	a := Generate(1, 50)
	b := Generate(1, 50)
	require.Equal(t, a.Recruits, b.Recruits)
	require.Len(t, a.Candidates, 50)
	for _, r := range a.Recruits {
		require.NotEmpty(t, r.Skills)
	}
}

func TestSearchPaginatesWithoutOverlap(t *testing.T) {
	t.Parallel()
	d := Generate(3, 400)
	first := d.Search(model.Seeker, []string{"go", "python"}, "MID", 20, 0)
	second := d.Search(model.Seeker, []string{"go", "python"}, "MID", 20, 20)
	require.Len(t, first, 20)
	require.NotEmpty(t, second)

	seen := map[string]bool{}
	for _, r := range append(first, second...) {
		require.False(t, seen[r.ID], "duplicate %s", r.ID)
		seen[r.ID] = true
	}
	require.GreaterOrEqual(t, first[0].Score, first[19].Score)
	require.Empty(t, d.Search(model.Seeker, []string{"go"}, "", 20, 10_000))
}

func TestStatisticsAndDashboard(t *testing.T) {
	t.Parallel()
	d := Generate(5, 100)
	top, total := d.Statistics(model.Recruiter, []string{"Java"}, 3)
	require.Positive(t, total)
	require.LessOrEqual(t, len(top), 3)
	var java *model.SkillFrequency
	for i := range top {
		if top[i].Skill == "Java" {
			java = &top[i]
		}
	}
	require.NotNil(t, java)
	require.Equal(t, total, java.Count)
	require.InDelta(t, 100.0, java.Percentage, 0.01)

	dash := d.Dashboard(model.Seeker)
	require.Len(t, dash, len(d.Categories))
}

func post(t *testing.T, router http.Handler, req graphql.Request) (int, graphql.Response) {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body)))
	var resp graphql.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestRouterOperations(t *testing.T) {
	t.Parallel()
	router := NewRouter(Generate(9, 60), Options{})

	code, resp := post(t, router, graphql.Request{
		OperationName: graphql.OpSearchMatches,
		Variables:     map[string]any{"mode": "CANDIDATE", "skills": []string{"React"}, "experience": "MID", "limit": 5, "offset": 0},
	})
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, resp.Errors)
	var data graphql.SearchMatchesData
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	require.NotEmpty(t, data.SearchMatches.Matches)

	_, resp = post(t, router, graphql.Request{OperationName: graphql.OpRecruitDetail, Variables: map[string]any{"id": "missing"}})
	require.Len(t, resp.Errors, 1)
	require.Equal(t, graphql.ClassNotFound, resp.Errors[0].Classification())

	_, resp = post(t, router, graphql.Request{OperationName: graphql.OpDashboardData, Variables: map[string]any{"userMode": "SEEKER"}})
	require.Equal(t, graphql.ClassBadRequest, resp.Errors[0].Classification())

	code, _ = post(t, router, graphql.Request{OperationName: "Nope"})
	require.Equal(t, http.StatusBadRequest, code)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCategoryDistribution(t *testing.T) {
	t.Parallel()
	d := &Dataset{Categories: cloneCategories(defaultCategories)}

	got := d.CategoryDistribution([]string{"java", "Spring", "PostgreSQL", "Fortran"})
	require.Len(t, got, 2)
	require.Equal(t, "Backend", got[0].Category)
	require.Equal(t, []string{"Java", "Spring"}, got[0].MatchedSkills)
	require.Equal(t, 2, got[0].SkillCount)
	require.InDelta(t, 50.0, got[0].Percentage, 0.01)
	require.Equal(t, "Data", got[1].Category)
	require.InDelta(t, 25.0, got[1].Percentage, 0.01)

	require.Empty(t, d.CategoryDistribution(nil))
}

func TestCompetency(t *testing.T) {
	t.Parallel()
	d := &Dataset{
		Recruits:   []model.RecruitDetail{{ID: "r1", Skills: []string{"Java", "Spring", "Docker", "Kafka"}}},
		Candidates: []model.CandidateDetail{{ID: "c1", Skills: []string{"Go", "Docker"}}},
	}

	m, ok := d.Competency(model.Seeker, "r1", []string{"java", "Go"})
	require.True(t, ok)
	require.Equal(t, []string{"Java"}, m.MatchedSkills)
	require.Equal(t, []string{"Spring", "Docker", "Kafka"}, m.MissingSkills)
	require.Equal(t, []string{"Go"}, m.ExtraSkills)
	require.InDelta(t, 25.0, m.MatchingPercentage, 0.01)
	require.Equal(t, model.CompetencyLow, m.CompetencyLevel)
	require.Equal(t, 4, m.TotalTargetSkills)
	require.Equal(t, 2, m.TotalSearchedSkills)

	m, ok = d.Competency(model.Recruiter, "c1", []string{"Go", "docker"})
	require.True(t, ok)
	require.Equal(t, model.CompetencyHigh, m.CompetencyLevel)
	require.Empty(t, m.MissingSkills)

	// r1 is a job posting, not a candidate
	_, ok = d.Competency(model.Recruiter, "r1", []string{"Java"})
	require.False(t, ok)
}

func TestRouterAnalysisOperations(t *testing.T) {
	t.Parallel()
	data := Generate(9, 60)
	router := NewRouter(data, Options{})

	_, resp := post(t, router, graphql.Request{
		OperationName: graphql.OpCategoryDist,
		Variables:     map[string]any{"skills": []string{"React", "CSS"}},
	})
	require.Empty(t, resp.Errors)
	var dist graphql.CategoryDistributionData
	require.NoError(t, json.Unmarshal(resp.Data, &dist))
	require.Len(t, dist.GetCategoryDistribution, 1)
	require.InDelta(t, 100.0, dist.GetCategoryDistribution[0].Percentage, 0.01)

	cand := data.Candidates[0]
	_, resp = post(t, router, graphql.Request{
		OperationName: graphql.OpCompetencyMatch,
		Variables:     map[string]any{"mode": "RECRUITER", "targetId": cand.ID, "searchedSkills": cand.Skills},
	})
	require.Empty(t, resp.Errors)
	var comp graphql.CompetencyMatchData
	require.NoError(t, json.Unmarshal(resp.Data, &comp))
	require.Equal(t, cand.Skills, comp.GetSkillCompetencyMatch.MatchedSkills)
	require.Equal(t, model.CompetencyHigh, comp.GetSkillCompetencyMatch.CompetencyLevel)

	_, resp = post(t, router, graphql.Request{
		OperationName: graphql.OpCompetencyMatch,
		Variables:     map[string]any{"mode": "CANDIDATE", "targetId": "missing", "searchedSkills": []string{"Go"}},
	})
	require.Equal(t, graphql.ClassNotFound, resp.Errors[0].Classification())
}
