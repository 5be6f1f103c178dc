package graphql_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jask/skillmatch/internal/devapi"
	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/query"
	"github.com/jask/skillmatch/internal/query/graphql"
)

func newDevServer(t *testing.T, opts devapi.Options) (*graphql.Client, *devapi.Dataset) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	data := devapi.Generate(11, 120)
	srv := httptest.NewServer(devapi.NewRouter(data, opts))
	t.Cleanup(srv.Close)
	return graphql.New(srv.URL+"/graphql", 5*time.Second, nil), data
}

func TestClientAgainstDevServer(t *testing.T) {
	t.Parallel()
	c, data := newDevServer(t, devapi.Options{})
	ctx := context.Background()

	page, err := c.Search(ctx, query.SearchRequest{Mode: model.Seeker, Criteria: []string{"Go", "Docker"}, Experience: "MID", Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Records, 10)
	require.Equal(t, data.Search(model.Seeker, []string{"Go", "Docker"}, "MID", 10, 0), page.Records)

	d, err := c.Detail(ctx, query.DetailRequest{Mode: model.Seeker, ID: page.Records[0].ID})
	require.NoError(t, err)
	require.NotNil(t, d.Recruit)
	require.Equal(t, page.Records[0].ID, d.Recruit.ID)

	cand := data.Candidates[0]
	d, err = c.Detail(ctx, query.DetailRequest{Mode: model.Recruiter, ID: cand.ID})
	require.NoError(t, err)
	require.Equal(t, cand.Skills, d.Candidate.Skills)

	_, err = c.Detail(ctx, query.DetailRequest{Mode: model.Recruiter, ID: "nope"})
	require.ErrorIs(t, err, query.ErrValidation)

	dash, err := c.Dashboard(ctx, query.DashboardRequest{Mode: model.Recruiter})
	require.NoError(t, err)
	require.Len(t, dash.Categories, len(data.Categories))

	stats, err := c.Statistics(ctx, query.StatisticsRequest{Mode: model.Seeker, Criteria: []string{"Go"}, Limit: 5})
	require.NoError(t, err)
	require.Positive(t, stats.TotalCount)
	require.LessOrEqual(t, len(stats.TopSkills), 5)

	cats, err := c.SkillCategories(ctx)
	require.NoError(t, err)
	require.Equal(t, data.Categories, cats)

	shares, err := c.CategoryDistribution(ctx, query.CategoryDistributionRequest{Skills: []string{"Go", "Docker"}})
	require.NoError(t, err)
	require.Equal(t, data.CategoryDistribution([]string{"Go", "Docker"}), shares)

	rec := page.Records[0]
	comp, err := c.SkillCompetency(ctx, query.CompetencyRequest{Mode: model.Seeker, TargetID: rec.ID, SearchedSkills: []string{"Go", "Docker"}})
	require.NoError(t, err)
	require.Equal(t, len(rec.Skills), comp.TotalTargetSkills)
	require.Equal(t, 2, comp.TotalSearchedSkills)
	require.Equal(t, model.CompetencyLevelFor(comp.MatchingPercentage), comp.CompetencyLevel)

	_, err = c.SkillCompetency(ctx, query.CompetencyRequest{Mode: model.Recruiter, TargetID: "nope", SearchedSkills: []string{"Go"}})
	require.ErrorIs(t, err, query.ErrValidation)
}

func TestClientSendsWireContract(t *testing.T) {
	t.Parallel()
	var got graphql.Request
	var reqID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID = r.Header.Get("X-Request-ID")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"data":{"searchMatches":{"matches":[]}}}`))
	}))
	t.Cleanup(srv.Close)

	c := graphql.New(srv.URL, time.Second, nil)
	_, err := c.Search(context.Background(), query.SearchRequest{
		Mode: model.Seeker, Criteria: []string{"java"}, SortKey: "score DESC", Limit: 20, Offset: 40,
	})
	require.NoError(t, err)
	require.NotEmpty(t, reqID)
	require.Equal(t, graphql.OpSearchMatches, got.OperationName)
	require.Equal(t, "CANDIDATE", got.Variables["mode"])
	require.EqualValues(t, 40, got.Variables["offset"])
	require.Equal(t, "score DESC", got.Variables["sortBy"])
}

func TestClientClassifiesFailures(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/down":
			w.WriteHeader(http.StatusBadGateway)
		case "/garbage":
			_, _ = w.Write([]byte("<html>"))
		case "/gqlerr":
			_, _ = w.Write([]byte(`{"errors":[{"message":"boom","extensions":{"classification":"INTERNAL_ERROR"}}]}`))
		case "/slow":
			select {
			case <-time.After(time.Second):
			case <-r.Context().Done():
			}
		}
	}))
	t.Cleanup(srv.Close)
	ctx := context.Background()
	req := query.DashboardRequest{Mode: model.Seeker}

	_, err := graphql.New(srv.URL+"/down", time.Second, nil).Dashboard(ctx, req)
	require.ErrorIs(t, err, query.ErrServer)
	var f *query.Failure
	require.ErrorAs(t, err, &f)
	require.Equal(t, http.StatusBadGateway, f.Status)
	require.Equal(t, query.OpDashboard, f.Op)

	_, err = graphql.New(srv.URL+"/garbage", time.Second, nil).Dashboard(ctx, req)
	require.ErrorIs(t, err, query.ErrServer)

	_, err = graphql.New(srv.URL+"/gqlerr", time.Second, nil).Dashboard(ctx, req)
	require.ErrorIs(t, err, query.ErrServer)
	require.ErrorContains(t, err, "boom")

	tctx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
	defer cancel()
	_, err = graphql.New(srv.URL+"/slow", time.Second, nil).Dashboard(tctx, req)
	require.ErrorIs(t, err, query.ErrTimeout)

	_, err = graphql.New(srv.URL+"/slow", 30*time.Millisecond, nil).Dashboard(ctx, req)
	require.ErrorIs(t, err, query.ErrTimeout)

	cctx, ccancel := context.WithCancel(ctx)
	ccancel()
	_, err = graphql.New(srv.URL+"/slow", time.Second, nil).Dashboard(cctx, req)
	require.ErrorIs(t, err, query.ErrCancelled)

	_, err = graphql.New("http://127.0.0.1:1/graphql", time.Second, nil).Dashboard(ctx, req)
	require.ErrorIs(t, err, query.ErrNetwork)
}

func TestWireMode(t *testing.T) {
	t.Parallel()
	for _, m := range model.Modes {
		back, err := graphql.ParseWireMode(graphql.WireMode(m))
		require.NoError(t, err)
		require.Equal(t, m, back)
	}
	_, err := graphql.ParseWireMode("SEEKER")
	require.Error(t, err)
}
