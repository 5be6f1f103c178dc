package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jask/skillmatch/internal/model"
)

type countingExecutor struct {
	searches atomic.Int32
	details  atomic.Int32
	shares   atomic.Int32
	matches  atomic.Int32
	fail     error
	release  chan struct{}
}

func (e *countingExecutor) Search(_ context.Context, req SearchRequest) (SearchResponse, error) {
	e.searches.Add(1)
	if e.fail != nil {
		return SearchResponse{}, e.fail
	}
	recs := make([]model.MatchRecord, req.Limit)
	for i := range recs {
		recs[i] = model.MatchRecord{ID: fmt.Sprintf("%s-%d", req.Mode, req.Offset+i)}
	}
	return SearchResponse{Records: recs}, nil
}

func (e *countingExecutor) Detail(_ context.Context, req DetailRequest) (model.Detail, error) {
	e.details.Add(1)
	if e.release != nil {
		<-e.release
	}
	return model.Detail{Mode: req.Mode, Recruit: &model.RecruitDetail{ID: req.ID}}, nil
}

func (e *countingExecutor) Dashboard(context.Context, DashboardRequest) (DashboardResponse, error) {
	return DashboardResponse{}, nil
}

func (e *countingExecutor) Statistics(context.Context, StatisticsRequest) (StatisticsResponse, error) {
	return StatisticsResponse{}, nil
}

func (e *countingExecutor) SkillCategories(context.Context) ([]model.SkillCategory, error) {
	return nil, nil
}

func (e *countingExecutor) CategoryDistribution(_ context.Context, req CategoryDistributionRequest) ([]model.CategoryShare, error) {
	e.shares.Add(1)
	return []model.CategoryShare{{Category: "Backend", Percentage: 100, MatchedSkills: req.Skills, SkillCount: len(req.Skills)}}, nil
}

func (e *countingExecutor) SkillCompetency(_ context.Context, req CompetencyRequest) (model.SkillCompetency, error) {
	e.matches.Add(1)
	if e.release != nil {
		<-e.release
	}
	return model.SkillCompetency{MatchedSkills: req.SearchedSkills, TotalSearchedSkills: len(req.SearchedSkills)}, nil
}

func TestClassify(t *testing.T) {
	t.Parallel()

	f := Classify(context.DeadlineExceeded, OpSearch, model.Seeker)
	require.Equal(t, KindTimeout, f.Kind)
	require.ErrorIs(t, f, ErrTimeout)
	require.ErrorIs(t, f, context.DeadlineExceeded)

	f = Classify(fmt.Errorf("wrapped: %w", context.Canceled), OpLoadMore, model.Seeker)
	require.Equal(t, KindCancelled, f.Kind)
	require.True(t, IsCancelled(f))

	f = Classify(errors.New("connection refused"), OpDetail, model.Recruiter)
	require.ErrorIs(t, f, ErrNetwork)
	require.Equal(t, model.Recruiter, f.Mode)

	typed := &Failure{Kind: KindServer, Status: 502, Message: "bad gateway"}
	f = Classify(fmt.Errorf("outer: %w", typed), OpDashboard, model.Seeker)
	require.ErrorIs(t, f, ErrServer)
	require.Equal(t, OpDashboard, f.Op)
	require.Equal(t, 502, f.Status)
	require.Contains(t, f.Error(), "status 502")

	require.Nil(t, Classify(nil, OpSearch, model.Seeker))
}

func TestSearchKeyIncludesOffsetAndSortsCriteria(t *testing.T) {
	t.Parallel()
	a := SearchRequest{Mode: model.Seeker, Criteria: []string{"python", "java"}, Limit: 20, Offset: 0}
	b := a
	b.Criteria = []string{"java", "python"}
	require.Equal(t, SearchKey(a), SearchKey(b))

	b.Offset = 20
	require.NotEqual(t, SearchKey(a), SearchKey(b))

	b = a
	b.Mode = model.Recruiter
	require.NotEqual(t, SearchKey(a), SearchKey(b))
}

func TestCachingExecutorKeepsPagesSeparate(t *testing.T) {
	t.Parallel()
	next := &countingExecutor{}
	c := NewCachingExecutor(next, time.Minute, time.Minute)
	ctx := context.Background()
	req := SearchRequest{Mode: model.Seeker, Criteria: []string{"go"}, Limit: 2}

	p0, err := c.Search(ctx, req)
	require.NoError(t, err)
	req.Offset = 2
	p1, err := c.Search(ctx, req)
	require.NoError(t, err)
	require.Len(t, p1.Records, 2)
	require.Equal(t, "SEEKER-2", p1.Records[0].ID)

	req.Offset = 0
	again, err := c.Search(ctx, req)
	require.NoError(t, err)
	require.Equal(t, p0.Records, again.Records)
	require.Len(t, again.Records, 2)
	require.EqualValues(t, 2, next.searches.Load())

	c.Flush()
	_, err = c.Search(ctx, req)
	require.NoError(t, err)
	require.EqualValues(t, 3, next.searches.Load())
}

func TestCachingExecutorDoesNotCacheFailures(t *testing.T) {
	t.Parallel()
	next := &countingExecutor{fail: &Failure{Kind: KindServer}}
	c := NewCachingExecutor(next, time.Minute, time.Minute)
	req := SearchRequest{Mode: model.Seeker, Criteria: []string{"go"}, Limit: 2}

	_, err := c.Search(context.Background(), req)
	require.ErrorIs(t, err, ErrServer)
	_, err = c.Search(context.Background(), req)
	require.Error(t, err)
	require.EqualValues(t, 2, next.searches.Load())
}

func TestCachingExecutorSharesDetailFlight(t *testing.T) {
	t.Parallel()
	next := &countingExecutor{release: make(chan struct{})}
	c := NewCachingExecutor(next, time.Minute, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := c.Detail(context.Background(), DetailRequest{Mode: model.Seeker, ID: "42"})
			if assert.NoError(t, err) {
				assert.Equal(t, "42", d.Recruit.ID)
			}
		}()
	}
	require.Eventually(t, func() bool { return next.details.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(next.release)
	wg.Wait()

	require.EqualValues(t, 1, next.details.Load())
	_, err := c.Detail(context.Background(), DetailRequest{Mode: model.Seeker, ID: "42"})
	require.NoError(t, err)
	require.EqualValues(t, 1, next.details.Load())
}

func TestCachingExecutorAnalysisEntries(t *testing.T) {
	t.Parallel()
	next := &countingExecutor{}
	c := NewCachingExecutor(next, time.Minute, time.Minute)
	ctx := context.Background()

	_, err := c.CategoryDistribution(ctx, CategoryDistributionRequest{Skills: []string{"Java", "Go"}})
	require.NoError(t, err)
	shares, err := c.CategoryDistribution(ctx, CategoryDistributionRequest{Skills: []string{"Go", "Java"}})
	require.NoError(t, err)
	require.Equal(t, 2, shares[0].SkillCount)
	require.EqualValues(t, 1, next.shares.Load())

	req := CompetencyRequest{Mode: model.Seeker, TargetID: "7", SearchedSkills: []string{"Go"}}
	_, err = c.SkillCompetency(ctx, req)
	require.NoError(t, err)
	_, err = c.SkillCompetency(ctx, req)
	require.NoError(t, err)
	require.EqualValues(t, 1, next.matches.Load())

	req.Mode = model.Recruiter
	_, err = c.SkillCompetency(ctx, req)
	require.NoError(t, err)
	require.EqualValues(t, 2, next.matches.Load())
}
