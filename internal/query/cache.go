package query

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/jask/skillmatch/internal/model"
)

// CachingExecutor sits between the controllers and a transport executor.
//
// Every search page is its own entry, keyed by mode, sorted criteria,
// experience, sort key, limit and offset. Pages are never merged here; the
// session store is the only place pages are joined.
type CachingExecutor struct {
	next   Executor
	cache  *cache.Cache
	flight singleflight.Group
}

func NewCachingExecutor(next Executor, ttl, cleanup time.Duration) *CachingExecutor {
	return &CachingExecutor{next: next, cache: cache.New(ttl, cleanup)}
}

// SearchKey builds the cache key of one search page.
func SearchKey(req SearchRequest) string {
	return fmt.Sprintf("search|%s|%s|%s|%s|%d|%d",
		req.Mode, sortedJoin(req.Criteria), req.Experience, req.SortKey, req.Limit, req.Offset)
}

func (c *CachingExecutor) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	key := SearchKey(req)
	if v, ok := c.cache.Get(key); ok {
		return cloneSearch(v.(SearchResponse)), nil
	}
	resp, err := c.next.Search(ctx, req)
	if err != nil {
		return SearchResponse{}, err
	}
	c.cache.Set(key, cloneSearch(resp), cache.DefaultExpiration)
	return resp, nil
}

// Detail shares one in-flight request between concurrent callers asking for
// the same record.
func (c *CachingExecutor) Detail(ctx context.Context, req DetailRequest) (model.Detail, error) {
	key := fmt.Sprintf("detail|%s|%s", req.Mode, req.ID)
	if v, ok := c.cache.Get(key); ok {
		return v.(model.Detail), nil
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		d, err := c.next.Detail(ctx, req)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, d, cache.DefaultExpiration)
		return d, nil
	})
	if err != nil {
		return model.Detail{}, err
	}
	return v.(model.Detail), nil
}

func (c *CachingExecutor) Dashboard(ctx context.Context, req DashboardRequest) (DashboardResponse, error) {
	key := "dashboard|" + string(req.Mode)
	if v, ok := c.cache.Get(key); ok {
		return v.(DashboardResponse), nil
	}
	resp, err := c.next.Dashboard(ctx, req)
	if err != nil {
		return DashboardResponse{}, err
	}
	c.cache.Set(key, resp, cache.DefaultExpiration)
	return resp, nil
}

func (c *CachingExecutor) Statistics(ctx context.Context, req StatisticsRequest) (StatisticsResponse, error) {
	key := fmt.Sprintf("stats|%s|%s|%d", req.Mode, sortedJoin(req.Criteria), req.Limit)
	if v, ok := c.cache.Get(key); ok {
		return v.(StatisticsResponse), nil
	}
	resp, err := c.next.Statistics(ctx, req)
	if err != nil {
		return StatisticsResponse{}, err
	}
	c.cache.Set(key, resp, cache.DefaultExpiration)
	return resp, nil
}

// SkillCategories never expires; the catalog is fixed for a process lifetime.
func (c *CachingExecutor) SkillCategories(ctx context.Context) ([]model.SkillCategory, error) {
	const key = "catalog"
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.SkillCategory), nil
	}
	cats, err := c.next.SkillCategories(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, cats, cache.NoExpiration)
	return cats, nil
}

func (c *CachingExecutor) CategoryDistribution(ctx context.Context, req CategoryDistributionRequest) ([]model.CategoryShare, error) {
	key := "categories|" + sortedJoin(req.Skills)
	if v, ok := c.cache.Get(key); ok {
		return v.([]model.CategoryShare), nil
	}
	shares, err := c.next.CategoryDistribution(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, shares, cache.DefaultExpiration)
	return shares, nil
}

// SkillCompetency shares in-flight requests like Detail; both are issued
// when a detail view opens.
func (c *CachingExecutor) SkillCompetency(ctx context.Context, req CompetencyRequest) (model.SkillCompetency, error) {
	key := fmt.Sprintf("competency|%s|%s|%s", req.Mode, req.TargetID, sortedJoin(req.SearchedSkills))
	if v, ok := c.cache.Get(key); ok {
		return v.(model.SkillCompetency), nil
	}
	v, err, _ := c.flight.Do(key, func() (any, error) {
		m, err := c.next.SkillCompetency(ctx, req)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, m, cache.DefaultExpiration)
		return m, nil
	})
	if err != nil {
		return model.SkillCompetency{}, err
	}
	return v.(model.SkillCompetency), nil
}

// Flush drops every cached entry.
func (c *CachingExecutor) Flush() {
	c.cache.Flush()
}

func cloneSearch(r SearchResponse) SearchResponse {
	out := SearchResponse{Records: slices.Clone(r.Records)}
	if r.TotalCount != nil {
		n := *r.TotalCount
		out.TotalCount = &n
	}
	return out
}

func sortedJoin(in []string) string {
	out := slices.Clone(in)
	slices.Sort(out)
	return strings.Join(out, ",")
}
