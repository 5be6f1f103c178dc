package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jask/skillmatch/internal/catalog"
	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/query"
)

// FetchDetail loads the detail record behind a match: a job posting in
// seeker mode, a candidate profile in recruiter mode.
func (s *SearchService) FetchDetail(ctx context.Context, mode model.Mode, id string) (model.Detail, error) {
	if id == "" {
		return model.Detail{}, fmt.Errorf("%w: empty detail id", query.ErrValidation)
	}
	s.mu.Lock()
	st, ok := s.modes[mode]
	if !ok || s.closed {
		s.mu.Unlock()
		return model.Detail{}, errStale
	}
	reqCtx, release := s.begin(ctx, st)
	s.mu.Unlock()

	d, err := s.Executor.Detail(reqCtx, query.DetailRequest{Mode: mode, ID: id})
	release()

	s.mu.Lock()
	live := !s.closed && s.Sessions.ActiveMode() == mode
	s.mu.Unlock()
	if !live {
		return model.Detail{}, errStale
	}
	if err != nil {
		return model.Detail{}, s.fail(err, query.OpDetail, mode)
	}
	return d, nil
}

// LoadDashboard fetches the mode's aggregate skill breakdown. A snapshot
// already in the session is kept unless force is set.
func (s *SearchService) LoadDashboard(ctx context.Context, mode model.Mode, force bool) error {
	if !force && len(s.Sessions.Get(mode).Dashboard) > 0 {
		return nil
	}
	s.mu.Lock()
	st, ok := s.modes[mode]
	if !ok || s.closed {
		s.mu.Unlock()
		return errStale
	}
	reqCtx, release := s.begin(ctx, st)
	s.mu.Unlock()

	resp, err := s.Executor.Dashboard(reqCtx, query.DashboardRequest{Mode: mode})
	release()

	s.mu.Lock()
	if s.closed || s.Sessions.ActiveMode() != mode {
		s.mu.Unlock()
		return errStale
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(err, query.OpDashboard, mode)
	}
	s.Sessions.SetDashboard(mode, resp.Categories)
	s.mu.Unlock()
	return nil
}

// LoadStatistics refreshes the top-skills summary for the mode's submitted
// criteria.
func (s *SearchService) LoadStatistics(ctx context.Context, mode model.Mode) error {
	s.mu.Lock()
	st, ok := s.modes[mode]
	if !ok || s.closed || st.phase != PhaseReady {
		s.mu.Unlock()
		return nil
	}
	epoch := st.epoch
	s.mu.Unlock()
	criteria := s.Sessions.Get(mode).SubmittedCriteria
	if len(criteria) == 0 {
		return nil
	}
	return s.loadStatistics(ctx, mode, epoch, criteria)
}

func (s *SearchService) loadStatistics(ctx context.Context, mode model.Mode, epoch uint64, criteria []string) error {
	s.mu.Lock()
	if !s.current(mode, epoch) {
		s.mu.Unlock()
		return errStale
	}
	reqCtx, release := s.begin(ctx, s.modes[mode])
	s.mu.Unlock()

	resp, err := s.Executor.Statistics(reqCtx, query.StatisticsRequest{
		Mode:     mode,
		Criteria: criteria,
		Limit:    s.opts.StatisticsLimit,
	})
	release()

	s.mu.Lock()
	if !s.current(mode, epoch) {
		s.mu.Unlock()
		return errStale
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(err, query.OpStatistics, mode)
	}
	total := resp.TotalCount
	s.Sessions.SetStatistics(mode, &total, resp.TopSkills)
	s.mu.Unlock()
	s.Logger.Debug("statistics applied", zap.String("mode", string(mode)), zap.Int("top", len(resp.TopSkills)))
	return nil
}

// LoadCategoryDistribution fetches how the mode's submitted criteria spread
// over the catalog categories and keeps the result in the session.
func (s *SearchService) LoadCategoryDistribution(ctx context.Context, mode model.Mode) error {
	criteria := s.Sessions.Get(mode).SubmittedCriteria
	if len(criteria) == 0 {
		return nil
	}
	s.mu.Lock()
	st, ok := s.modes[mode]
	if !ok || !s.current(mode, st.epoch) {
		s.mu.Unlock()
		return errStale
	}
	epoch := st.epoch
	reqCtx, release := s.begin(ctx, st)
	s.mu.Unlock()

	shares, err := s.Executor.CategoryDistribution(reqCtx, query.CategoryDistributionRequest{Skills: criteria})
	release()

	s.mu.Lock()
	if !s.current(mode, epoch) {
		s.mu.Unlock()
		return errStale
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail(err, query.OpCategories, mode)
	}
	s.Sessions.SetCategoryShares(mode, shares)
	s.mu.Unlock()
	return nil
}

// FetchCompetency compares the mode's submitted criteria with the skills of
// the match id.
func (s *SearchService) FetchCompetency(ctx context.Context, mode model.Mode, id string) (model.SkillCompetency, error) {
	if id == "" {
		return model.SkillCompetency{}, fmt.Errorf("%w: empty target id", query.ErrValidation)
	}
	criteria := s.Sessions.Get(mode).SubmittedCriteria
	if len(criteria) == 0 {
		return model.SkillCompetency{}, fmt.Errorf("%w: no submitted skills", query.ErrValidation)
	}
	s.mu.Lock()
	st, ok := s.modes[mode]
	if !ok || s.closed {
		s.mu.Unlock()
		return model.SkillCompetency{}, errStale
	}
	reqCtx, release := s.begin(ctx, st)
	s.mu.Unlock()

	m, err := s.Executor.SkillCompetency(reqCtx, query.CompetencyRequest{Mode: mode, TargetID: id, SearchedSkills: criteria})
	release()

	s.mu.Lock()
	live := !s.closed && s.Sessions.ActiveMode() == mode
	s.mu.Unlock()
	if !live {
		return model.SkillCompetency{}, errStale
	}
	if err != nil {
		return model.SkillCompetency{}, s.fail(err, query.OpCompetency, mode)
	}
	return m, nil
}

// LoadCatalog fetches the selectable skill catalog.
func (s *SearchService) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	cats, err := s.Executor.SkillCategories(ctx)
	if err != nil {
		return nil, s.fail(err, query.OpCatalog, s.Sessions.ActiveMode())
	}
	return catalog.New(cats), nil
}
