package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/notify"
	"github.com/jask/skillmatch/internal/query"
	"github.com/jask/skillmatch/internal/session"
)

const (
	DefaultPageSize        = 20
	DefaultCooldown        = 300 * time.Millisecond
	DefaultTimeout         = 20 * time.Second
	DefaultStatisticsLimit = 15
)

// ErrEmptySelection is returned when a search is requested with no usable
// criteria. It matches query.ErrValidation.
var ErrEmptySelection = fmt.Errorf("%w: %w", query.ErrValidation, session.ErrEmptySelection)

// errStale marks a response that arrived after its mode was switched away
// from or its search was superseded. It is never surfaced to the user.
var errStale = fmt.Errorf("%w: stale response", query.ErrCancelled)

// DefaultSortKey is the ordering used when a caller passes no sort key.
func DefaultSortKey(mode model.Mode) string {
	if mode == model.Recruiter {
		return "score DESC, createdAt DESC"
	}
	return "score DESC, publishedAt DESC"
}

// Phase is the search state of one mode.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseSearching:
		return "searching"
	case PhaseReady:
		return "ready"
	}
	return "idle"
}

// Status is a read-only view of a mode's controller state.
type Status struct {
	Phase        Phase
	FetchingMore bool
	Epoch        uint64
	SortKey      string
}

// Options tunes a SearchService. Zero values fall back to the defaults.
type Options struct {
	PageSize        int
	Cooldown        time.Duration
	Timeout         time.Duration
	StatisticsLimit int
	// Now is the clock used by the load-more cooldown gate.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.Cooldown < 0 {
		o.Cooldown = 0
	} else if o.Cooldown == 0 {
		o.Cooldown = DefaultCooldown
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.StatisticsLimit <= 0 {
		o.StatisticsLimit = DefaultStatisticsLimit
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

type modeState struct {
	phase        Phase
	fetchingMore bool
	epoch        uint64
	sortKey      string
	limiter      *rate.Limiter
	nextReq      uint64
	inflight     map[uint64]context.CancelFunc
}

// cancelAll aborts every request still in flight for the mode.
func (st *modeState) cancelAll() {
	for id, cancel := range st.inflight {
		cancel()
		delete(st.inflight, id)
	}
}

// SearchService drives searches and pagination for both modes. Network calls
// run with the lock released; every response is checked against the mode's
// current epoch and the active mode before it touches the session store.
type SearchService struct {
	Executor query.Executor
	Sessions *session.Store
	Notifier notify.Notifier
	Logger   *zap.Logger

	opts Options

	mu     sync.Mutex
	modes  map[model.Mode]*modeState
	closed bool
}

func NewSearchService(exec query.Executor, sessions *session.Store, n notify.Notifier, logger *zap.Logger, opts Options) *SearchService {
	if n == nil {
		n = notify.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	s := &SearchService{
		Executor: exec,
		Sessions: sessions,
		Notifier: n,
		Logger:   logger.With(zap.String("component", "search")),
		opts:     opts,
		modes:    make(map[model.Mode]*modeState, len(model.Modes)),
	}
	for _, m := range model.Modes {
		limit := rate.Inf
		if opts.Cooldown > 0 {
			limit = rate.Every(opts.Cooldown)
		}
		s.modes[m] = &modeState{
			limiter:  rate.NewLimiter(limit, 1),
			inflight: map[uint64]context.CancelFunc{},
		}
	}
	return s
}

// Status reports the controller state of mode.
func (s *SearchService) Status(mode model.Mode) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.modes[mode]
	if !ok {
		return Status{}
	}
	return Status{Phase: st.phase, FetchingMore: st.fetchingMore, Epoch: st.epoch, SortKey: st.sortKey}
}

// begin registers a request for mode and returns its context. The caller
// must hold s.mu and call the returned release once the request resolves.
func (s *SearchService) begin(parent context.Context, st *modeState) (context.Context, func()) {
	ctx, cancel := context.WithTimeout(parent, s.opts.Timeout)
	id := st.nextReq
	st.nextReq++
	st.inflight[id] = cancel
	return ctx, func() {
		cancel()
		s.mu.Lock()
		delete(st.inflight, id)
		s.mu.Unlock()
	}
}

// current reports whether a response for mode tagged with epoch may still be
// applied. Callers hold s.mu.
func (s *SearchService) current(mode model.Mode, epoch uint64) bool {
	if s.closed {
		return false
	}
	if s.modes[mode].epoch != epoch {
		return false
	}
	return s.Sessions.ActiveMode() == mode
}

// Submit validates the mode's selection, commits it and runs a search with
// the default sort key.
func (s *SearchService) Submit(ctx context.Context, mode model.Mode) error {
	criteria, err := s.Sessions.SubmitCriteria(mode)
	if err != nil {
		s.rejectEmpty(mode)
		return ErrEmptySelection
	}
	return s.RunSearch(ctx, mode, criteria, "")
}

// RunSearch starts a new result epoch for mode and fetches its first page.
// A search already in flight for the mode is superseded.
func (s *SearchService) RunSearch(ctx context.Context, mode model.Mode, criteria []string, sortKey string) error {
	criteria = session.CanonicalCriteria(criteria)
	if len(criteria) == 0 {
		s.rejectEmpty(mode)
		return ErrEmptySelection
	}
	if sortKey == "" {
		sortKey = DefaultSortKey(mode)
	}

	s.mu.Lock()
	st, ok := s.modes[mode]
	if !ok || s.closed {
		s.mu.Unlock()
		return fmt.Errorf("search: unknown mode %q", mode)
	}
	st.cancelAll()
	st.epoch++
	epoch := st.epoch
	st.phase = PhaseSearching
	st.fetchingMore = false
	st.sortKey = sortKey
	reqCtx, release := s.begin(ctx, st)
	s.mu.Unlock()

	s.Sessions.CommitSubmitted(mode, criteria)
	s.Sessions.ClearEpoch(mode)

	req := query.SearchRequest{
		Mode:       mode,
		Criteria:   criteria,
		Experience: s.Sessions.Get(mode).SelectedExperience,
		SortKey:    sortKey,
		Limit:      s.opts.PageSize,
		Offset:     0,
	}
	log := s.Logger.With(zap.String("mode", string(mode)), zap.Uint64("epoch", epoch))
	log.Debug("search issued", zap.Strings("criteria", criteria))
	resp, err := s.Executor.Search(reqCtx, req)
	release()

	s.mu.Lock()
	if !s.current(mode, epoch) {
		if st.epoch == epoch {
			st.phase = PhaseIdle
		}
		s.mu.Unlock()
		log.Debug("search response discarded")
		return errStale
	}
	if err != nil {
		if query.Classify(err, query.OpSearch, mode).Kind == query.KindCancelled {
			// nothing was loaded, so a later Restore runs the search again
			st.phase = PhaseIdle
		} else {
			st.phase = PhaseReady
			s.Sessions.ReplaceMatches(mode, nil, false)
		}
		s.mu.Unlock()
		return s.fail(err, query.OpSearch, mode)
	}
	st.phase = PhaseReady
	s.Sessions.ReplaceMatches(mode, resp.Records, len(resp.Records) == s.opts.PageSize)
	if resp.TotalCount != nil {
		s.Sessions.SetTotalCount(mode, resp.TotalCount)
	}
	s.mu.Unlock()
	log.Debug("search applied", zap.Int("records", len(resp.Records)))

	// Statistics failures are reported but never affect the page just applied.
	_ = s.loadStatistics(ctx, mode, epoch, criteria)
	return nil
}

// LoadMore fetches the next page of the current epoch. It silently does
// nothing when the mode is not ready, has no more pages, already has a page
// in flight, or was asked again inside the cooldown window.
func (s *SearchService) LoadMore(ctx context.Context, mode model.Mode) error {
	s.mu.Lock()
	st, ok := s.modes[mode]
	if !ok || s.closed || st.phase != PhaseReady || st.fetchingMore {
		s.mu.Unlock()
		return nil
	}
	ms := s.Sessions.Get(mode)
	if !ms.HasMore || len(ms.SubmittedCriteria) == 0 {
		s.mu.Unlock()
		return nil
	}
	if !st.limiter.AllowN(s.opts.Now(), 1) {
		s.mu.Unlock()
		s.Logger.Debug("load more suppressed by cooldown", zap.String("mode", string(mode)))
		return nil
	}
	st.fetchingMore = true
	epoch := st.epoch
	req := query.SearchRequest{
		Mode:       mode,
		Criteria:   ms.SubmittedCriteria,
		Experience: ms.SelectedExperience,
		SortKey:    st.sortKey,
		Limit:      s.opts.PageSize,
		Offset:     len(ms.Matches),
	}
	reqCtx, release := s.begin(ctx, st)
	s.mu.Unlock()

	resp, err := s.Executor.Search(reqCtx, req)
	release()

	s.mu.Lock()
	if !s.current(mode, epoch) {
		if st.epoch == epoch {
			st.fetchingMore = false
		}
		s.mu.Unlock()
		return errStale
	}
	st.fetchingMore = false
	if err != nil {
		s.mu.Unlock()
		return s.fail(err, query.OpLoadMore, mode)
	}
	s.Sessions.AppendMatches(mode, resp.Records, len(resp.Records) == s.opts.PageSize)
	s.mu.Unlock()
	return nil
}

// NeedsRefresh reports whether mode has submitted criteria but no results in
// memory and no search running.
func (s *SearchService) NeedsRefresh(mode model.Mode) bool {
	s.mu.Lock()
	searching := s.modes[mode] != nil && s.modes[mode].phase == PhaseSearching
	s.mu.Unlock()
	return !searching && s.Sessions.NeedsRefresh(mode)
}

// Restore re-runs the last submitted search of mode when its results are
// missing, as after a restart or after a search was cut short by a mode
// switch.
func (s *SearchService) Restore(ctx context.Context, mode model.Mode) error {
	if !s.NeedsRefresh(mode) {
		return nil
	}
	s.mu.Lock()
	sortKey := s.modes[mode].sortKey
	s.mu.Unlock()
	return s.RunSearch(ctx, mode, s.Sessions.Get(mode).SubmittedCriteria, sortKey)
}

// SwitchMode makes mode the active one. Requests of the mode being left are
// cancelled and its epoch advanced, so their responses are discarded even if
// the user switches straight back.
func (s *SearchService) SwitchMode(mode model.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("switch mode: unknown mode %q", mode)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.Sessions.ActiveMode()
	if prev == mode {
		return nil
	}
	if st, ok := s.modes[prev]; ok {
		st.cancelAll()
		st.epoch++
		st.fetchingMore = false
		if st.phase == PhaseSearching {
			st.phase = PhaseIdle
		}
	}
	s.Sessions.SetActiveMode(mode)
	return nil
}

// ResetMode drops the mode's search back to its initial state.
func (s *SearchService) ResetMode(mode model.Mode) {
	s.mu.Lock()
	if st, ok := s.modes[mode]; ok {
		st.cancelAll()
		st.epoch++
		st.phase = PhaseIdle
		st.fetchingMore = false
		st.sortKey = ""
	}
	s.mu.Unlock()
	s.Sessions.ResetMode(mode)
}

// Close cancels every outstanding request. Late responses are discarded.
func (s *SearchService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, st := range s.modes {
		st.cancelAll()
		st.epoch++
		st.fetchingMore = false
		if st.phase == PhaseSearching {
			st.phase = PhaseIdle
		}
	}
}

func (s *SearchService) rejectEmpty(mode model.Mode) {
	s.Notifier.Notify(notify.Notification{
		Level:   notify.LevelInfo,
		Mode:    mode,
		Op:      query.OpSearch,
		Message: "Select at least one skill before searching.",
		Err:     ErrEmptySelection,
	})
}

// fail classifies err and reports it, except for cancellations which are only
// logged. It returns the classified failure.
func (s *SearchService) fail(err error, op query.Op, mode model.Mode) error {
	f := query.Classify(err, op, mode)
	log := s.Logger.With(zap.String("op", string(op)), zap.String("mode", string(mode)))
	if f.Kind == query.KindCancelled {
		log.Debug("request cancelled", zap.Error(err))
		return f
	}
	log.Warn("request failed", zap.String("kind", f.Kind.String()), zap.Error(err))
	s.Notifier.Notify(notify.Notification{
		Level:   notify.LevelError,
		Mode:    mode,
		Op:      op,
		Message: notify.FailureMessage(f, s.opts.Timeout),
		Err:     f,
	})
	return f
}

// IsStale reports whether err only means a response was discarded.
func IsStale(err error) bool {
	return errors.Is(err, errStale)
}
