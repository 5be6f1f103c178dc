// Package session holds the per-mode search state. Every mutation goes
// through a named transition on Store; nothing here performs I/O.
package session

import (
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/jask/skillmatch/internal/model"
)

// ErrEmptySelection is returned when a submit is attempted with no criteria.
var ErrEmptySelection = errors.New("empty selection")

// DefaultExperience mirrors the experience level preselected for a fresh mode.
const DefaultExperience = "MID"

// ModeSession is the complete search state of one mode.
type ModeSession struct {
	SelectedCriteria   []string
	SubmittedCriteria  []string
	SelectedExperience string
	IsInitial          bool
	Matches            []model.MatchRecord
	TotalCount         *int
	HasMore            bool
	TopSkills          []model.SkillFrequency
	Dashboard          []model.DashboardCategory
	CategoryShares     []model.CategoryShare
	// Loaded is set once a first page for the submitted criteria has been
	// applied in this process, even when it held no records.
	Loaded bool
}

func newModeSession() *ModeSession {
	return &ModeSession{
		SelectedExperience: DefaultExperience,
		IsInitial:          true,
		HasMore:            true,
	}
}

// Shared is the mode-independent UI record.
type Shared struct {
	ActiveMode model.Mode
	Theme      model.Theme
}

// Event describes a committed change to durable state. Mode is empty when
// only the shared record changed.
type Event struct {
	Mode   model.Mode
	Shared bool
}

// Store keeps one ModeSession per mode and never lets a transition on one
// mode reach the other.
type Store struct {
	mu        sync.Mutex
	sessions  map[model.Mode]*ModeSession
	shared    Shared
	observers []func(Event)
}

func NewStore(active model.Mode, theme model.Theme) *Store {
	if !active.Valid() {
		active = model.Seeker
	}
	if theme == "" {
		theme = model.ThemeDark
	}
	s := &Store{
		sessions: make(map[model.Mode]*ModeSession, len(model.Modes)),
		shared:   Shared{ActiveMode: active, Theme: theme},
	}
	for _, m := range model.Modes {
		s.sessions[m] = newModeSession()
	}
	return s
}

// Observe registers fn to run after every durable change. fn is called
// without the store lock held.
func (s *Store) Observe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(ev Event) {
	s.mu.Lock()
	obs := slices.Clone(s.observers)
	s.mu.Unlock()
	for _, fn := range obs {
		fn(ev)
	}
}

// mutate runs fn on the mode's session under the lock and reports a durable
// change when fn returns true.
func (s *Store) mutate(mode model.Mode, fn func(ms *ModeSession) bool) {
	s.mu.Lock()
	ms, ok := s.sessions[mode]
	if !ok {
		s.mu.Unlock()
		return
	}
	durable := fn(ms)
	s.mu.Unlock()
	if durable {
		s.notify(Event{Mode: mode})
	}
}

// Get returns a deep copy of the mode's session.
func (s *Store) Get(mode model.Mode) ModeSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.sessions[mode]
	if !ok {
		return ModeSession{}
	}
	return ms.clone()
}

// ToggleCriterion adds value to the selection if absent, else removes it.
func (s *Store) ToggleCriterion(mode model.Mode, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	s.mutate(mode, func(ms *ModeSession) bool {
		if i := slices.Index(ms.SelectedCriteria, value); i >= 0 {
			ms.SelectedCriteria = slices.Delete(ms.SelectedCriteria, i, i+1)
		} else {
			ms.SelectedCriteria = append(ms.SelectedCriteria, value)
		}
		return true
	})
}

func (s *Store) SetExperience(mode model.Mode, value string) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.SelectedExperience = strings.TrimSpace(value)
		return true
	})
}

// SubmitCriteria commits a sorted snapshot of the selection as the submitted
// criteria. An empty selection leaves the session untouched.
func (s *Store) SubmitCriteria(mode model.Mode) ([]string, error) {
	var (
		out []string
		err error
	)
	s.mutate(mode, func(ms *ModeSession) bool {
		out = CanonicalCriteria(ms.SelectedCriteria)
		if len(out) == 0 {
			err = ErrEmptySelection
			return false
		}
		ms.SubmittedCriteria = slices.Clone(out)
		ms.IsInitial = false
		return true
	})
	return out, err
}

// CommitSubmitted records criteria already canonicalised by the caller as the
// ones used for the current search.
func (s *Store) CommitSubmitted(mode model.Mode, criteria []string) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.SubmittedCriteria = slices.Clone(criteria)
		ms.IsInitial = false
		return true
	})
}

// ReplaceMatches starts a new epoch holding records.
func (s *Store) ReplaceMatches(mode model.Mode, records []model.MatchRecord, hasMore bool) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.Matches = slices.Clone(records)
		ms.HasMore = hasMore
		ms.Loaded = true
		return false
	})
}

// AppendMatches continues the current epoch. HasMore can only go from true
// to false here.
func (s *Store) AppendMatches(mode model.Mode, records []model.MatchRecord, hasMore bool) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.Matches = append(ms.Matches, records...)
		ms.HasMore = ms.HasMore && hasMore
		return false
	})
}

func (s *Store) SetTotalCount(mode model.Mode, total *int) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.TotalCount = cloneInt(total)
		return true
	})
}

// SetStatistics stores the top-skills summary and, when known, the total.
func (s *Store) SetStatistics(mode model.Mode, total *int, top []model.SkillFrequency) {
	s.mutate(mode, func(ms *ModeSession) bool {
		if total != nil {
			ms.TotalCount = cloneInt(total)
		}
		ms.TopSkills = slices.Clone(top)
		return true
	})
}

// SetCategoryShares stores how the submitted criteria spread over the
// catalog categories. It is not persisted.
func (s *Store) SetCategoryShares(mode model.Mode, shares []model.CategoryShare) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.CategoryShares = cloneShares(shares)
		return false
	})
}

func (s *Store) SetDashboard(mode model.Mode, data []model.DashboardCategory) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.Dashboard = cloneDashboard(data)
		return false
	})
}

// ClearEpoch drops accumulated results but keeps the selection.
func (s *Store) ClearEpoch(mode model.Mode) {
	s.mutate(mode, func(ms *ModeSession) bool {
		ms.Matches = nil
		ms.TotalCount = nil
		ms.HasMore = true
		ms.TopSkills = nil
		ms.CategoryShares = nil
		ms.Loaded = false
		return true
	})
}

// ResetMode returns the mode to its start-of-life state. The dashboard
// snapshot survives.
func (s *Store) ResetMode(mode model.Mode) {
	s.mutate(mode, func(ms *ModeSession) bool {
		dashboard := ms.Dashboard
		*ms = *newModeSession()
		ms.Dashboard = dashboard
		return true
	})
}

// NeedsRefresh reports whether the mode has a submitted search whose first
// page has not been applied since the last reload or cut-short search. A
// search that legitimately matched nothing does not need a refresh.
func (s *Store) NeedsRefresh(mode model.Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.sessions[mode]
	if !ok {
		return false
	}
	return !ms.IsInitial && len(ms.SubmittedCriteria) > 0 && !ms.Loaded
}

func (s *Store) Shared() Shared {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shared
}

func (s *Store) ActiveMode() model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shared.ActiveMode
}

func (s *Store) SetActiveMode(mode model.Mode) {
	if !mode.Valid() {
		return
	}
	s.mu.Lock()
	changed := s.shared.ActiveMode != mode
	s.shared.ActiveMode = mode
	s.mu.Unlock()
	if changed {
		s.notify(Event{Shared: true})
	}
}

func (s *Store) SetTheme(theme model.Theme) {
	s.mu.Lock()
	s.shared.Theme = theme
	s.mu.Unlock()
	s.notify(Event{Shared: true})
}

// CanonicalCriteria drops blank and duplicate entries and sorts the rest, so
// the same selection always yields the same request and cache key.
func CanonicalCriteria(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (ms *ModeSession) clone() ModeSession {
	return ModeSession{
		SelectedCriteria:   slices.Clone(ms.SelectedCriteria),
		SubmittedCriteria:  slices.Clone(ms.SubmittedCriteria),
		SelectedExperience: ms.SelectedExperience,
		IsInitial:          ms.IsInitial,
		Matches:            cloneMatches(ms.Matches),
		TotalCount:         cloneInt(ms.TotalCount),
		HasMore:            ms.HasMore,
		TopSkills:          slices.Clone(ms.TopSkills),
		Dashboard:          cloneDashboard(ms.Dashboard),
		CategoryShares:     cloneShares(ms.CategoryShares),
		Loaded:             ms.Loaded,
	}
}

func cloneShares(in []model.CategoryShare) []model.CategoryShare {
	if in == nil {
		return nil
	}
	out := make([]model.CategoryShare, len(in))
	for i, sh := range in {
		out[i] = sh
		out[i].MatchedSkills = slices.Clone(sh.MatchedSkills)
	}
	return out
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneMatches(in []model.MatchRecord) []model.MatchRecord {
	if in == nil {
		return nil
	}
	out := make([]model.MatchRecord, len(in))
	for i, m := range in {
		m.Skills = slices.Clone(m.Skills)
		m.Experience = cloneInt(m.Experience)
		out[i] = m
	}
	return out
}

func cloneDashboard(in []model.DashboardCategory) []model.DashboardCategory {
	if in == nil {
		return nil
	}
	out := make([]model.DashboardCategory, len(in))
	for i, c := range in {
		c.Skills = slices.Clone(c.Skills)
		out[i] = c
	}
	return out
}
