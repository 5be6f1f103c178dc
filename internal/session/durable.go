package session

import (
	"slices"

	"github.com/jask/skillmatch/internal/model"
)

// Durable is the subset of a ModeSession that survives a restart. Matches and
// the dashboard snapshot are deliberately absent.
type Durable struct {
	SelectedCriteria   []string               `json:"selectedCriteria"`
	SubmittedCriteria  []string               `json:"submittedCriteria"`
	SelectedExperience string                 `json:"selectedExperience"`
	IsInitial          bool                   `json:"isInitial"`
	TotalCount         *int                   `json:"totalCount,omitempty"`
	TopSkills          []model.SkillFrequency `json:"topSkillsSummary,omitempty"`
}

// SharedDurable is the persisted form of Shared.
type SharedDurable struct {
	ActiveMode model.Mode  `json:"activeMode"`
	Theme      model.Theme `json:"theme"`
}

func (s *Store) Durable(mode model.Mode) Durable {
	ms := s.Get(mode)
	return Durable{
		SelectedCriteria:   ms.SelectedCriteria,
		SubmittedCriteria:  ms.SubmittedCriteria,
		SelectedExperience: ms.SelectedExperience,
		IsInitial:          ms.IsInitial,
		TotalCount:         ms.TotalCount,
		TopSkills:          ms.TopSkills,
	}
}

// Restore loads a durable record into the mode without firing observers.
// Results stay empty, so a restored submitted search reports NeedsRefresh.
func (s *Store) Restore(mode model.Mode, d Durable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ms, ok := s.sessions[mode]
	if !ok {
		return
	}
	ms.SelectedCriteria = slices.Clone(d.SelectedCriteria)
	ms.SubmittedCriteria = slices.Clone(d.SubmittedCriteria)
	if d.SelectedExperience != "" {
		ms.SelectedExperience = d.SelectedExperience
	}
	ms.IsInitial = d.IsInitial || len(d.SubmittedCriteria) == 0
	ms.TotalCount = cloneInt(d.TotalCount)
	ms.TopSkills = slices.Clone(d.TopSkills)
	ms.Matches = nil
	ms.CategoryShares = nil
	ms.HasMore = true
	ms.Loaded = false
}

func (s *Store) SharedDurable() SharedDurable {
	sh := s.Shared()
	return SharedDurable{ActiveMode: sh.ActiveMode, Theme: sh.Theme}
}

func (s *Store) RestoreShared(d SharedDurable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ActiveMode.Valid() {
		s.shared.ActiveMode = d.ActiveMode
	}
	if d.Theme == model.ThemeDark || d.Theme == model.ThemeLight {
		s.shared.Theme = d.Theme
	}
}
