package session

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/skillmatch/internal/model"
)

func records(prefix string, n int) []model.MatchRecord {
	out := make([]model.MatchRecord, n)
	for i := range out {
		out[i] = model.MatchRecord{ID: prefix + string(rune('a'+i%26)) + string(rune('0'+i/26)), Title: "t", Score: 0.5}
	}
	return out
}

func TestToggleCriterion(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Seeker, model.ThemeDark)

	s.ToggleCriterion(model.Seeker, "java")
	s.ToggleCriterion(model.Seeker, "python")
	s.ToggleCriterion(model.Seeker, "  ")
	require.ElementsMatch(t, []string{"java", "python"}, s.Get(model.Seeker).SelectedCriteria)

	s.ToggleCriterion(model.Seeker, "java")
	require.Equal(t, []string{"python"}, s.Get(model.Seeker).SelectedCriteria)
	require.Empty(t, s.Get(model.Recruiter).SelectedCriteria)
}

func TestSubmitCriteria(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Seeker, model.ThemeDark)

	_, err := s.SubmitCriteria(model.Seeker)
	require.ErrorIs(t, err, ErrEmptySelection)
	require.True(t, s.Get(model.Seeker).IsInitial)

	for _, c := range []string{"python", "go", "java"} {
		s.ToggleCriterion(model.Seeker, c)
	}
	got, err := s.SubmitCriteria(model.Seeker)
	require.NoError(t, err)
	require.Equal(t, []string{"go", "java", "python"}, got)

	ms := s.Get(model.Seeker)
	require.Equal(t, []string{"go", "java", "python"}, ms.SubmittedCriteria)
	require.False(t, ms.IsInitial)
	require.True(t, s.Get(model.Recruiter).IsInitial)
}

func TestHasMoreNeverReturnsWithinEpoch(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Seeker, model.ThemeDark)

	s.ReplaceMatches(model.Seeker, records("a", 20), true)
	s.AppendMatches(model.Seeker, records("b", 5), false)
	require.False(t, s.Get(model.Seeker).HasMore)

	s.AppendMatches(model.Seeker, records("c", 20), true)
	require.False(t, s.Get(model.Seeker).HasMore)
	require.Len(t, s.Get(model.Seeker).Matches, 45)

	s.ClearEpoch(model.Seeker)
	ms := s.Get(model.Seeker)
	require.True(t, ms.HasMore)
	require.Empty(t, ms.Matches)
	require.Nil(t, ms.TotalCount)
}

func TestResetModeKeepsDashboard(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Recruiter, model.ThemeDark)
	dash := []model.DashboardCategory{{Category: "Backend", Skills: []model.SkillCount{{Skill: "go", Count: 3}}}}
	total := 42

	s.ToggleCriterion(model.Recruiter, "go")
	_, err := s.SubmitCriteria(model.Recruiter)
	require.NoError(t, err)
	s.ReplaceMatches(model.Recruiter, records("r", 20), true)
	s.SetTotalCount(model.Recruiter, &total)
	s.SetDashboard(model.Recruiter, dash)

	s.ResetMode(model.Recruiter)

	ms := s.Get(model.Recruiter)
	require.Empty(t, ms.Matches)
	require.Nil(t, ms.TotalCount)
	require.Empty(t, ms.SelectedCriteria)
	require.Empty(t, ms.SubmittedCriteria)
	require.True(t, ms.IsInitial)
	require.Equal(t, dash, ms.Dashboard)
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Seeker, model.ThemeDark)
	s.ReplaceMatches(model.Seeker, records("a", 2), true)

	ms := s.Get(model.Seeker)
	ms.Matches[0].Title = "mutated"
	ms.Matches = append(ms.Matches, model.MatchRecord{ID: "x"})

	again := s.Get(model.Seeker)
	require.Len(t, again.Matches, 2)
	require.Equal(t, "t", again.Matches[0].Title)
}

// Random operation sequences on one mode must leave the other untouched.
func TestModeIsolation(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	s := NewStore(model.Seeker, model.ThemeDark)

	s.ToggleCriterion(model.Recruiter, "kotlin")
	s.ReplaceMatches(model.Recruiter, records("r", 3), true)
	before := s.Get(model.Recruiter)

	total := 9
	for i := 0; i < 500; i++ {
		switch rng.Intn(9) {
		case 0:
			s.ToggleCriterion(model.Seeker, []string{"go", "java", "rust"}[rng.Intn(3)])
		case 1:
			_, _ = s.SubmitCriteria(model.Seeker)
		case 2:
			s.ReplaceMatches(model.Seeker, records("s", rng.Intn(20)), rng.Intn(2) == 0)
		case 3:
			s.AppendMatches(model.Seeker, records("s", rng.Intn(20)), rng.Intn(2) == 0)
		case 4:
			s.ClearEpoch(model.Seeker)
		case 5:
			s.ResetMode(model.Seeker)
		case 6:
			s.SetTotalCount(model.Seeker, &total)
		case 7:
			s.SetStatistics(model.Seeker, &total, []model.SkillFrequency{{Skill: "go", Count: 1}})
		case 8:
			s.SetExperience(model.Seeker, "SENIOR")
		}
	}

	require.Equal(t, before, s.Get(model.Recruiter))
}

func TestObserversSeeDurableChangesOnly(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Seeker, model.ThemeDark)
	var events []Event
	s.Observe(func(ev Event) { events = append(events, ev) })

	s.ReplaceMatches(model.Seeker, records("a", 1), true)
	s.SetDashboard(model.Seeker, nil)
	require.Empty(t, events)

	s.ToggleCriterion(model.Recruiter, "go")
	s.SetActiveMode(model.Recruiter)
	s.SetActiveMode(model.Recruiter)
	require.Equal(t, []Event{{Mode: model.Recruiter}, {Shared: true}}, events)
}

func TestRestoreMarksNeedsRefresh(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Seeker, model.ThemeDark)
	total := 25

	s.Restore(model.Seeker, Durable{
		SelectedCriteria:  []string{"python", "java"},
		SubmittedCriteria: []string{"java", "python"},
		TotalCount:        &total,
	})
	require.True(t, s.NeedsRefresh(model.Seeker))
	require.False(t, s.NeedsRefresh(model.Recruiter))

	s.ReplaceMatches(model.Seeker, records("a", 1), false)
	require.False(t, s.NeedsRefresh(model.Seeker))

	d := s.Durable(model.Seeker)
	require.Equal(t, []string{"java", "python"}, d.SubmittedCriteria)
	require.Equal(t, 25, *d.TotalCount)
}

func TestEmptyResultDoesNotNeedRefresh(t *testing.T) {
	t.Parallel()
	s := NewStore(model.Seeker, model.ThemeDark)
	s.CommitSubmitted(model.Seeker, []string{"cobol"})
	s.ClearEpoch(model.Seeker)
	require.True(t, s.NeedsRefresh(model.Seeker))

	s.ReplaceMatches(model.Seeker, nil, false)
	require.False(t, s.NeedsRefresh(model.Seeker))
	require.True(t, s.Get(model.Seeker).Loaded)

	s.Restore(model.Seeker, s.Durable(model.Seeker))
	require.True(t, s.NeedsRefresh(model.Seeker))

	s.ReplaceMatches(model.Seeker, nil, false)
	s.ResetMode(model.Seeker)
	require.False(t, s.NeedsRefresh(model.Seeker))
	require.False(t, s.Get(model.Seeker).Loaded)
}

func TestCanonicalCriteria(t *testing.T) {
	t.Parallel()
	require.Equal(t, []string{"go", "java"}, CanonicalCriteria([]string{"java", "", " go ", "java"}))
	require.Empty(t, CanonicalCriteria([]string{" ", ""}))
}
