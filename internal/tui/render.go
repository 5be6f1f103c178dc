package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/notify"
	"github.com/jask/skillmatch/internal/service"
)

const (
	resultsVisible = 12
	barWidth       = 24
)

func (a *App) styles() styles {
	return stylesFor(a.sessions.Shared().Theme)
}

func (a *App) renderHeader() string {
	st := a.styles()
	active := a.mode()
	tabs := make([]string, 0, len(model.Modes))
	for _, m := range model.Modes {
		if m == active {
			tabs = append(tabs, st.TabOn.Render(m.Label()))
		} else {
			tabs = append(tabs, st.Tab.Render(m.Label()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, st.Title.Render("skillmatch"), "  ", strings.Join(tabs, " "))
}

func (a *App) renderFooter(view model.ViewKind) string {
	st := a.styles()
	var keys string
	switch view {
	case model.ViewInput:
		keys = "[type] skill  [enter] toggle/search  [tab] pick suggestion  [ctrl+e] experience  [esc] back"
	case model.ViewResults:
		keys = "[j/k] move  [enter] open  [L] load more  [a] analysis  [b] back  [m] mode  [q] quit"
	case model.ViewAnalysis:
		keys = "[s] refresh  [r] results  [b] back  [m] mode  [q] quit"
	default:
		keys = "[i] search  [r] results  [a] analysis  [d] dashboard  [b/f] back/fwd  [m] mode  [T] theme  [R] reset  [q] quit"
	}
	var status string
	if a.status != "" {
		if a.statusLevel == notify.LevelError {
			status = st.Error.Render(a.status) + "\n"
		} else {
			status = st.Info.Render(a.status) + "\n"
		}
	}
	return status + st.Footer.Render(keys)
}

func (a *App) renderDashboard() string {
	st := a.styles()
	mode := a.mode()
	ms := a.sessions.Get(mode)
	var b strings.Builder
	b.WriteString(st.Title.Render(mode.Label()+" dashboard") + "\n\n")
	if ms.Dashboard == nil {
		b.WriteString(st.Muted.Render("Loading dashboard..."))
		return b.String()
	}
	if len(ms.Dashboard) == 0 {
		b.WriteString(st.Muted.Render("No data yet."))
		return b.String()
	}
	for _, cat := range ms.Dashboard {
		b.WriteString(st.Selected.Render(cat.Category) + "\n")
		for i, sk := range cat.Skills {
			if i == 5 {
				break
			}
			fmt.Fprintf(&b, "  %-20s %s\n", sk.Skill, st.Muted.Render(fmt.Sprintf("%d", sk.Count)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderInput() string {
	st := a.styles()
	mode := a.mode()
	ms := a.sessions.Get(mode)
	var b strings.Builder
	b.WriteString(st.Title.Render("Search "+strings.ToLower(mode.Label())+" matches") + "\n\n")

	b.WriteString("Skills: ")
	if len(ms.SelectedCriteria) == 0 {
		b.WriteString(st.Muted.Render("none selected"))
	}
	for _, c := range ms.SelectedCriteria {
		b.WriteString(st.Chip.Render(c))
	}
	b.WriteString("\nExperience: " + st.Selected.Render(ms.SelectedExperience) + "\n\n")

	b.WriteString("> " + a.inputBuffer + st.Muted.Render("_") + "\n")
	if a.catalog == nil {
		b.WriteString(st.Muted.Render("Loading skill catalog..."))
		return b.String()
	}
	for i, sk := range a.suggestions() {
		line := "  " + sk
		if cat := a.catalog.CategoryOf(sk); cat != "" {
			line += st.Muted.Render("  " + cat)
		}
		if i == a.suggestion {
			line = st.Selected.Render("▸ " + sk)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderResults() string {
	st := a.styles()
	mode := a.mode()
	ms := a.sessions.Get(mode)
	status := a.search.Status(mode)
	var b strings.Builder

	header := "Results for " + strings.Join(ms.SubmittedCriteria, ", ")
	if ms.TotalCount != nil {
		header += fmt.Sprintf(" (%d total)", *ms.TotalCount)
	}
	b.WriteString(st.Title.Render(header) + "\n\n")

	if status.Phase == service.PhaseSearching {
		b.WriteString(st.Muted.Render("Searching..."))
		return b.String()
	}
	if len(ms.Matches) == 0 {
		b.WriteString(st.Muted.Render("No matches."))
		return b.String()
	}

	cursor := min(a.cursor[mode], len(ms.Matches)-1)
	top := max(0, cursor-resultsVisible+1)
	end := min(len(ms.Matches), top+resultsVisible)
	for i := top; i < end; i++ {
		m := ms.Matches[i]
		line := fmt.Sprintf("%5.1f  %-32s %s", m.Score, truncate(m.Title, 32), m.Company)
		if i == cursor {
			b.WriteString(st.Selected.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(st.Text.Render("  "+line) + "\n")
		}
	}
	footer := fmt.Sprintf("%d shown", len(ms.Matches))
	switch {
	case status.FetchingMore:
		footer += "  loading more..."
	case ms.HasMore:
		footer += "  more available"
	default:
		footer += "  end of results"
	}
	b.WriteString(st.Muted.Render(footer))
	return b.String()
}

func (a *App) renderDetail(id string) string {
	st := a.styles()
	mode := a.mode()
	d := a.details[mode]
	if d == nil || detailID(*d) != id {
		return st.Muted.Render("Loading details...")
	}
	var b strings.Builder
	b.WriteString(st.Title.Render(d.Title()) + "\n\n")
	switch {
	case d.Recruit != nil:
		r := d.Recruit
		writeField(&b, st, "Experience", years(r.ExperienceYears))
		writeField(&b, st, "Keyword", r.PrimaryKeyword)
		writeField(&b, st, "English", r.EnglishLevel)
		writeField(&b, st, "Published", r.PublishedAt)
		writeSkills(&b, st, r.Skills)
		if r.Description != "" {
			b.WriteString("\n" + r.Description)
		}
	case d.Candidate != nil:
		c := d.Candidate
		writeField(&b, st, "Experience", years(c.ExperienceYears))
		writeField(&b, st, "Looking for", c.LookingFor)
		writeField(&b, st, "Created", c.CreatedAt)
		writeSkills(&b, st, c.Skills)
		if c.OriginalResume != "" {
			b.WriteString("\n" + c.OriginalResume)
		}
	}
	if c := a.competency[mode]; c != nil && c.id == id {
		m := c.match
		fmt.Fprintf(&b, "\n\n%s %.1f%% (%s)\n", st.Title.Render("Skill match"), m.MatchingPercentage, m.CompetencyLevel)
		writeList(&b, st, "Matched", m.MatchedSkills)
		writeList(&b, st, "Missing", m.MissingSkills)
		writeList(&b, st, "Extra", m.ExtraSkills)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *App) renderAnalysis() string {
	st := a.styles()
	ms := a.sessions.Get(a.mode())
	var b strings.Builder
	b.WriteString(st.Title.Render("Top skills among matches") + "\n\n")
	if ms.TotalCount != nil {
		fmt.Fprintf(&b, "%d matches for %s\n\n", *ms.TotalCount, strings.Join(ms.SubmittedCriteria, ", "))
	}
	if len(ms.TopSkills) == 0 {
		b.WriteString(st.Muted.Render("No statistics yet.") + "\n")
	}
	for _, f := range ms.TopSkills {
		fmt.Fprintf(&b, "%-20s %s %5.1f%% (%d)\n", truncate(f.Skill, 20), st.bar(f.Percentage), f.Percentage, f.Count)
	}
	if len(ms.CategoryShares) > 0 {
		b.WriteString("\n" + st.Title.Render("Searched skills by category") + "\n\n")
		for _, sh := range ms.CategoryShares {
			fmt.Fprintf(&b, "%-20s %s %5.1f%% %s\n", truncate(sh.Category, 20), st.bar(sh.Percentage), sh.Percentage,
				st.Muted.Render(strings.Join(sh.MatchedSkills, ", ")))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func (st styles) bar(pct float64) string {
	n := min(max(int(pct/100*barWidth), 0), barWidth)
	return st.Bar.Render(strings.Repeat("█", n)) + st.Muted.Render(strings.Repeat("░", barWidth-n))
}

func writeList(b *strings.Builder, st styles, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(st.Muted.Render(label+": ") + strings.Join(items, ", ") + "\n")
}

func writeField(b *strings.Builder, st styles, label, value string) {
	if value == "" {
		return
	}
	b.WriteString(st.Muted.Render(label+": ") + value + "\n")
}

func writeSkills(b *strings.Builder, st styles, skills []string) {
	if len(skills) == 0 {
		return
	}
	b.WriteString(st.Muted.Render("Skills: "))
	for _, s := range skills {
		b.WriteString(st.Chip.Render(s))
	}
	b.WriteString("\n")
}

func years(v *int) string {
	if v == nil {
		return ""
	}
	if *v == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", *v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
