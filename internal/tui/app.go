package tui

import (
	"context"
	"fmt"
	"slices"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/skillmatch/internal/catalog"
	"github.com/jask/skillmatch/internal/history"
	"github.com/jask/skillmatch/internal/model"
	"github.com/jask/skillmatch/internal/notify"
	"github.com/jask/skillmatch/internal/service"
	"github.com/jask/skillmatch/internal/session"
)

var experienceLevels = []string{"JUNIOR", "MID", "SENIOR"}

// App ties together views.
type App struct {
	ctx      context.Context
	search   *service.SearchService
	sessions *session.Store
	nav      *history.Navigator
	notes    <-chan notify.Notification
	catalog  *catalog.Catalog

	cursor      map[model.Mode]int
	details     map[model.Mode]*model.Detail
	competency  map[model.Mode]*competencyView
	loadingID   map[model.Mode]string
	inputBuffer string
	suggestion  int
	status      string
	statusLevel notify.Level
	width       int
}

func New(ctx context.Context, search *service.SearchService, nav *history.Navigator, notes <-chan notify.Notification) *App {
	return &App{
		ctx:        ctx,
		search:     search,
		sessions:   search.Sessions,
		nav:        nav,
		notes:      notes,
		cursor:     map[model.Mode]int{},
		details:    map[model.Mode]*model.Detail{},
		competency: map[model.Mode]*competencyView{},
		loadingID:  map[model.Mode]string{},
	}
}

func (a *App) mode() model.Mode {
	return a.sessions.ActiveMode()
}

func (a *App) view() model.NavigationEntry {
	return a.nav.Current(a.mode())
}

func (a *App) Init() tea.Cmd {
	mode := a.mode()
	return tea.Batch(a.loadCatalog(), a.loadDashboard(mode), a.restore(mode), a.ensureDetail(mode), a.waitForNote())
}

// navigate pushes entry onto the active mode's history. The implicit
// dashboard root is materialised first so back() can return to it.
func (a *App) navigate(entry model.NavigationEntry) {
	mode := a.mode()
	if a.nav.Empty(mode) {
		if entry.View == model.ViewDashboard {
			return
		}
		a.nav.Push(mode, model.DashboardRoot())
	}
	if a.nav.Current(mode) == entry {
		return
	}
	a.nav.Push(mode, entry)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
	case tea.KeyMsg:
		if m.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.view().View == model.ViewInput {
			return a.handleInputKey(m)
		}
		return a.handleKey(m)
	case noteMsg:
		a.status = m.Message
		a.statusLevel = m.Level
		return a, a.waitForNote()
	case catalogMsg:
		if m.err == nil {
			a.catalog = m.cat
		}
	case searchDoneMsg:
		if m.err == nil && m.mode == a.mode() {
			a.cursor[m.mode] = 0
			a.status = ""
			delete(a.competency, m.mode)
		}
	case loadMoreDoneMsg:
	case detailMsg:
		if a.loadingID[m.mode] == m.id {
			delete(a.loadingID, m.mode)
		}
		if m.err == nil {
			d := m.detail
			a.details[m.mode] = &d
		}
		if m.competency != nil {
			a.competency[m.mode] = &competencyView{id: m.id, match: *m.competency}
		}
	case dashboardMsg:
	case analysisMsg:
	case statusMsg:
		a.status = string(m)
		a.statusLevel = notify.LevelInfo
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := a.mode()
	ms := a.sessions.Get(mode)
	switch m.String() {
	case "q":
		return a, tea.Quit
	case "m":
		return a, a.switchMode(mode.Other())
	case "T":
		a.sessions.SetTheme(a.sessions.Shared().Theme.Toggle())
	case "b", "esc", "backspace":
		a.nav.Back(mode)
		return a, a.ensureDetail(mode)
	case "f":
		a.nav.Forward(mode)
		return a, a.ensureDetail(mode)
	case "d":
		a.navigate(model.DashboardRoot())
		return a, a.loadDashboard(mode)
	case "i", "/":
		a.inputBuffer = ""
		a.suggestion = 0
		a.navigate(model.NavigationEntry{View: model.ViewInput})
	case "r":
		if len(ms.SubmittedCriteria) > 0 {
			a.navigate(model.NavigationEntry{View: model.ViewResults})
			return a, a.restore(mode)
		}
	case "a":
		if len(ms.SubmittedCriteria) > 0 {
			a.navigate(model.NavigationEntry{View: model.ViewAnalysis})
			return a, a.loadAnalysis(mode)
		}
	case "s":
		if a.view().View == model.ViewAnalysis {
			return a, a.loadAnalysis(mode)
		}
	case "R":
		a.search.ResetMode(mode)
		a.nav.Reset(mode)
		a.cursor[mode] = 0
		delete(a.details, mode)
		delete(a.competency, mode)
		a.status = "search reset"
		a.statusLevel = notify.LevelInfo
	case "up", "k":
		if a.view().View == model.ViewResults && a.cursor[mode] > 0 {
			a.cursor[mode]--
		}
	case "down", "j":
		if a.view().View != model.ViewResults {
			break
		}
		if a.cursor[mode] < len(ms.Matches)-1 {
			a.cursor[mode]++
		}
		if a.cursor[mode] >= len(ms.Matches)-1 && ms.HasMore {
			return a, a.loadMore(mode)
		}
	case "L":
		if a.view().View == model.ViewResults {
			return a, a.loadMore(mode)
		}
	case "enter":
		if a.view().View != model.ViewResults || len(ms.Matches) == 0 {
			break
		}
		idx := min(a.cursor[mode], len(ms.Matches)-1)
		a.navigate(model.NavigationEntry{View: model.ViewDetail, SelectedMatchID: ms.Matches[idx].ID})
		return a, a.ensureDetail(mode)
	}
	return a, nil
}

func (a *App) handleInputKey(m tea.KeyMsg) (tea.Model, tea.Cmd) {
	mode := a.mode()
	suggestions := a.suggestions()
	switch m.Type {
	case tea.KeyEsc:
		a.nav.Back(mode)
		return a, nil
	case tea.KeyBackspace:
		if r := []rune(a.inputBuffer); len(r) > 0 {
			a.inputBuffer = string(r[:len(r)-1])
			a.suggestion = 0
		}
		return a, nil
	case tea.KeyUp:
		if a.suggestion > 0 {
			a.suggestion--
		}
		return a, nil
	case tea.KeyDown:
		if a.suggestion < len(suggestions)-1 {
			a.suggestion++
		}
		return a, nil
	case tea.KeyTab:
		if len(suggestions) > 0 {
			a.sessions.ToggleCriterion(mode, suggestions[min(a.suggestion, len(suggestions)-1)])
		}
		return a, nil
	case tea.KeyCtrlE:
		a.sessions.SetExperience(mode, nextExperience(a.sessions.Get(mode).SelectedExperience))
		return a, nil
	case tea.KeyEnter:
		if a.inputBuffer != "" {
			a.toggleTyped(mode)
			return a, nil
		}
		return a, a.submit(mode)
	case tea.KeySpace:
		a.inputBuffer += " "
		return a, nil
	case tea.KeyRunes:
		a.inputBuffer += string(m.Runes)
		a.suggestion = 0
		return a, nil
	}
	return a, nil
}

// toggleTyped resolves the typed text against the catalog, tolerating small
// typos, and toggles the result.
func (a *App) toggleTyped(mode model.Mode) {
	typed := a.inputBuffer
	a.inputBuffer = ""
	a.suggestion = 0
	if a.catalog == nil {
		a.sessions.ToggleCriterion(mode, typed)
		return
	}
	skill, ok := a.catalog.Resolve(typed)
	if !ok {
		a.status = fmt.Sprintf("unknown skill %q", typed)
		a.statusLevel = notify.LevelInfo
		return
	}
	a.sessions.ToggleCriterion(mode, skill)
}

func (a *App) suggestions() []string {
	return a.catalog.Suggest(a.inputBuffer, 8)
}

func nextExperience(cur string) string {
	i := slices.Index(experienceLevels, cur)
	return experienceLevels[(i+1)%len(experienceLevels)]
}

func (a *App) View() string {
	var body string
	entry := a.view()
	switch entry.View {
	case model.ViewInput:
		body = a.renderInput()
	case model.ViewResults:
		body = a.renderResults()
	case model.ViewDetail:
		body = a.renderDetail(entry.SelectedMatchID)
	case model.ViewAnalysis:
		body = a.renderAnalysis()
	default:
		body = a.renderDashboard()
	}
	return a.renderHeader() + "\n\n" + body + "\n\n" + a.renderFooter(entry.View)
}

// commands

func (a *App) switchMode(to model.Mode) tea.Cmd {
	if err := a.search.SwitchMode(to); err != nil {
		return func() tea.Msg { return statusMsg(err.Error()) }
	}
	a.inputBuffer = ""
	return tea.Batch(a.loadDashboard(to), a.restore(to), a.ensureDetail(to))
}

func (a *App) submit(mode model.Mode) tea.Cmd {
	if len(a.sessions.Get(mode).SelectedCriteria) > 0 {
		a.navigate(model.NavigationEntry{View: model.ViewResults})
	}
	return func() tea.Msg {
		return searchDoneMsg{mode: mode, err: a.search.Submit(a.ctx, mode)}
	}
}

func (a *App) restore(mode model.Mode) tea.Cmd {
	if !a.search.NeedsRefresh(mode) {
		return nil
	}
	return func() tea.Msg {
		return searchDoneMsg{mode: mode, err: a.search.Restore(a.ctx, mode)}
	}
}

func (a *App) loadMore(mode model.Mode) tea.Cmd {
	return func() tea.Msg {
		return loadMoreDoneMsg{mode: mode, err: a.search.LoadMore(a.ctx, mode)}
	}
}

func (a *App) loadDashboard(mode model.Mode) tea.Cmd {
	return func() tea.Msg {
		return dashboardMsg{mode: mode, err: a.search.LoadDashboard(a.ctx, mode, false)}
	}
}

func (a *App) loadCatalog() tea.Cmd {
	return func() tea.Msg {
		cat, err := a.search.LoadCatalog(a.ctx)
		return catalogMsg{cat: cat, err: err}
	}
}

// ensureDetail fetches the record behind the current detail entry unless it
// is already shown or on its way.
func (a *App) ensureDetail(mode model.Mode) tea.Cmd {
	entry := a.nav.Current(mode)
	if entry.View != model.ViewDetail || entry.SelectedMatchID == "" {
		return nil
	}
	id := entry.SelectedMatchID
	if d := a.details[mode]; d != nil && detailID(*d) == id {
		return nil
	}
	if a.loadingID[mode] == id {
		return nil
	}
	a.loadingID[mode] = id
	compare := len(a.sessions.Get(mode).SubmittedCriteria) > 0
	return func() tea.Msg {
		d, err := a.search.FetchDetail(a.ctx, mode, id)
		msg := detailMsg{mode: mode, id: id, detail: d, err: err}
		if err == nil && compare {
			if m, err := a.search.FetchCompetency(a.ctx, mode, id); err == nil {
				msg.competency = &m
			}
		}
		return msg
	}
}

// loadAnalysis refreshes the top skills and the category distribution of
// the mode's submitted criteria.
func (a *App) loadAnalysis(mode model.Mode) tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			return analysisMsg{mode: mode, err: a.search.LoadStatistics(a.ctx, mode)}
		},
		func() tea.Msg {
			return analysisMsg{mode: mode, err: a.search.LoadCategoryDistribution(a.ctx, mode)}
		},
	)
}

func (a *App) waitForNote() tea.Cmd {
	if a.notes == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-a.notes
		if !ok {
			return nil
		}
		return noteMsg(n)
	}
}

func detailID(d model.Detail) string {
	switch {
	case d.Recruit != nil:
		return d.Recruit.ID
	case d.Candidate != nil:
		return d.Candidate.ID
	}
	return ""
}

type searchDoneMsg struct {
	mode model.Mode
	err  error
}

type loadMoreDoneMsg struct {
	mode model.Mode
	err  error
}

type detailMsg struct {
	mode       model.Mode
	id         string
	detail     model.Detail
	competency *model.SkillCompetency
	err        error
}

type competencyView struct {
	id    string
	match model.SkillCompetency
}

type analysisMsg struct {
	mode model.Mode
	err  error
}

type dashboardMsg struct {
	mode model.Mode
	err  error
}

type catalogMsg struct {
	cat *catalog.Catalog
	err error
}

type noteMsg notify.Notification

type statusMsg string
