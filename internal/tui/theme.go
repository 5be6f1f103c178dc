package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/skillmatch/internal/model"
)

// palette holds the semantic colors one theme maps onto.
type palette struct {
	Accent  lipgloss.Color
	Focus   lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Info    lipgloss.Color
	Surface lipgloss.Color
}

// Catppuccin Mocha
var darkPalette = palette{
	Accent:  "#f5c2e7",
	Focus:   "#b4befe",
	Text:    "#cdd6f4",
	Muted:   "#7f849c",
	Success: "#a6e3a1",
	Error:   "#f38ba8",
	Info:    "#94e2d5",
	Surface: "#45475a",
}

// Catppuccin Latte
var lightPalette = palette{
	Accent:  "#ea76cb",
	Focus:   "#7287fd",
	Text:    "#4c4f69",
	Muted:   "#8c8fa1",
	Success: "#40a02b",
	Error:   "#d20f39",
	Info:    "#179299",
	Surface: "#bcc0cc",
}

type styles struct {
	Title    lipgloss.Style
	Tab      lipgloss.Style
	TabOn    lipgloss.Style
	Text     lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Chip     lipgloss.Style
	Error    lipgloss.Style
	Info     lipgloss.Style
	Bar      lipgloss.Style
	Footer   lipgloss.Style
}

func stylesFor(theme model.Theme) styles {
	p := darkPalette
	if theme == model.ThemeLight {
		p = lightPalette
	}
	return styles{
		Title:    lipgloss.NewStyle().Bold(true).Underline(true).Foreground(p.Accent),
		Tab:      lipgloss.NewStyle().Foreground(p.Muted).Padding(0, 1),
		TabOn:    lipgloss.NewStyle().Bold(true).Foreground(p.Focus).Padding(0, 1).Underline(true),
		Text:     lipgloss.NewStyle().Foreground(p.Text),
		Muted:    lipgloss.NewStyle().Foreground(p.Muted),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(p.Focus),
		Chip:     lipgloss.NewStyle().Foreground(p.Success).Padding(0, 1).Border(lipgloss.NormalBorder(), false, true),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(p.Error),
		Info:     lipgloss.NewStyle().Foreground(p.Info),
		Bar:      lipgloss.NewStyle().Foreground(p.Accent),
		Footer:   lipgloss.NewStyle().Foreground(p.Muted).BorderTop(true).BorderStyle(lipgloss.NormalBorder()).BorderForeground(p.Surface),
	}
}
