package theme

import (
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Header styles
var (
	AppNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	BranchStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	ModelStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary)
)

// Change table styles
var (
	AdditionsStyle = lipgloss.NewStyle().
			Foreground(ColorAdditions)

	DeletionsStyle = lipgloss.NewStyle().
			Foreground(ColorDeletions)

	FileStyle = lipgloss.NewStyle().
			Foreground(ColorNormal)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 0, 0, 0)

	StagedTitleStyle = SectionStyle.
				Foreground(ColorStaged)

	UnstagedTitleStyle = SectionStyle.
				Foreground(ColorUnstaged)
)

// Status line styles
var (
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorError)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorSuccess)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWarning)
)

// Panel styles
var (
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorHighlight).
			Background(ColorPanel).
			Foreground(ColorHighlight).
			Padding(1, 3).
			Margin(1, 2)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Margin(1, 2, 0, 2)
)

// Pager styles
var (
	PagerFooterStyle = lipgloss.NewStyle().
				Foreground(ColorMuted).
				Padding(0, 1)

	PagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Padding(0, 1)
)

// Form returns the huh theme used by every prompt
func Form() *huh.Theme {
	t := huh.ThemeCharm()
	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary)
	return t
}
