package session

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"gitsmart/internal/domain"
	"gitsmart/internal/theme"
)

// renderChanges draws one section of the status screen
func renderChanges(title string, titleStyle lipgloss.Style, changes []domain.FileChange) string {
	if len(changes) == 0 {
		return ""
	}

	width := 0
	for _, c := range changes {
		width = max(width, lipgloss.Width(c.Path))
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", title, len(changes))))
	sb.WriteByte('\n')
	for _, c := range changes {
		sb.WriteString("  ")
		sb.WriteString(theme.FileStyle.Width(width + 2).Render(c.Path))
		sb.WriteString(formatCounts(c.Additions, c.Deletions))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatCounts renders "+a -d" in the theme's colours
func formatCounts(additions, deletions uint) string {
	return theme.AdditionsStyle.Render(fmt.Sprintf("+%d", additions)) + " " +
		theme.DeletionsStyle.Render(fmt.Sprintf("-%d", deletions))
}

// renderSummary is the one-line repository summary shown above the menu
func renderSummary(repoName, branch, model string, staged, unstaged []domain.FileChange) string {
	var state string
	switch {
	case len(staged) > 0 && len(unstaged) > 0:
		state = theme.WarningStyle.Render("⚠ Staged and unstaged changes found")
	case len(staged) > 0:
		state = theme.StagedTitleStyle.UnsetPadding().Render("➤ Staged changes found")
	case len(unstaged) > 0:
		state = theme.UnstagedTitleStyle.UnsetPadding().Render("✗ Unstaged changes found")
	default:
		state = theme.SuccessStyle.Render("✔ All changes are up to date")
	}

	sa, sd := domain.Totals(staged)
	ua, ud := domain.Totals(unstaged)

	header := theme.AppNameStyle.Render(repoName)
	if branch != "" {
		header += " " + theme.BranchStyle.Render("("+branch+")")
	}
	header += " " + theme.ModelStyle.Render(model) + " " + formatCounts(sa+ua, sd+ud)
	return state + "\n" + header
}

// RenderStatus is the full status screen, also printed by `gitsmart status`
func RenderStatus(repoName, branch, model string, staged, unstaged []domain.FileChange) string {
	var sb strings.Builder
	sb.WriteString(renderChanges("Staged changes", theme.StagedTitleStyle, staged))
	sb.WriteString(renderChanges("Unstaged changes", theme.UnstagedTitleStyle, unstaged))
	sb.WriteString("\n")
	sb.WriteString(renderSummary(repoName, branch, model, staged, unstaged))
	sb.WriteString("\n")
	return sb.String()
}

// renderPanel frames text such as a generated commit message
func renderPanel(title, body string) string {
	return theme.PanelTitleStyle.Render(title) + "\n" + theme.PanelStyle.Render(body)
}

// RenderCommits is the recent commits table
func RenderCommits(commits []domain.Commit) string {
	if len(commits) == 0 {
		return theme.MutedStyle.Render("No commits yet.")
	}
	var sb strings.Builder
	sb.WriteString(theme.SectionStyle.Foreground(theme.ColorPrimary).Render("Recent commits"))
	sb.WriteByte('\n')
	for _, c := range commits {
		sb.WriteString("  ")
		sb.WriteString(theme.ModelStyle.Render(c.ShortHash()))
		sb.WriteString(" ")
		sb.WriteString(theme.FileStyle.Render(c.Subject))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// changeLabel is how a file appears in selection lists
func changeLabel(c domain.FileChange) string {
	return fmt.Sprintf("%s (+%d, -%d)", c.Path, c.Additions, c.Deletions)
}
