package session

import (
	"fmt"

	"gitsmart/internal/domain"
	"gitsmart/internal/prompt"
)

// Menu action values
const (
	actionCommit    = "commit"
	actionExit      = "exit"
	actionHistory   = "history"
	actionIgnore    = "ignore"
	actionModel     = "model"
	actionPush      = "push"
	actionReview    = "review"
	actionStage     = "stage"
	actionSummarize = "summarize"
	actionUnstage   = "unstage"
)

const menuTitle = "Select an action:"

// buildMenu lists the actions available for the current changes. Actions
// that need staged or unstaged files are left out when there are none, and
// committing is the default whenever something is staged.
func buildMenu(staged, unstaged []domain.FileChange) (choices []prompt.Choice, initial string) {
	if len(staged) > 0 {
		a, d := domain.Totals(staged)
		choices = append(choices,
			prompt.Choice{Label: fmt.Sprintf("🌟 Generate Commit for Staged Changes (%d)", len(staged)), Value: actionCommit},
			prompt.Choice{Label: fmt.Sprintf("↓ Unstage Files (%d) (+%d, -%d)", len(staged), a, d), Value: actionUnstage},
		)
		initial = actionCommit
	}
	if len(unstaged) > 0 {
		a, d := domain.Totals(unstaged)
		choices = append(choices,
			prompt.Choice{Label: fmt.Sprintf("↑ Stage Files (%d) (+%d, -%d)", len(unstaged), a, d), Value: actionStage},
		)
	}
	if len(staged) > 0 || len(unstaged) > 0 {
		choices = append(choices, prompt.Choice{Label: "Review Changes", Value: actionReview})
	}

	choices = append(choices,
		prompt.Choice{Label: "View Commit History", Value: actionHistory},
		prompt.Choice{Label: "Summarize Commits", Value: actionSummarize},
		prompt.Choice{Label: "Push Repo", Value: actionPush},
		prompt.Choice{Label: "Ignore Files", Value: actionIgnore},
		prompt.Choice{Label: "Select Model", Value: actionModel},
		prompt.Choice{Label: "Exit", Value: actionExit},
	)
	return choices, initial
}
