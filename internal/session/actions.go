package session

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gitsmart/internal/domain"
	"gitsmart/internal/ports"
	"gitsmart/internal/prompt"
	"gitsmart/internal/services"
	"gitsmart/internal/theme"
)

const (
	commitChoiceCommit = "commit"
	commitChoiceEdit   = "edit"
	commitChoiceRetry  = "retry"
	commitChoiceCancel = "cancel"
)

func (s *Session) stage(ctx context.Context, unstaged []domain.FileChange) error {
	return s.moveFiles(ctx, unstaged, "stage", s.opts.Repo.Stage)
}

func (s *Session) unstage(ctx context.Context, staged []domain.FileChange) error {
	return s.moveFiles(ctx, staged, "unstage", s.opts.Repo.Unstage)
}

func (s *Session) moveFiles(ctx context.Context, changes []domain.FileChange, verb string, apply func(context.Context, []string) (string, error)) error {
	if len(changes) == 0 {
		s.println(theme.WarningStyle.Render(fmt.Sprintf("No %sd changes found.", verb)))
		return nil
	}

	choices := make([]prompt.Choice, 0, len(changes))
	for _, c := range changes {
		choices = append(choices, prompt.Choice{Label: changeLabel(c), Value: c.Path})
	}

	out, err := s.opts.Prompts.MultiSelect(ctx, fmt.Sprintf("Select files to %s:", verb), choices)
	files, ok, err := settle(s, out, err, verb+" operation")
	if !ok {
		return err
	}
	if len(files) == 0 {
		s.println(theme.WarningStyle.Render(fmt.Sprintf("No files selected to %s.", verb)))
		return nil
	}

	s.quiesce(ctx)
	s.clear()
	s.report(apply(ctx, files))
	return nil
}

func (s *Session) commit(ctx context.Context, staged []domain.FileChange) error {
	diff, err := s.opts.Repo.Diff(ctx, true)
	if err != nil {
		return err
	}
	if strings.TrimSpace(diff) == "" {
		s.println(theme.ErrorStyle.Render("No staged changes found."))
		return nil
	}

	s.print(renderChanges("Changes to commit", theme.StagedTitleStyle, staged))

	if warning := services.DeletionWarning(staged); warning != "" {
		out, err := s.opts.Prompts.Confirm(ctx, warning, false)
		proceed, ok, err := settle(s, out, err, "commit generation")
		if !ok || !proceed {
			if ok {
				s.println(theme.WarningStyle.Render("Commit generation aborted by user."))
			}
			return err
		}
	}

	notes, ok, err := s.customNotes(ctx)
	if !ok {
		return err
	}

	messages := s.opts.Committer.Messages(diff, notes)
	if s.opts.Committer.ExceedsBudget(messages) {
		out, err := s.opts.Prompts.Confirm(ctx, "The request still exceeds the maximum token limit after truncation. Do you want to proceed?", false)
		proceed, ok, err := settle(s, out, err, "commit generation")
		if !ok || !proceed {
			return err
		}
	}

	model := s.opts.Models.Model(ctx)
	for {
		message, ok, err := s.generate(ctx, model, messages)
		if !ok {
			return err
		}

		s.println(renderPanel("Commit generated by "+model, message))
		out, err := s.selectCommitAction(ctx, "What would you like to do?", true)
		choice, ok, err := settle(s, out, err, "commit action")
		if !ok {
			return err
		}

		if choice == commitChoiceEdit {
			out, err := s.opts.Prompts.Text(ctx, "Edit your commit message below:", message)
			edited, ok, err := settle(s, out, err, "commit edit")
			if !ok {
				return err
			}
			message = strings.TrimSpace(edited)
			s.println(renderPanel("Edited commit message", message))
			confirmOut, err := s.selectCommitAction(ctx, "Use this edited commit message?", false)
			choice, ok, err = settle(s, confirmOut, err, "commit action")
			if !ok {
				return err
			}
		}

		switch choice {
		case commitChoiceCommit:
			s.quiesce(ctx)
			s.report(s.opts.Repo.Commit(ctx, message))
			return nil
		case commitChoiceRetry:
			s.logger.Info("Retrying commit message generation")
			continue
		default:
			s.println(theme.WarningStyle.Render("Commit aborted by user."))
			return nil
		}
	}
}

func (s *Session) selectCommitAction(ctx context.Context, title string, allowEdit bool) (prompt.Outcome[string], error) {
	choices := []prompt.Choice{{Label: "Commit", Value: commitChoiceCommit}}
	if allowEdit {
		choices = append(choices, prompt.Choice{Label: "Edit commit message", Value: commitChoiceEdit})
	}
	choices = append(choices,
		prompt.Choice{Label: "Retry", Value: commitChoiceRetry},
		prompt.Choice{Label: "Cancel", Value: commitChoiceCancel},
	)
	return s.opts.Prompts.Select(ctx, title, choices, commitChoiceCommit)
}

func (s *Session) customNotes(ctx context.Context) (string, bool, error) {
	out, err := s.opts.Prompts.Confirm(ctx, "Add custom notes to guide the commit message?", false)
	add, ok, err := settle(s, out, err, "commit generation")
	if !ok || !add {
		return "", ok, err
	}
	text, err := s.opts.Prompts.Text(ctx, "Enter your custom notes (Markdown supported):", "")
	notes, ok, err := settle(s, text, err, "commit generation")
	return notes, ok, err
}

// generate streams a commit message. Failures are shown and the user may retry.
func (s *Session) generate(ctx context.Context, model string, messages []ports.ChatMessage) (string, bool, error) {
	for {
		tokens := services.EstimateTokens(messages)
		s.println(theme.MutedStyle.Render(fmt.Sprintf("> Analyzing changes to staged files with %s (%d tokens)", model, tokens)))

		out, err := s.blocking(ctx, func(ctx context.Context) (string, error) {
			return s.opts.Committer.Generate(ctx, model, messages, s.progress)
		})
		s.println("")
		if err == nil {
			return settle(s, out, nil, "commit generation")
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}

		s.logger.Error("Failed to generate commit message", "error", err)
		s.println(theme.ErrorStyle.Render("Failed to generate commit message: " + err.Error()))
		retryOut, err := s.opts.Prompts.Confirm(ctx, "Failed to generate commit message. Would you like to retry?", true)
		retry, ok, err := settle(s, retryOut, err, "commit generation")
		if !ok || !retry {
			if ok {
				s.println(theme.WarningStyle.Render("Commit generation aborted by user."))
			}
			return "", false, err
		}
	}
}

// progress redraws one status line while a completion streams in
func (s *Session) progress(text string) {
	fmt.Fprintf(s.out, "\r%s", theme.MutedStyle.Render(fmt.Sprintf("  receiving... %d words", services.CountTokens(text))))
}

func (s *Session) ignore(ctx context.Context, unstaged []domain.FileChange) error {
	out, err := s.opts.Prompts.Select(ctx, "Would you like to select files to ignore or enter custom patterns?", []prompt.Choice{
		{Label: "Select files", Value: "select"},
		{Label: "Enter custom patterns", Value: "custom"},
	}, "select")
	mode, ok, err := settle(s, out, err, "ignore files")
	if !ok {
		return err
	}

	var patterns []string
	if mode == "custom" {
		out, err := s.opts.Prompts.Input(ctx, "Enter custom patterns to ignore (comma-separated):", "")
		raw, ok, err := settle(s, out, err, "custom pattern entry")
		if !ok {
			return err
		}
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				patterns = append(patterns, p)
			}
		}
	} else {
		candidates, err := s.ignoreCandidates(ctx, unstaged)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			s.println(theme.WarningStyle.Render("No files available to ignore."))
			return nil
		}
		choices := make([]prompt.Choice, 0, len(candidates))
		for _, c := range candidates {
			choices = append(choices, prompt.Choice{Label: c, Value: c})
		}
		out, err := s.opts.Prompts.MultiSelect(ctx, "Select files to ignore:", choices)
		selected, ok, err := settle(s, out, err, "ignore files")
		if !ok {
			return err
		}
		patterns = selected
	}

	s.quiesce(ctx)
	added, err := s.opts.Repo.Ignore(patterns)
	if err != nil {
		return err
	}
	s.clear()
	if len(added) == 0 {
		s.println(theme.WarningStyle.Render("No new files or patterns to add to .gitignore."))
		return nil
	}
	s.println(theme.SuccessStyle.Render("Added to .gitignore: " + strings.Join(added, ", ")))
	return nil
}

// ignoreCandidates lists changed and tracked files not already ignored
func (s *Session) ignoreCandidates(ctx context.Context, unstaged []domain.FileChange) ([]string, error) {
	ignored, err := s.opts.Repo.IgnoredPatterns()
	if err != nil {
		return nil, err
	}
	tracked, err := s.opts.Repo.TrackedFiles(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	add := func(path string) {
		if path == ".gitignore" || slices.Contains(ignored, path) || slices.Contains(out, path) {
			return
		}
		out = append(out, path)
	}
	for _, c := range unstaged {
		add(c.Path)
	}
	for _, t := range tracked {
		add(t)
	}
	slices.Sort(out)
	return out, nil
}

func (s *Session) push(ctx context.Context) error {
	remotes, err := s.opts.Repo.Remotes(ctx)
	if err != nil {
		return err
	}
	if len(remotes) == 0 {
		return errNoRemotes
	}
	branch, err := s.opts.Repo.Branch(ctx)
	if err != nil {
		return fmt.Errorf("no current branch detected: %w", err)
	}

	choices := make([]prompt.Choice, 0, len(remotes))
	for _, r := range remotes {
		choices = append(choices, prompt.Choice{Label: fmt.Sprintf("%s (%s)", r.Name, r.URL), Value: r.Name})
	}
	out, err := s.opts.Prompts.MultiSelect(ctx, "Select remote repositories to push to:", choices)
	selected, ok, err := settle(s, out, err, "push")
	if !ok {
		return err
	}
	if len(selected) == 0 {
		s.println(theme.WarningStyle.Render("No remotes selected. Push aborted."))
		return nil
	}

	confirmOut, err := s.opts.Prompts.Confirm(ctx, fmt.Sprintf("Push branch '%s' to %s?", branch, strings.Join(selected, ", ")), true)
	confirmed, ok, err := settle(s, confirmOut, err, "push")
	if !ok {
		return err
	}
	if !confirmed {
		s.println(theme.WarningStyle.Render("Push action canceled by the user."))
		return nil
	}

	s.quiesce(ctx)
	for _, remote := range selected {
		s.report(s.opts.Repo.Push(ctx, remote))
	}
	return nil
}

func (s *Session) review(ctx context.Context, staged, unstaged []domain.FileChange) error {
	isStaged := make(map[string]bool, len(staged))
	stats := make(map[string]domain.FileChange, len(staged)+len(unstaged))
	for _, c := range unstaged {
		stats[c.Path] = c
	}
	for _, c := range staged {
		isStaged[c.Path] = true
		stats[c.Path] = c
	}
	if len(stats) == 0 {
		s.println(theme.WarningStyle.Render("No changes to review."))
		return nil
	}

	paths := make([]string, 0, len(stats))
	for p := range stats {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	choices := make([]prompt.Choice, 0, len(paths))
	for _, p := range paths {
		label := changeLabel(stats[p])
		if isStaged[p] {
			label += " [Staged]"
		}
		choices = append(choices, prompt.Choice{Label: label, Value: p})
	}

	out, err := s.opts.Prompts.MultiSelect(ctx, "Select files to review their diffs:", choices)
	selected, ok, err := settle(s, out, err, "file review")
	if !ok {
		return err
	}
	if len(selected) == 0 {
		s.println(theme.WarningStyle.Render("No files selected for review."))
		return nil
	}

	var sb strings.Builder
	for _, file := range selected {
		diff, err := s.opts.Repo.FileDiff(ctx, file, isStaged[file])
		if err != nil {
			return err
		}
		if strings.TrimSpace(diff) == "" {
			fmt.Fprintf(&sb, "No diff available for %s.\n\n", file)
			continue
		}
		sb.WriteString(diff)
		sb.WriteString("\n")
	}

	return s.page(ctx, "Review changes", sb.String())
}

func (s *Session) history(ctx context.Context) error {
	commits, err := s.opts.Repo.Log(ctx, 20)
	if err != nil {
		return fmt.Errorf("failed to get commit history: %w", err)
	}
	s.println(RenderCommits(commits))
	if len(commits) == 0 {
		return nil
	}

	choices := make([]prompt.Choice, 0, len(commits))
	for _, c := range commits {
		choices = append(choices, prompt.Choice{Label: c.ShortHash() + " " + c.Subject, Value: c.Hash})
	}
	out, err := s.opts.Prompts.Select(ctx, "Select a commit to view details:", choices, "")
	hash, ok, err := settle(s, out, err, "commit selection")
	if !ok {
		return err
	}

	details, err := s.opts.Repo.Show(ctx, hash)
	if err != nil {
		return err
	}
	return s.page(ctx, "Commit "+shortHash(hash), details)
}

func (s *Session) summarize(ctx context.Context) error {
	commits, err := s.opts.Repo.Log(ctx, 30)
	if err != nil {
		return fmt.Errorf("failed to get commit history: %w", err)
	}
	if len(commits) == 0 {
		s.println(theme.WarningStyle.Render("No commits available to summarize."))
		return nil
	}

	byHash := make(map[string]domain.Commit, len(commits))
	choices := make([]prompt.Choice, 0, len(commits))
	for _, c := range commits {
		byHash[c.Hash] = c
		choices = append(choices, prompt.Choice{Label: c.ShortHash() + " " + c.Subject, Value: c.Hash})
	}

	out, err := s.opts.Prompts.MultiSelect(ctx, "Select commits to summarize:", choices)
	hashes, ok, err := settle(s, out, err, "commit summarization")
	if !ok {
		return err
	}
	if len(hashes) == 0 {
		s.println(theme.WarningStyle.Render("No commits selected for summarization."))
		return nil
	}

	selected := make([]domain.Commit, 0, len(hashes))
	for _, h := range hashes {
		selected = append(selected, byHash[h])
	}

	model := s.opts.Models.Model(ctx)
	s.println(theme.MutedStyle.Render(fmt.Sprintf("> Summarizing %d commits with %s", len(selected), model)))

	// The repository changing does not invalidate a summary of past commits
	var result prompt.Outcome[string]
	err = s.guarded(func() (err error) {
		result, err = s.blocking(ctx, func(ctx context.Context) (string, error) {
			return s.opts.Committer.Summarize(ctx, model, selected, s.progress)
		})
		return err
	})
	s.println("")

	summary, ok, err := settle(s, result, err, "commit summarization")
	if !ok {
		return err
	}
	s.println(renderPanel("Summarized commits", summary))
	return nil
}

func (s *Session) selectModel(ctx context.Context) error {
	current := s.opts.Models.Model(ctx)
	models := s.opts.Models.Models()
	choices := make([]prompt.Choice, 0, len(models))
	for _, m := range models {
		choices = append(choices, prompt.Choice{Label: m, Value: m})
	}

	out, err := s.opts.Prompts.Select(ctx, "Select a model:", choices, current)
	model, ok, err := settle(s, out, err, "model selection")
	if !ok {
		return err
	}
	if err := s.opts.Models.SetModel(ctx, model); err != nil {
		return err
	}
	s.println(theme.SuccessStyle.Render("Model selected: ") + model)
	return nil
}

// page shows text in the pager. A repository change closes it so the menu can redraw.
func (s *Session) page(ctx context.Context, title, content string) error {
	out, err := prompt.Run(ctx, s.opts.Bridge, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.opts.Pager.Show(ctx, title, content)
	})
	_, _, err = settle(s, out, err, "review")
	return err
}

func shortHash(hash string) string {
	return domain.Commit{Hash: hash}.ShortHash()
}
