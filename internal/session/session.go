package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gitsmart/internal/config"
	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
	"gitsmart/internal/prompt"
	"gitsmart/internal/theme"
	"gitsmart/internal/watch"
)

// DefaultQuiescenceTimeout bounds how long a local mutation waits for remote operations
const DefaultQuiescenceTimeout = 5 * time.Second

const clearScreen = "\033[H\033[2J"

// Prompts is the modal input facility
type Prompts interface {
	Confirm(ctx context.Context, title string, initial bool) (prompt.Outcome[bool], error)
	Input(ctx context.Context, title, initial string) (prompt.Outcome[string], error)
	MultiSelect(ctx context.Context, title string, choices []prompt.Choice) (prompt.Outcome[[]string], error)
	Select(ctx context.Context, title string, choices []prompt.Choice, initial string) (prompt.Outcome[string], error)
	Text(ctx context.Context, title, initial string) (prompt.Outcome[string], error)
}

// Watcher is the background change detection the session controls
type Watcher interface {
	Pending() *watch.PendingRefresh
	Start() error
	Stop() bool
	Suspend() (resume func())
}

// Quiescence lets local mutations wait for remote operations in flight
type Quiescence interface {
	AwaitQuiescence(ctx context.Context, timeout time.Duration) bool
	Current() string
}

// Repo is the working tree the session operates on
type Repo interface {
	Branch(ctx context.Context) (string, error)
	Changes(ctx context.Context) (staged, unstaged []domain.FileChange, err error)
	Commit(ctx context.Context, message string) (string, error)
	Diff(ctx context.Context, staged bool) (string, error)
	FileDiff(ctx context.Context, file string, staged bool) (string, error)
	Ignore(patterns []string) ([]string, error)
	IgnoredPatterns() ([]string, error)
	Log(ctx context.Context, limit int) ([]domain.Commit, error)
	Path() string
	Push(ctx context.Context, remote string) (string, error)
	Remotes(ctx context.Context) ([]domain.Remote, error)
	Show(ctx context.Context, hash string) (string, error)
	Stage(ctx context.Context, files []string) (string, error)
	TrackedFiles(ctx context.Context) ([]string, error)
	Unstage(ctx context.Context, files []string) (string, error)
}

// Committer generates commit messages and summaries
type Committer interface {
	ExceedsBudget(messages []ports.ChatMessage) bool
	Generate(ctx context.Context, model string, messages []ports.ChatMessage, onDelta func(string)) (string, error)
	Messages(diff, notes string) []ports.ChatMessage
	Summarize(ctx context.Context, model string, commits []domain.Commit, onDelta func(string)) (string, error)
}

// Models holds the model selection
type Models interface {
	Model(ctx context.Context) string
	Models() []string
	SetModel(ctx context.Context, model string) error
}

// Pager shows long text until the user dismisses it
type Pager interface {
	Show(ctx context.Context, title, content string) error
}

// Options wires a Session
type Options struct {
	Bridge            *prompt.Bridge
	ClearScreen       bool
	Committer         Committer
	ExitPresses       int
	Logger            *slog.Logger
	Models            Models
	Out               io.Writer
	Pager             Pager
	Prompts           Prompts
	Quiescence        Quiescence
	QuiescenceTimeout time.Duration
	Repo              Repo
	RepoName          string
	Watcher           Watcher
}

// Session is the interactive menu loop. It owns the watcher for its lifetime:
// Run starts it and stops it exactly once on every exit path.
type Session struct {
	opts     Options
	logger   *slog.Logger
	out      io.Writer
	stopOnce sync.Once
}

// New creates a session. A nil Watcher disables auto-refresh.
func New(opts Options) *Session {
	if opts.ExitPresses <= 0 {
		opts.ExitPresses = config.DefaultExitPresses
	}
	if opts.QuiescenceTimeout <= 0 {
		opts.QuiescenceTimeout = DefaultQuiescenceTimeout
	}
	if opts.Watcher == nil {
		opts.Watcher = disabledWatcher{pending: &watch.PendingRefresh{}}
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	logger := logging.OrDiscard(opts.Logger)
	if opts.Bridge == nil {
		opts.Bridge = prompt.NewBridge(logger)
	}
	return &Session{
		opts:   opts,
		logger: logger,
		out:    opts.Out,
	}
}

// Run shows the menu until the user exits or ctx is done
func (s *Session) Run(ctx context.Context) error {
	defer s.stopWatcher()

	if err := s.opts.Watcher.Start(); err != nil {
		s.logger.Warn("Auto-refresh unavailable", "error", err)
	}

	if commits, err := s.opts.Repo.Log(ctx, 3); err == nil {
		s.println(RenderCommits(commits))
	}

	cancels := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		// A refresh that was already pending is satisfied by this redraw
		s.opts.Watcher.Pending().Take()
		s.opts.Bridge.Reset()

		staged, unstaged := s.draw(ctx)
		if s.opts.Watcher.Pending().Take() {
			s.logger.Debug("Repository changed while drawing, redrawing")
			s.clear()
			continue
		}
		choices, initial := buildMenu(staged, unstaged)

		out, err := s.opts.Prompts.Select(ctx, menuTitle, choices, initial)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("menu failed: %w", err)
		}

		switch out.Kind {
		case prompt.RefreshRequested:
			s.logger.Debug("Menu interrupted by repository change")
			s.clear()
			continue
		case prompt.UserCancelled:
			cancels++
			if cancels >= s.opts.ExitPresses {
				s.println(theme.ErrorStyle.Render("Goodbye..."))
				return nil
			}
			s.clear()
			s.println(theme.WarningStyle.Render(fmt.Sprintf("Press Ctrl+C %d more time(s) to exit.", s.opts.ExitPresses-cancels)))
			continue
		}
		cancels = 0

		if out.Value == actionExit {
			s.println(theme.ErrorStyle.Render("Goodbye..."))
			return nil
		}

		s.logger.Info("Action selected", "action", out.Value)
		if err := s.dispatch(ctx, out.Value, staged, unstaged); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.logger.Error("Action failed", "action", out.Value, "error", err)
			s.println(theme.ErrorStyle.Render("Error: " + err.Error()))
		}
	}
}

// Stop stops the watcher if Run has not already done so
func (s *Session) Stop() {
	s.stopWatcher()
}

func (s *Session) stopWatcher() {
	s.stopOnce.Do(func() {
		if !s.opts.Watcher.Stop() {
			s.logger.Warn("Refresh controller did not stop in time")
		}
	})
}

// draw reads the current changes and prints the status screen. Read
// failures are shown and the menu continues with no changes.
func (s *Session) draw(ctx context.Context) (staged, unstaged []domain.FileChange) {
	staged, unstaged, err := s.opts.Repo.Changes(ctx)
	if err != nil {
		s.logger.Warn("Failed to read changes", "error", err)
		s.println(theme.ErrorStyle.Render("Failed to read repository status: " + err.Error()))
		return nil, nil
	}
	branch, err := s.opts.Repo.Branch(ctx)
	if err != nil {
		s.logger.Debug("No branch", "error", err)
	}
	s.print(RenderStatus(s.opts.RepoName, branch, s.opts.Models.Model(ctx), staged, unstaged))
	return staged, unstaged
}

func (s *Session) dispatch(ctx context.Context, action string, staged, unstaged []domain.FileChange) error {
	switch action {
	case actionCommit:
		s.clear()
		return s.guarded(func() error { return s.commit(ctx, staged) })
	case actionStage:
		return s.guarded(func() error { return s.stage(ctx, unstaged) })
	case actionUnstage:
		return s.guarded(func() error { return s.unstage(ctx, staged) })
	case actionIgnore:
		return s.guarded(func() error { return s.ignore(ctx, unstaged) })
	case actionPush:
		s.clear()
		return s.guarded(func() error { return s.push(ctx) })
	case actionReview:
		s.clear()
		return s.review(ctx, staged, unstaged)
	case actionHistory:
		s.clear()
		return s.history(ctx)
	case actionSummarize:
		s.clear()
		return s.summarize(ctx)
	case actionModel:
		s.clear()
		return s.selectModel(ctx)
	default:
		return fmt.Errorf("unknown action %q", action)
	}
}

// guarded runs fn with change signalling suspended, so prompts inside a
// mutating action are never interrupted by the changes it makes
func (s *Session) guarded(fn func() error) error {
	resume := s.opts.Watcher.Suspend()
	defer resume()
	return fn()
}

// quiesce waits, bounded, for remote operations before a local mutation
func (s *Session) quiesce(ctx context.Context) {
	if s.opts.Quiescence == nil {
		return
	}
	if !s.opts.Quiescence.AwaitQuiescence(ctx, s.opts.QuiescenceTimeout) {
		op := s.opts.Quiescence.Current()
		s.logger.Warn("Remote operation still running, continuing", "operation", op)
		s.println(theme.WarningStyle.Render(fmt.Sprintf("A remote %s is still running; continuing anyway.", op)))
	}
}

// blocking runs a long call so Ctrl+C cancels it like a prompt
func (s *Session) blocking(ctx context.Context, fn func(ctx context.Context) (string, error)) (prompt.Outcome[string], error) {
	return prompt.Run(ctx, s.opts.Bridge, fn)
}

func (s *Session) clear() {
	if s.opts.ClearScreen {
		fmt.Fprint(s.out, clearScreen)
	}
}

func (s *Session) print(text string) {
	fmt.Fprint(s.out, text)
}

func (s *Session) println(text string) {
	fmt.Fprintln(s.out, text)
}

// report prints the status line returned by a git mutation
func (s *Session) report(status string, err error) {
	switch {
	case err != nil && status == "":
		s.println(theme.ErrorStyle.Render("Error: " + err.Error()))
	case err != nil:
		s.println(theme.ErrorStyle.Render(status))
	default:
		s.println(theme.SuccessStyle.Render(status))
	}
}

// settle classifies a sub-prompt outcome. ok is false when the action should
// return to the menu: on refresh the menu redraws, on cancel it says so.
func settle[T any](s *Session, out prompt.Outcome[T], err error, what string) (T, bool, error) {
	var zero T
	if err != nil {
		return zero, false, err
	}
	switch out.Kind {
	case prompt.RefreshRequested:
		return zero, false, nil
	case prompt.UserCancelled:
		s.println(theme.WarningStyle.Render("⚠️  Cancelled " + what))
		return zero, false, nil
	}
	return out.Value, true, nil
}

var errNoRemotes = errors.New("no remotes found, add a remote repository first")

type disabledWatcher struct {
	pending *watch.PendingRefresh
}

func (d disabledWatcher) Pending() *watch.PendingRefresh { return d.pending }
func (disabledWatcher) Start() error                     { return nil }
func (disabledWatcher) Stop() bool                       { return true }
func (disabledWatcher) Suspend() (resume func())         { return func() {} }
