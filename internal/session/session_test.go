package session

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsmart/internal/domain"
	"gitsmart/internal/prompt"
	"gitsmart/internal/watch"
)

type harness struct {
	committer  *fakeCommitter
	models     *fakeModels
	out        *bytes.Buffer
	pager      *fakePager
	prompts    *fakePrompts
	quiescence *fakeQuiescence
	repo       *fakeRepo
	session    *Session
	watcher    *fakeWatcher
}

func newHarness(t *testing.T, replies ...reply) *harness {
	t.Helper()
	bridge := prompt.NewBridge(nil)
	t.Cleanup(bridge.Close)

	h := &harness{
		committer:  &fakeCommitter{messages: []string{"feat: generated"}},
		models:     &fakeModels{model: "gpt-4o-mini"},
		out:        &bytes.Buffer{},
		pager:      &fakePager{},
		prompts:    &fakePrompts{t: t, bridge: bridge, replies: replies},
		quiescence: &fakeQuiescence{idle: true},
		watcher:    &fakeWatcher{},
	}
	h.repo = &fakeRepo{watcher: h.watcher, quiescence: h.quiescence}
	h.session = New(Options{
		Bridge:      bridge,
		Committer:   h.committer,
		ExitPresses: 2,
		Models:      h.models,
		Out:         h.out,
		Pager:       h.pager,
		Prompts:     h.prompts,
		Quiescence:  h.quiescence,
		Repo:        h.repo,
		RepoName:    "demo",
		Watcher:     h.watcher,
	})
	return h
}

func (h *harness) run(t *testing.T) error {
	t.Helper()
	errCh := make(chan error, 1)
	go func() { errCh <- h.session.Run(context.Background()) }()
	select {
	case err := <-errCh:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish")
		return nil
	}
}

func TestRun_ExitStopsWatcherOnce(t *testing.T) {
	h := newHarness(t, done(actionExit))

	require.NoError(t, h.run(t))
	h.session.Stop()

	assert.Equal(t, 1, h.watcher.starts)
	assert.Equal(t, 1, h.watcher.stops)
	assert.Contains(t, h.out.String(), "Goodbye")
}

func TestRun_RepeatedCancelExits(t *testing.T) {
	h := newHarness(t, cancelled(), cancelled())

	require.NoError(t, h.run(t))
	assert.Contains(t, h.out.String(), "Press Ctrl+C 1 more time(s) to exit.")
	assert.Equal(t, 1, h.watcher.stops)
}

func TestRun_CancelCountResetsAfterAction(t *testing.T) {
	h := newHarness(t,
		cancelled(),
		done(actionModel), done("b"),
		cancelled(),
		done(actionExit),
	)

	require.NoError(t, h.run(t))
	assert.Equal(t, "b", h.models.model)
	assert.Empty(t, h.prompts.replies)
}

func TestRun_MenuFailureStillStopsWatcher(t *testing.T) {
	h := newHarness(t, failed(prompt.ErrTerminal))

	err := h.run(t)
	assert.ErrorIs(t, err, prompt.ErrTerminal)
	assert.Equal(t, 1, h.watcher.stops)
}

func TestRun_RefreshRedraws(t *testing.T) {
	h := newHarness(t, refreshed(), done(actionExit))

	require.NoError(t, h.run(t))
	assert.Equal(t, 2, h.repo.changeCalls)
}

func TestRun_PendingRefreshConsumedByRedraw(t *testing.T) {
	h := newHarness(t, done(actionExit))
	h.watcher.pending.Set()

	require.NoError(t, h.run(t))
	assert.False(t, h.watcher.pending.IsSet())
}

func TestRun_ContextCancelledWhilePrompting(t *testing.T) {
	h := newHarness(t, waitInterrupt())
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- h.session.Run(ctx) }()

	require.Eventually(t, h.session.opts.Bridge.Active, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}
	assert.Equal(t, 1, h.watcher.stops)
}

func TestStage_SuspendedAndQuiesced(t *testing.T) {
	h := newHarness(t,
		done(actionStage), done([]string{"a.go"}),
		done(actionExit),
	)
	h.repo.unstaged = []domain.FileChange{{Path: "a.go", FileStat: domain.FileStat{Additions: 3}}}

	require.NoError(t, h.run(t))

	muts := h.repo.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, "stage", muts[0].op)
	assert.Equal(t, []string{"a.go"}, muts[0].args)
	assert.True(t, muts[0].suspended)
	assert.Equal(t, int32(1), muts[0].quiesced)
	assert.False(t, h.watcher.Suspended())
}

func TestStage_CancelReturnsToMenu(t *testing.T) {
	h := newHarness(t,
		done(actionStage), cancelled(),
		cancelled(),
		done(actionExit),
	)
	h.repo.unstaged = []domain.FileChange{{Path: "a.go"}}

	require.NoError(t, h.run(t))
	assert.Empty(t, h.repo.Mutations())
	assert.Contains(t, h.out.String(), "Cancelled stage operation")
	assert.False(t, h.watcher.Suspended())
}

func TestUnstage_FailureReportedInline(t *testing.T) {
	h := newHarness(t,
		done(actionUnstage), done([]string{"a.go"}),
		done(actionExit),
	)
	h.repo.staged = []domain.FileChange{{Path: "a.go"}}

	require.NoError(t, h.run(t))
	assert.Contains(t, h.out.String(), "index locked")
}

func TestStage_BusyRemoteWarns(t *testing.T) {
	h := newHarness(t,
		done(actionStage), done([]string{"a.go"}),
		done(actionExit),
	)
	h.quiescence.idle = false
	h.repo.unstaged = []domain.FileChange{{Path: "a.go"}}

	require.NoError(t, h.run(t))
	assert.Len(t, h.repo.Mutations(), 1)
	assert.Contains(t, h.out.String(), "A remote stage is still running")
}

func TestCommit_GenerateAndCommit(t *testing.T) {
	h := newHarness(t,
		done(actionCommit),
		done(false),          // custom notes
		done(commitChoiceCommit),
		done(actionExit),
	)
	h.repo.staged = []domain.FileChange{{Path: "a.go", FileStat: domain.FileStat{Additions: 5, Deletions: 1}}}
	h.repo.diff = "diff --git a/a.go b/a.go"

	require.NoError(t, h.run(t))

	muts := h.repo.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, "commit", muts[0].op)
	assert.Equal(t, []string{"feat: generated"}, muts[0].args)
	assert.True(t, muts[0].suspended)
	assert.Contains(t, h.out.String(), "Commit generated by gpt-4o-mini")
}

func TestCommit_EditThenCommit(t *testing.T) {
	h := newHarness(t,
		done(actionCommit),
		done(true), done("mention the watcher"),
		done(commitChoiceEdit), done("fix: edited\n"), done(commitChoiceCommit),
		done(actionExit),
	)
	h.repo.staged = []domain.FileChange{{Path: "a.go", FileStat: domain.FileStat{Additions: 1}}}
	h.repo.diff = "diff"

	require.NoError(t, h.run(t))

	muts := h.repo.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, []string{"fix: edited"}, muts[0].args)
}

func TestCommit_RetryGeneratesAgain(t *testing.T) {
	h := newHarness(t,
		done(actionCommit),
		done(false),
		done(commitChoiceRetry),
		done(commitChoiceCommit),
		done(actionExit),
	)
	h.committer.messages = []string{"first", "second"}
	h.repo.staged = []domain.FileChange{{Path: "a.go", FileStat: domain.FileStat{Additions: 1}}}
	h.repo.diff = "diff"

	require.NoError(t, h.run(t))
	muts := h.repo.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, []string{"second"}, muts[0].args)
}

func TestCommit_DeletionWarningDeclined(t *testing.T) {
	h := newHarness(t,
		done(actionCommit),
		done(false), // deletion warning
		done(actionExit),
	)
	h.repo.staged = []domain.FileChange{{Path: "a.go", FileStat: domain.FileStat{Deletions: 10}}}
	h.repo.diff = "diff"

	require.NoError(t, h.run(t))
	assert.Empty(t, h.repo.Mutations())
	assert.Contains(t, h.out.String(), "aborted by user")
}

func TestCommit_GenerationFailureOffersRetry(t *testing.T) {
	h := newHarness(t,
		done(actionCommit),
		done(false),
		done(false), // retry?
		done(actionExit),
	)
	h.committer.err = errors.New("connection refused")
	h.repo.staged = []domain.FileChange{{Path: "a.go", FileStat: domain.FileStat{Additions: 1}}}
	h.repo.diff = "diff"

	require.NoError(t, h.run(t))
	assert.Contains(t, h.out.String(), "connection refused")
	assert.Empty(t, h.repo.Mutations())
}

func TestIgnore_CustomPatterns(t *testing.T) {
	h := newHarness(t,
		done(actionIgnore), done("custom"), done("*.log, dist/ ,"),
		done(actionExit),
	)

	require.NoError(t, h.run(t))
	muts := h.repo.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, []string{"*.log", "dist/"}, muts[0].args)
	assert.True(t, muts[0].suspended)
}

func TestIgnoreCandidates(t *testing.T) {
	h := newHarness(t)
	h.repo.ignored = []string{"main.go"}

	got, err := h.session.ignoreCandidates(context.Background(), []domain.FileChange{{Path: "b.txt"}, {Path: "a.txt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, got)
}

func TestPush_ToSelectedRemotes(t *testing.T) {
	h := newHarness(t,
		done(actionPush), done([]string{"origin"}), done(true),
		done(actionExit),
	)
	h.repo.remotes = []domain.Remote{{Name: "origin", URL: "git@x:y.git"}, {Name: "backup", URL: "/srv/y.git"}}

	require.NoError(t, h.run(t))
	muts := h.repo.Mutations()
	require.Len(t, muts, 1)
	assert.Equal(t, []string{"origin"}, muts[0].args)
}

func TestPush_NoRemotes(t *testing.T) {
	h := newHarness(t, done(actionPush), done(actionExit))

	require.NoError(t, h.run(t))
	assert.Contains(t, h.out.String(), errNoRemotes.Error())
}

func TestReviewAndHistoryUsePager(t *testing.T) {
	h := newHarness(t,
		done(actionReview), done([]string{"a.go"}),
		done(actionHistory), done("0123456789abcdef"),
		done(actionExit),
	)
	h.repo.unstaged = []domain.FileChange{{Path: "a.go"}}
	h.repo.commits = []domain.Commit{{Hash: "0123456789abcdef", Subject: "init"}}

	require.NoError(t, h.run(t))
	assert.Equal(t, []string{"Review changes", "Commit 0123456"}, h.pager.shown)
}

func TestSummarize(t *testing.T) {
	h := newHarness(t,
		done(actionSummarize), done([]string{"h1"}),
		done(actionExit),
	)
	h.repo.commits = []domain.Commit{{Hash: "h1", Subject: "feat: one"}}

	require.NoError(t, h.run(t))
	assert.Equal(t, 1, h.committer.summaries)
	assert.Contains(t, h.out.String(), "summary of feat: one")
	assert.False(t, h.watcher.Suspended())
}

func TestSummarize_PanicReleasesSuspension(t *testing.T) {
	h := newHarness(t, done([]string{"h1"}))
	h.repo.commits = []domain.Commit{{Hash: "h1", Subject: "feat: one"}}
	h.committer.summarizePanics = true

	assert.Panics(t, func() { _ = h.session.summarize(context.Background()) })
	assert.False(t, h.watcher.Suspended())
	assert.False(t, h.session.opts.Bridge.Active())
}

func TestRun_ChangeWhileDrawingRestartsCycle(t *testing.T) {
	h := newHarness(t, done(actionExit))
	h.repo.onChanges = func(call int) {
		if call == 1 {
			h.watcher.pending.Set()
		}
	}

	require.NoError(t, h.run(t))
	assert.Equal(t, 2, h.repo.changeCalls, "menu is not shown for the stale draw")
	assert.False(t, h.watcher.pending.IsSet())
}

// The real controller and bridge: a change detected while the menu is
// blocking discards the menu and redraws it.
func TestRun_WatcherInterruptsMenu(t *testing.T) {
	bridge := prompt.NewBridge(nil)
	defer bridge.Close()

	// The file appears once the menu is up
	var appeared atomic.Bool
	source := watch.SnapshotSourceFunc(func(ctx context.Context) (domain.Snapshot, error) {
		if bridge.Active() {
			appeared.Store(true)
		}
		if !appeared.Load() {
			return domain.Snapshot{}, nil
		}
		return domain.NewSnapshot(nil, []domain.FileChange{{Path: "new.go"}}), nil
	})
	controller := watch.NewController(watch.NewDetector(source, nil), &watch.PendingRefresh{}, bridge, watch.Options{
		Interval: 10 * time.Millisecond,
	})
	bridge.SetGate(controller)

	repo := &fakeRepo{}
	prompts := &fakePrompts{t: t, bridge: bridge, replies: []reply{waitInterrupt(), done(actionExit)}}
	s := New(Options{
		Bridge:    bridge,
		Committer: &fakeCommitter{},
		Models:    &fakeModels{model: "m"},
		Prompts:   prompts,
		Repo:      repo,
		Watcher:   controller,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(context.Background()) }()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("menu was never interrupted")
	}

	assert.Equal(t, 2, repo.changeCalls)
	assert.Equal(t, watch.StateStopped, controller.State())
}

func TestBuildMenu(t *testing.T) {
	choices, initial := buildMenu(nil, nil)
	assert.Empty(t, initial)
	values := make([]string, 0, len(choices))
	for _, c := range choices {
		values = append(values, c.Value)
	}
	assert.Equal(t, []string{actionHistory, actionSummarize, actionPush, actionIgnore, actionModel, actionExit}, values)

	staged := []domain.FileChange{{Path: "a", FileStat: domain.FileStat{Additions: 2, Deletions: 1}}}
	unstaged := []domain.FileChange{{Path: "b"}, {Path: "c"}}
	choices, initial = buildMenu(staged, unstaged)
	assert.Equal(t, actionCommit, initial)
	assert.Equal(t, actionCommit, choices[0].Value)
	assert.Equal(t, "↓ Unstage Files (1) (+2, -1)", choices[1].Label)
	assert.Equal(t, "↑ Stage Files (2) (+0, -0)", choices[2].Label)
	assert.Equal(t, actionReview, choices[3].Value)
}

func TestDiffPath(t *testing.T) {
	path, ok := diffPath("diff --git a/internal/x.go b/internal/x.go")
	assert.True(t, ok)
	assert.Equal(t, "internal/x.go", path)

	_, ok = diffPath("+++ b/internal/x.go")
	assert.False(t, ok)
}

func TestPagerModel_Keys(t *testing.T) {
	m := newPagerModel("title", "line one\nline two")

	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m = next.(pagerModel)
	assert.True(t, m.ready)
	assert.Contains(t, m.View(), "title")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.False(t, next.(pagerModel).cancelled)
	assert.NotNil(t, cmd)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, next.(pagerModel).cancelled)
}
