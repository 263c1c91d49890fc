package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gitsmart/internal/domain"
	"gitsmart/internal/ports"
	"gitsmart/internal/prompt"
	"gitsmart/internal/watch"
)

// reply scripts the answer to one prompt
type reply struct {
	err   error
	kind  prompt.Kind
	value any
	// wait blocks in a real bridge-registered prompt until it is interrupted
	wait bool
}

func done(v any) reply { return reply{kind: prompt.Completed, value: v} }

func cancelled() reply { return reply{kind: prompt.UserCancelled} }

func refreshed() reply { return reply{kind: prompt.RefreshRequested} }

func waitInterrupt() reply { return reply{wait: true} }

func failed(err error) reply { return reply{err: err} }

type fakePrompts struct {
	t      *testing.T
	bridge *prompt.Bridge

	mu      sync.Mutex
	replies []reply
	titles  []string
}

func (f *fakePrompts) next(title string) reply {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles = append(f.titles, title)
	if len(f.replies) == 0 {
		f.t.Errorf("unexpected prompt %q", title)
		return cancelled()
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r
}

func answer[T any](f *fakePrompts, ctx context.Context, title string) (prompt.Outcome[T], error) {
	r := f.next(title)
	if r.wait {
		return prompt.Run(ctx, f.bridge, func(ctx context.Context) (T, error) {
			<-ctx.Done()
			var zero T
			return zero, ctx.Err()
		})
	}
	if r.err != nil {
		return prompt.Outcome[T]{}, r.err
	}
	switch r.kind {
	case prompt.RefreshRequested:
		return prompt.Refresh[T](), nil
	case prompt.UserCancelled:
		return prompt.Cancelled[T](), nil
	}
	return prompt.Done(r.value.(T)), nil
}

func (f *fakePrompts) Confirm(ctx context.Context, title string, initial bool) (prompt.Outcome[bool], error) {
	return answer[bool](f, ctx, title)
}

func (f *fakePrompts) Input(ctx context.Context, title, initial string) (prompt.Outcome[string], error) {
	return answer[string](f, ctx, title)
}

func (f *fakePrompts) MultiSelect(ctx context.Context, title string, choices []prompt.Choice) (prompt.Outcome[[]string], error) {
	return answer[[]string](f, ctx, title)
}

func (f *fakePrompts) Select(ctx context.Context, title string, choices []prompt.Choice, initial string) (prompt.Outcome[string], error) {
	return answer[string](f, ctx, title)
}

func (f *fakePrompts) Text(ctx context.Context, title, initial string) (prompt.Outcome[string], error) {
	return answer[string](f, ctx, title)
}

type fakeWatcher struct {
	pending watch.PendingRefresh

	mu       sync.Mutex
	active   int
	starts   int
	stops    int
	suspends int
}

func (w *fakeWatcher) Pending() *watch.PendingRefresh { return &w.pending }

func (w *fakeWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.starts++
	return nil
}

func (w *fakeWatcher) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stops++
	return true
}

func (w *fakeWatcher) Suspend() func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.active++
	w.suspends++
	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			w.active--
			w.mu.Unlock()
		})
	}
}

func (w *fakeWatcher) Suspended() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active > 0
}

type fakeQuiescence struct {
	awaited atomic.Int32
	idle    bool
}

func (q *fakeQuiescence) AwaitQuiescence(ctx context.Context, timeout time.Duration) bool {
	q.awaited.Add(1)
	return q.idle
}

func (q *fakeQuiescence) Current() string { return "stage" }

type mutation struct {
	op        string
	args      []string
	suspended bool
	quiesced  int32
}

type fakeRepo struct {
	watcher    *fakeWatcher
	quiescence *fakeQuiescence

	onChanges func(call int)

	mu          sync.Mutex
	changeCalls int
	staged      []domain.FileChange
	unstaged    []domain.FileChange
	diff        string
	commits     []domain.Commit
	remotes     []domain.Remote
	mutations   []mutation
	ignored     []string
}

func (r *fakeRepo) record(op string, args ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := mutation{op: op, args: args}
	if r.watcher != nil {
		m.suspended = r.watcher.Suspended()
	}
	if r.quiescence != nil {
		m.quiesced = r.quiescence.awaited.Load()
	}
	r.mutations = append(r.mutations, m)
}

func (r *fakeRepo) Branch(ctx context.Context) (string, error) { return "main", nil }

func (r *fakeRepo) Changes(ctx context.Context) ([]domain.FileChange, []domain.FileChange, error) {
	r.mu.Lock()
	r.changeCalls++
	call := r.changeCalls
	staged, unstaged := r.staged, r.unstaged
	r.mu.Unlock()
	if r.onChanges != nil {
		r.onChanges(call)
	}
	return staged, unstaged, nil
}

func (r *fakeRepo) Commit(ctx context.Context, message string) (string, error) {
	r.record("commit", message)
	return "Success: committed " + message, nil
}

func (r *fakeRepo) Diff(ctx context.Context, staged bool) (string, error) { return r.diff, nil }

func (r *fakeRepo) FileDiff(ctx context.Context, file string, staged bool) (string, error) {
	return "diff --git a/" + file + " b/" + file, nil
}

func (r *fakeRepo) Ignore(patterns []string) ([]string, error) {
	r.record("ignore", patterns...)
	r.ignored = append(r.ignored, patterns...)
	return patterns, nil
}

func (r *fakeRepo) IgnoredPatterns() ([]string, error) { return r.ignored, nil }

func (r *fakeRepo) Log(ctx context.Context, limit int) ([]domain.Commit, error) {
	return r.commits, nil
}

func (r *fakeRepo) Path() string { return "/repo" }

func (r *fakeRepo) Push(ctx context.Context, remote string) (string, error) {
	r.record("push", remote)
	return "Success: git push " + remote, nil
}

func (r *fakeRepo) Remotes(ctx context.Context) ([]domain.Remote, error) { return r.remotes, nil }

func (r *fakeRepo) Show(ctx context.Context, hash string) (string, error) {
	return "commit " + hash, nil
}

func (r *fakeRepo) Stage(ctx context.Context, files []string) (string, error) {
	r.record("stage", files...)
	return "Success: git add", nil
}

func (r *fakeRepo) TrackedFiles(ctx context.Context) ([]string, error) {
	return []string{"main.go", ".gitignore"}, nil
}

func (r *fakeRepo) Unstage(ctx context.Context, files []string) (string, error) {
	r.record("unstage", files...)
	return "", errors.New("index locked")
}

func (r *fakeRepo) Mutations() []mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mutation(nil), r.mutations...)
}

type fakeCommitter struct {
	messages        []string
	err             error
	summaries       int
	summarizePanics bool
}

func (c *fakeCommitter) ExceedsBudget(messages []ports.ChatMessage) bool { return false }

func (c *fakeCommitter) Generate(ctx context.Context, model string, messages []ports.ChatMessage, onDelta func(string)) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	msg := c.messages[0]
	if len(c.messages) > 1 {
		c.messages = c.messages[1:]
	}
	onDelta(msg)
	return msg, nil
}

func (c *fakeCommitter) Messages(diff, notes string) []ports.ChatMessage {
	return []ports.ChatMessage{{Role: "user", Content: diff + notes}}
}

func (c *fakeCommitter) Summarize(ctx context.Context, model string, commits []domain.Commit, onDelta func(string)) (string, error) {
	c.summaries++
	if c.summarizePanics {
		panic("summarize blew up")
	}
	return "summary of " + commits[0].Subject, nil
}

type fakeModels struct {
	model string
}

func (m *fakeModels) Model(ctx context.Context) string { return m.model }
func (m *fakeModels) Models() []string                 { return []string{"a", "b"} }
func (m *fakeModels) SetModel(ctx context.Context, model string) error {
	m.model = model
	return nil
}

type fakePager struct {
	shown []string
}

func (p *fakePager) Show(ctx context.Context, title, content string) error {
	p.shown = append(p.shown, title)
	return nil
}
