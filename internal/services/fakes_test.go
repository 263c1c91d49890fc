package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gitsmart/internal/domain"
	"gitsmart/internal/ports"
)

type fakeGitRepo struct {
	ports.GitRepository

	mu        sync.Mutex
	staged    []domain.FileChange
	unstaged  []domain.FileChange
	stagedErr error
	calls     []string
}

func (f *fakeGitRepo) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeGitRepo) StagedChanges(ctx context.Context, repoPath string) ([]domain.FileChange, error) {
	f.record("staged:" + repoPath)
	return f.staged, f.stagedErr
}

func (f *fakeGitRepo) UnstagedChanges(ctx context.Context, repoPath string) ([]domain.FileChange, error) {
	f.record("unstaged:" + repoPath)
	return f.unstaged, nil
}

func (f *fakeGitRepo) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	return "main", nil
}

func (f *fakeGitRepo) Stage(ctx context.Context, repoPath string, files []string) (string, error) {
	f.record("stage:" + strings.Join(files, ","))
	return "Success: git add -- " + strings.Join(files, " "), nil
}

type fakeCompleter struct {
	responses []string
	err       error
	requests  []ports.ChatRequest
}

func (f *fakeCompleter) Complete(ctx context.Context, req ports.ChatRequest, onDelta func(string)) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	if onDelta != nil {
		onDelta(resp)
	}
	return resp, nil
}

type fakeLocator struct {
	roots   map[string]string
	remotes map[string]string
}

func (f *fakeLocator) Discover(path string) (string, error) {
	for p := path; ; p = filepath.Dir(p) {
		if root, ok := f.roots[p]; ok {
			return root, nil
		}
		if p == filepath.Dir(p) {
			return "", domain.ErrNotGitRepository
		}
	}
}

func (f *fakeLocator) RemoteURL(path string) string {
	return f.remotes[path]
}

// memRegistry is an in-memory RepositoryRegistry
type memRegistry struct {
	repos    map[string]*domain.Repository
	aliases  map[string]string
	settings map[string]string
	touched  []string
}

func newMemRegistry() *memRegistry {
	return &memRegistry{
		repos:    map[string]*domain.Repository{},
		aliases:  map[string]string{},
		settings: map[string]string{},
	}
}

func (m *memRegistry) lookup(id string) (*domain.Repository, error) {
	if r, ok := m.repos[id]; ok {
		return r, nil
	}
	if name, ok := m.aliases[id]; ok {
		return m.repos[name], nil
	}
	return nil, fmt.Errorf("%s: %w", id, domain.ErrRepositoryNotFound)
}

func (m *memRegistry) Current(ctx context.Context) (*domain.Repository, error) {
	for _, r := range m.repos {
		if r.IsCurrent {
			c := *r
			return &c, nil
		}
	}
	return nil, domain.ErrRepositoryNotFound
}

func (m *memRegistry) Get(ctx context.Context, id string) (*domain.Repository, error) {
	r, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	c := *r
	return &c, nil
}

func (m *memRegistry) GetByPath(ctx context.Context, path string) (*domain.Repository, error) {
	for _, r := range m.repos {
		if r.Path == filepath.Clean(path) {
			c := *r
			return &c, nil
		}
	}
	return nil, domain.ErrRepositoryNotFound
}

func (m *memRegistry) List(ctx context.Context) ([]domain.Repository, error) {
	var out []domain.Repository
	for _, r := range m.repos {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memRegistry) Add(ctx context.Context, repo domain.Repository) error {
	if _, err := m.lookup(repo.Name); err == nil {
		return domain.ErrRepositoryExists
	}
	m.repos[repo.Name] = &repo
	return nil
}

func (m *memRegistry) AddAlias(ctx context.Context, id, alias string) error {
	r, err := m.lookup(id)
	if err != nil {
		return err
	}
	if _, err := m.lookup(alias); err == nil {
		return domain.ErrAliasTaken
	}
	m.aliases[alias] = r.Name
	r.Aliases = append(r.Aliases, alias)
	return nil
}

func (m *memRegistry) Remove(ctx context.Context, id string) error {
	r, err := m.lookup(id)
	if err != nil {
		return err
	}
	delete(m.repos, r.Name)
	return nil
}

func (m *memRegistry) SetCurrent(ctx context.Context, id string) error {
	r, err := m.lookup(id)
	if err != nil {
		return err
	}
	for _, other := range m.repos {
		other.IsCurrent = false
	}
	r.IsCurrent = true
	return nil
}

func (m *memRegistry) Touch(ctx context.Context, id string) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *memRegistry) GetSetting(ctx context.Context, key string) (string, error) {
	return m.settings[key], nil
}

func (m *memRegistry) SetSetting(ctx context.Context, key, value string) error {
	m.settings[key] = value
	return nil
}

func (m *memRegistry) Close() error { return nil }
