package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// Operation labels recorded with the coordinator
const (
	opAdd     = "add"
	opCommit  = "commit"
	opStage   = "stage"
	opUnstage = "unstage"
)

// Registry resolves repository names for remote requests
type Registry interface {
	List(ctx context.Context) ([]domain.Repository, error)
	Resolve(ctx context.Context, identifier string) (*domain.Repository, error)
	Use(ctx context.Context, identifier string) (*domain.Repository, error)
}

// Git is the per-repository git surface remote requests use
type Git interface {
	Commit(ctx context.Context, message string) (string, error)
	Diff(ctx context.Context, staged bool) (string, error)
	IsTracked(ctx context.Context, file string) (bool, error)
	Stage(ctx context.Context, files []string) (string, error)
	Status(ctx context.Context, repo domain.Repository) (domain.RepositoryStatus, error)
	Unstage(ctx context.Context, files []string) (string, error)
}

// Committer generates commit messages
type Committer interface {
	Generate(ctx context.Context, model string, messages []ports.ChatMessage, onDelta func(string)) (string, error)
	Messages(diff, notes string) []ports.ChatMessage
}

// Tracker records remote operations in flight
type Tracker interface {
	Current() string
	Do(ctx context.Context, label string, fn func(ctx context.Context) error) error
}

// Result is the JSON object every tool returns. Failures are results too.
type Result struct {
	AddedFiles     []string `json:"added_files,omitempty"`
	AlreadyTracked []string `json:"already_tracked,omitempty"`
	CommitMessage  string   `json:"commit_message,omitempty"`
	InvalidFiles   []string `json:"invalid_files,omitempty"`
	Message        string   `json:"message"`
	Operation      string   `json:"operation,omitempty"`
	Repository     string   `json:"repository,omitempty"`
	Success        bool     `json:"success"`
}

func failure(err error) Result {
	return Result{Message: err.Error()}
}

// HandlerDeps wires Handlers
type HandlerDeps struct {
	Committer Committer
	GitFor    func(repoPath string) Git
	Logger    *slog.Logger
	Model     func(ctx context.Context) string
	Registry  Registry
	Tracker   Tracker
}

// Handlers implement the remote operations independent of the transport.
// The repository for each request comes from the registry; the process
// working directory is never changed.
type Handlers struct {
	committer Committer
	gitFor    func(repoPath string) Git
	logger    *slog.Logger
	model     func(ctx context.Context) string
	registry  Registry
	tracker   Tracker
}

// NewHandlers creates the shared remote handlers
func NewHandlers(deps HandlerDeps) *Handlers {
	return &Handlers{
		committer: deps.Committer,
		gitFor:    deps.GitFor,
		logger:    logging.OrDiscard(deps.Logger),
		model:     deps.Model,
		registry:  deps.Registry,
		tracker:   deps.Tracker,
	}
}

func (h *Handlers) resolve(ctx context.Context, repoName string) (*domain.Repository, Git, error) {
	repo, err := h.registry.Resolve(ctx, repoName)
	if err != nil {
		if errors.Is(err, domain.ErrRepositoryNotFound) {
			return nil, nil, fmt.Errorf("repository '%s' not found", repoName)
		}
		return nil, nil, err
	}
	return repo, h.gitFor(repo.Path), nil
}

// Stage adds files to the index of repoName
func (h *Handlers) Stage(ctx context.Context, repoName string, files []string) Result {
	return h.move(ctx, opStage, repoName, files, Git.Stage)
}

// Unstage removes files from the index of repoName
func (h *Handlers) Unstage(ctx context.Context, repoName string, files []string) Result {
	return h.move(ctx, opUnstage, repoName, files, Git.Unstage)
}

func (h *Handlers) move(ctx context.Context, label, repoName string, files []string, apply func(Git, context.Context, []string) (string, error)) Result {
	h.logger.Info("Remote request", "operation", label, "repo", repoName, "files", files)
	if len(files) == 0 {
		return Result{Message: "no files given"}
	}
	repo, git, err := h.resolve(ctx, repoName)
	if err != nil {
		return failure(err)
	}

	var status string
	err = h.tracker.Do(ctx, label, func(ctx context.Context) error {
		var err error
		status, err = apply(git, ctx, files)
		return err
	})
	if err != nil {
		h.logger.Warn("Remote operation failed", "operation", label, "repo", repo.Name, "error", err)
		if status == "" {
			status = err.Error()
		}
		return Result{Message: status, Operation: label, Repository: repo.Name}
	}
	return Result{Message: status, Operation: label, Repository: repo.Name, Success: true}
}

// Commit commits the staged changes of repoName. Without customMessage the
// message is generated from the staged diff.
func (h *Handlers) Commit(ctx context.Context, repoName, customMessage string) Result {
	h.logger.Info("Remote request", "operation", opCommit, "repo", repoName, "custom", customMessage != "")
	repo, git, err := h.resolve(ctx, repoName)
	if err != nil {
		return failure(err)
	}

	res := Result{Operation: opCommit, Repository: repo.Name}
	err = h.tracker.Do(ctx, opCommit, func(ctx context.Context) error {
		message := strings.TrimSpace(customMessage)
		if message == "" {
			diff, err := git.Diff(ctx, true)
			if err != nil {
				return err
			}
			if strings.TrimSpace(diff) == "" {
				return fmt.Errorf("%w. Please stage some files first", domain.ErrNoStagedChanges)
			}
			message, err = h.committer.Generate(ctx, h.model(ctx), h.committer.Messages(diff, ""), func(string) {})
			if err != nil {
				return fmt.Errorf("failed to generate commit message: %w", err)
			}
		}
		res.CommitMessage = message
		status, err := git.Commit(ctx, message)
		if err != nil {
			if status != "" {
				return errors.New(status)
			}
			return err
		}
		return nil
	})
	if err != nil {
		h.logger.Warn("Remote commit failed", "repo", repo.Name, "error", err)
		res.Message = err.Error()
		return res
	}
	res.Message = "Committed: " + res.CommitMessage
	res.Success = true
	return res
}

// Add stages files that git does not track yet. Missing and already
// tracked files are reported and leave the result unsuccessful.
func (h *Handlers) Add(ctx context.Context, repoName string, files []string) Result {
	h.logger.Info("Remote request", "operation", opAdd, "repo", repoName, "files", files)
	repo, git, err := h.resolve(ctx, repoName)
	if err != nil {
		return failure(err)
	}

	res := Result{
		AddedFiles:     []string{},
		AlreadyTracked: []string{},
		InvalidFiles:   []string{},
		Operation:      opAdd,
		Repository:     repo.Name,
	}
	var messages []string

	err = h.tracker.Do(ctx, opAdd, func(ctx context.Context) error {
		var candidates []string
		for _, file := range files {
			full := file
			if !filepath.IsAbs(full) {
				full = filepath.Join(repo.Path, file)
			}
			if _, err := os.Stat(full); err != nil {
				res.InvalidFiles = append(res.InvalidFiles, file)
				continue
			}
			tracked, err := git.IsTracked(ctx, file)
			if err != nil {
				return err
			}
			if tracked {
				res.AlreadyTracked = append(res.AlreadyTracked, file)
				continue
			}
			candidates = append(candidates, file)
		}

		if len(res.InvalidFiles) > 0 {
			messages = append(messages, "Files not found: "+strings.Join(res.InvalidFiles, ", "))
		}
		if len(res.AlreadyTracked) > 0 {
			messages = append(messages, "Already tracked: "+strings.Join(res.AlreadyTracked, ", "))
		}
		if len(candidates) == 0 {
			if len(messages) == 0 {
				messages = append(messages, "No valid untracked files to add")
			}
			return nil
		}

		if status, err := git.Stage(ctx, candidates); err != nil {
			if status == "" {
				status = err.Error()
			}
			return errors.New("Git add failed: " + status)
		}
		res.AddedFiles = candidates
		messages = append(messages, "Successfully added: "+strings.Join(candidates, ", "))
		return nil
	})
	if err != nil {
		messages = append(messages, err.Error())
		res.Message = strings.Join(messages, "; ")
		return res
	}

	res.Message = strings.Join(messages, "; ")
	res.Success = len(res.InvalidFiles) == 0 && len(res.AlreadyTracked) == 0
	return res
}

// Repositories returns the registered repository names
func (h *Handlers) Repositories(ctx context.Context) ([]string, error) {
	repos, err := h.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(repos))
	for _, r := range repos {
		names = append(names, r.Name)
	}
	return names, nil
}

// Switch makes repoName the current repository
func (h *Handlers) Switch(ctx context.Context, repoName string) Result {
	h.logger.Info("Remote request", "operation", "switch", "repo", repoName)
	repo, err := h.registry.Use(ctx, repoName)
	if err != nil {
		h.logger.Warn("Switch failed", "repo", repoName, "error", err)
		return Result{Message: "Could not switch to " + repoName, Repository: repoName}
	}
	return Result{Message: "Switched to " + repo.Name, Repository: repo.Name, Success: true}
}

// Status reports branch and changes of repoName, plus the remote
// operation in flight if any
func (h *Handlers) Status(ctx context.Context, repoName string) (domain.RepositoryStatus, error) {
	repo, git, err := h.resolve(ctx, repoName)
	if err != nil {
		return domain.RepositoryStatus{}, err
	}
	status, err := git.Status(ctx, *repo)
	if err != nil {
		return domain.RepositoryStatus{}, err
	}
	status.Operation = h.tracker.Current()
	return status, nil
}
