package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// GitService runs git operations against one working tree
type GitService struct {
	gitRepo  ports.GitRepository
	history  ports.HistoryReader
	logger   *slog.Logger
	repoPath string
}

// NewGitService creates a new GitService bound to repoPath
func NewGitService(gitRepo ports.GitRepository, history ports.HistoryReader, repoPath string, logger *slog.Logger) *GitService {
	return &GitService{
		gitRepo:  gitRepo,
		history:  history,
		logger:   logging.OrDiscard(logger),
		repoPath: repoPath,
	}
}

// WithPath returns a service sharing the same adapters but bound to another working tree
func (s *GitService) WithPath(repoPath string) *GitService {
	clone := *s
	clone.repoPath = repoPath
	return &clone
}

// Path returns the working tree the service operates on
func (s *GitService) Path() string {
	return s.repoPath
}

// Changes queries staged and unstaged changes concurrently
func (s *GitService) Changes(ctx context.Context) (staged, unstaged []domain.FileChange, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		staged, err = s.gitRepo.StagedChanges(gctx, s.repoPath)
		return err
	})
	g.Go(func() error {
		var err error
		unstaged, err = s.gitRepo.UnstagedChanges(gctx, s.repoPath)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to read changes: %w", err)
	}
	return staged, unstaged, nil
}

// Snapshot captures the current changes as a Snapshot
func (s *GitService) Snapshot(ctx context.Context) (domain.Snapshot, error) {
	staged, unstaged, err := s.Changes(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.NewSnapshot(staged, unstaged), nil
}

// Diff returns the full staged or unstaged diff
func (s *GitService) Diff(ctx context.Context, staged bool) (string, error) {
	return s.gitRepo.Diff(ctx, s.repoPath, staged)
}

// FileDiff returns the diff of one file
func (s *GitService) FileDiff(ctx context.Context, file string, staged bool) (string, error) {
	return s.gitRepo.FileDiff(ctx, s.repoPath, file, staged)
}

// Stage adds files to the index
func (s *GitService) Stage(ctx context.Context, files []string) (string, error) {
	s.logger.Info("Staging files", "repo", s.repoPath, "files", files)
	return s.gitRepo.Stage(ctx, s.repoPath, files)
}

// Unstage removes files from the index
func (s *GitService) Unstage(ctx context.Context, files []string) (string, error) {
	s.logger.Info("Unstaging files", "repo", s.repoPath, "files", files)
	return s.gitRepo.Unstage(ctx, s.repoPath, files)
}

// Commit records the index with message
func (s *GitService) Commit(ctx context.Context, message string) (string, error) {
	s.logger.Info("Committing", "repo", s.repoPath)
	return s.gitRepo.Commit(ctx, s.repoPath, message)
}

// Push pushes the current branch to remote
func (s *GitService) Push(ctx context.Context, remote string) (string, error) {
	s.logger.Info("Pushing", "repo", s.repoPath, "remote", remote)
	return s.gitRepo.Push(ctx, s.repoPath, remote)
}

// Remotes lists configured remotes
func (s *GitService) Remotes(ctx context.Context) ([]domain.Remote, error) {
	return s.gitRepo.Remotes(ctx, s.repoPath)
}

// Branch returns the checked out branch name
func (s *GitService) Branch(ctx context.Context) (string, error) {
	return s.gitRepo.CurrentBranch(ctx, s.repoPath)
}

// TrackedFiles lists files known to git
func (s *GitService) TrackedFiles(ctx context.Context) ([]string, error) {
	return s.gitRepo.TrackedFiles(ctx, s.repoPath)
}

// IsTracked reports whether git already knows file
func (s *GitService) IsTracked(ctx context.Context, file string) (bool, error) {
	return s.gitRepo.IsTracked(ctx, s.repoPath, file)
}

// Log returns up to limit commits from HEAD
func (s *GitService) Log(ctx context.Context, limit int) ([]domain.Commit, error) {
	return s.history.Log(ctx, s.repoPath, limit)
}

// Show returns the details of one commit
func (s *GitService) Show(ctx context.Context, hash string) (string, error) {
	return s.history.Show(ctx, s.repoPath, hash)
}

// Status gathers what the companion server reports for a repository
func (s *GitService) Status(ctx context.Context, repo domain.Repository) (domain.RepositoryStatus, error) {
	staged, unstaged, err := s.Changes(ctx)
	if err != nil {
		return domain.RepositoryStatus{}, err
	}
	branch, err := s.Branch(ctx)
	if err != nil {
		s.logger.Warn("Failed to read branch", "repo", s.repoPath, "error", err)
	}
	return domain.RepositoryStatus{
		Branch:    branch,
		Name:      repo.Name,
		Path:      s.repoPath,
		RemoteURL: repo.RemoteURL,
		Staged:    nonNil(staged),
		Unstaged:  nonNil(unstaged),
	}, nil
}

func nonNil(changes []domain.FileChange) []domain.FileChange {
	if changes == nil {
		return []domain.FileChange{}
	}
	return changes
}
