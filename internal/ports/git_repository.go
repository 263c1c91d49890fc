package ports

import (
	"context"

	"gitsmart/internal/domain"
)

// DiffProvider reports per-file line counts of the index and the working tree
type DiffProvider interface {
	StagedChanges(ctx context.Context, repoPath string) ([]domain.FileChange, error)
	UnstagedChanges(ctx context.Context, repoPath string) ([]domain.FileChange, error)
}

// DiffReader returns raw diff text
type DiffReader interface {
	Diff(ctx context.Context, repoPath string, staged bool) (string, error)
	FileDiff(ctx context.Context, repoPath, file string, staged bool) (string, error)
}

// GitMutator changes the index or creates commits.
// Each call returns the human readable status line shown to the user.
type GitMutator interface {
	Commit(ctx context.Context, repoPath, message string) (string, error)
	Stage(ctx context.Context, repoPath string, files []string) (string, error)
	Unstage(ctx context.Context, repoPath string, files []string) (string, error)
}

// RemoteManager lists remotes and pushes to them
type RemoteManager interface {
	Push(ctx context.Context, repoPath, remote string) (string, error)
	Remotes(ctx context.Context, repoPath string) ([]domain.Remote, error)
}

// RepoInspector queries repository information
type RepoInspector interface {
	CurrentBranch(ctx context.Context, repoPath string) (string, error)
	IsTracked(ctx context.Context, repoPath, file string) (bool, error)
	RepoRoot(ctx context.Context, path string) (string, error)
	TrackedFiles(ctx context.Context, repoPath string) ([]string, error)
}

// HistoryReader reads commit history
type HistoryReader interface {
	Log(ctx context.Context, repoPath string, limit int) ([]domain.Commit, error)
	Show(ctx context.Context, repoPath, hash string) (string, error)
}

// GitRepository is the composite interface
type GitRepository interface {
	DiffProvider
	DiffReader
	GitMutator
	RemoteManager
	RepoInspector
}

// RepoLocator finds working trees on disk
type RepoLocator interface {
	Discover(path string) (string, error)
	RemoteURL(path string) string
}
