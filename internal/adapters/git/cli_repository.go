package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// CLIRepository implements ports.GitRepository using local git commands
type CLIRepository struct {
	logger *slog.Logger
}

// Verify interface compliance at compile time
var _ ports.GitRepository = (*CLIRepository)(nil)

// NewCLIRepository creates a new CLIRepository
func NewCLIRepository(logger *slog.Logger) *CLIRepository {
	return &CLIRepository{logger: logging.OrDiscard(logger)}
}

// run executes git in repoPath and returns stdout. stderr is folded into the error.
// Paths in the output are never quoted, so they can be handed back to git as is.
func (r *CLIRepository) run(ctx context.Context, repoPath string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-c", "core.quotePath=false"}, args...)...)
	cmd.Dir = repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		r.logger.Debug("git command failed", "args", args, "dir", repoPath, "error", err, "stderr", msg)
		if strings.Contains(strings.ToLower(msg), "not a git repository") {
			return "", fmt.Errorf("%s: %w", repoPath, domain.ErrNotGitRepository)
		}
		if msg != "" {
			return "", fmt.Errorf("git %s failed: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("git %s failed: %w", args[0], err)
	}

	return stdout.String(), nil
}

// mutate runs a mutating git command and renders the status line shown to the user
func (r *CLIRepository) mutate(ctx context.Context, repoPath string, args ...string) (string, error) {
	command := "git " + strings.Join(args, " ")
	if _, err := r.run(ctx, repoPath, args...); err != nil {
		r.logger.Error("git mutation failed", "command", command, "error", err)
		return fmt.Sprintf("Error: %s. Error: %v", command, err), err
	}
	r.logger.Info("git mutation succeeded", "command", command, "dir", repoPath)
	return "Success: " + command, nil
}

// DiffProvider methods

// StagedChanges implements DiffProvider.StagedChanges
func (r *CLIRepository) StagedChanges(ctx context.Context, repoPath string) ([]domain.FileChange, error) {
	out, err := r.run(ctx, repoPath, "diff", "--staged", "--numstat", "-z")
	if err != nil {
		return nil, err
	}
	return parseNumstat(out)
}

// UnstagedChanges implements DiffProvider.UnstagedChanges.
// Untracked files are included with zero counts so they can be staged.
func (r *CLIRepository) UnstagedChanges(ctx context.Context, repoPath string) ([]domain.FileChange, error) {
	out, err := r.run(ctx, repoPath, "diff", "--numstat", "-z")
	if err != nil {
		return nil, err
	}
	changes, err := parseNumstat(out)
	if err != nil {
		return nil, err
	}

	untracked, err := r.run(ctx, repoPath, "ls-files", "-z", "--others", "--exclude-standard")
	if err != nil {
		return nil, err
	}
	for _, path := range splitNul(untracked) {
		changes = append(changes, domain.FileChange{Path: path})
	}

	return changes, nil
}

// DiffReader methods

// Diff implements DiffReader.Diff
func (r *CLIRepository) Diff(ctx context.Context, repoPath string, staged bool) (string, error) {
	args := []string{"diff"}
	if staged {
		args = append(args, "--staged")
	}
	return r.run(ctx, repoPath, args...)
}

// FileDiff implements DiffReader.FileDiff
func (r *CLIRepository) FileDiff(ctx context.Context, repoPath, path string, staged bool) (string, error) {
	args := []string{"diff"}
	if staged {
		args = append(args, "--staged")
	}
	args = append(args, "--", path)
	return r.run(ctx, repoPath, args...)
}

// GitMutator methods

// Stage implements GitMutator.Stage
func (r *CLIRepository) Stage(ctx context.Context, repoPath string, files []string) (string, error) {
	if len(files) == 0 {
		return "", errors.New("no files to stage")
	}
	return r.mutate(ctx, repoPath, append([]string{"add", "--"}, files...)...)
}

// Unstage implements GitMutator.Unstage
func (r *CLIRepository) Unstage(ctx context.Context, repoPath string, files []string) (string, error) {
	if len(files) == 0 {
		return "", errors.New("no files to unstage")
	}
	return r.mutate(ctx, repoPath, append([]string{"reset", "-q", "--"}, files...)...)
}

// Commit implements GitMutator.Commit
func (r *CLIRepository) Commit(ctx context.Context, repoPath, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.New("empty commit message")
	}
	status, err := r.mutate(ctx, repoPath, "commit", "-m", message)
	if err != nil {
		return status, err
	}
	// Keep the status line short; the message can be many lines
	subject, _, _ := strings.Cut(message, "\n")
	return "Success: committed " + subject, nil
}

// RemoteManager methods

// Push implements RemoteManager.Push
func (r *CLIRepository) Push(ctx context.Context, repoPath, remote string) (string, error) {
	return r.mutate(ctx, repoPath, "push", remote)
}

// Remotes implements RemoteManager.Remotes
func (r *CLIRepository) Remotes(ctx context.Context, repoPath string) ([]domain.Remote, error) {
	out, err := r.run(ctx, repoPath, "remote", "-v")
	if err != nil {
		return nil, err
	}
	return parseRemotes(out), nil
}

// RepoInspector methods

// CurrentBranch implements RepoInspector.CurrentBranch
func (r *CLIRepository) CurrentBranch(ctx context.Context, repoPath string) (string, error) {
	out, err := r.run(ctx, repoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// RepoRoot implements RepoInspector.RepoRoot
func (r *CLIRepository) RepoRoot(ctx context.Context, path string) (string, error) {
	out, err := r.run(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return filepath.Clean(strings.TrimSpace(out)), nil
}

// TrackedFiles implements RepoInspector.TrackedFiles
func (r *CLIRepository) TrackedFiles(ctx context.Context, repoPath string) ([]string, error) {
	out, err := r.run(ctx, repoPath, "ls-files", "-z")
	if err != nil {
		return nil, err
	}
	return splitNul(out), nil
}

// IsTracked implements RepoInspector.IsTracked
func (r *CLIRepository) IsTracked(ctx context.Context, repoPath, path string) (bool, error) {
	out, err := r.run(ctx, repoPath, "ls-files", "--", path)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}
