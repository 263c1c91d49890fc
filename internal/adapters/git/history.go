package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// HistoryRepository reads history natively with go-git
type HistoryRepository struct {
	logger *slog.Logger
}

// Verify interface compliance at compile time
var (
	_ ports.HistoryReader = (*HistoryRepository)(nil)
	_ ports.RepoLocator   = (*HistoryRepository)(nil)
)

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(logger *slog.Logger) *HistoryRepository {
	return &HistoryRepository{logger: logging.OrDiscard(logger)}
}

func (h *HistoryRepository) open(repoPath string) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(repoPath, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", repoPath, domain.ErrNotGitRepository)
		}
		return nil, fmt.Errorf("failed to open repository: %w", err)
	}
	return repo, nil
}

// Log implements HistoryReader.Log, newest first. An empty repository has no history.
func (h *HistoryRepository) Log(ctx context.Context, repoPath string, limit int) ([]domain.Commit, error) {
	repo, err := h.open(repoPath)
	if err != nil {
		return nil, err
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	iter, err := repo.Log(&gogit.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var commits []domain.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, toDomainCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk log: %w", err)
	}

	h.logger.Debug("Read commit history", "path", repoPath, "count", len(commits))
	return commits, nil
}

// Show implements HistoryReader.Show: header, file stats and patch against the first parent
func (h *HistoryRepository) Show(ctx context.Context, repoPath, hash string) (string, error) {
	repo, err := h.open(repoPath)
	if err != nil {
		return "", err
	}

	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return "", fmt.Errorf("unknown commit %s: %w", hash, err)
	}
	c, err := repo.CommitObject(*resolved)
	if err != nil {
		return "", fmt.Errorf("failed to load commit %s: %w", hash, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "commit %s\n", c.Hash)
	fmt.Fprintf(&b, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
	fmt.Fprintf(&b, "Date:   %s\n\n", c.Author.When.Format("Mon Jan 2 15:04:05 2006 -0700"))
	for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
		fmt.Fprintf(&b, "    %s\n", line)
	}

	stats, err := c.StatsContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to compute stats: %w", err)
	}
	b.WriteString("\n")
	b.WriteString(stats.String())

	if c.NumParents() > 0 {
		parent, err := c.Parent(0)
		if err != nil {
			return "", fmt.Errorf("failed to load parent: %w", err)
		}
		patch, err := parent.PatchContext(ctx, c)
		if err != nil {
			return "", fmt.Errorf("failed to compute patch: %w", err)
		}
		b.WriteString("\n")
		b.WriteString(patch.String())
	}

	return b.String(), nil
}

// Discover returns the top level of the working tree containing path
func (h *HistoryRepository) Discover(path string) (string, error) {
	repo, err := h.open(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("repository has no working tree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// RemoteURL returns the first URL of origin, or of any remote when origin is missing
func (h *HistoryRepository) RemoteURL(path string) string {
	repo, err := h.open(path)
	if err != nil {
		return ""
	}
	if origin, err := repo.Remote("origin"); err == nil && len(origin.Config().URLs) > 0 {
		return origin.Config().URLs[0]
	}
	remotes, err := repo.Remotes()
	if err != nil {
		return ""
	}
	for _, r := range remotes {
		if urls := r.Config().URLs; len(urls) > 0 {
			return urls[0]
		}
	}
	return ""
}

func toDomainCommit(c *object.Commit) domain.Commit {
	subject, body, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return domain.Commit{
		Author:  c.Author.Name,
		Body:    strings.TrimSpace(body),
		Date:    c.Author.When,
		Hash:    c.Hash.String(),
		Subject: strings.TrimSpace(subject),
	}
}
