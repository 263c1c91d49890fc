package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitsmart/internal/domain"
)

// initRepo creates a repository with one committed file using the git binary
func initRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-q"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
		{"config", "commit.gpgsign", "false"},
	} {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		out, err := cmd.CombinedOutput()
		require.NoError(t, err, string(out))
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("one\ntwo\n"), 0644))
	repo := NewCLIRepository(nil)
	_, err := repo.Stage(context.Background(), dir, []string{"tracked.txt"})
	require.NoError(t, err)
	_, err = repo.Commit(context.Background(), dir, "init")
	require.NoError(t, err)
	return dir
}

func TestCLIRepository_StageUnstageCommit(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	repo := NewCLIRepository(nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tracked.txt"), []byte("one\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("fresh\n"), 0644))

	unstaged, err := repo.UnstagedChanges(ctx, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.FileChange{
		{Path: "tracked.txt", FileStat: domain.FileStat{Deletions: 1}},
		{Path: "new.txt"},
	}, unstaged)

	status, err := repo.Stage(ctx, dir, []string{"tracked.txt", "new.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Success: git add -- tracked.txt new.txt", status)

	staged, err := repo.StagedChanges(ctx, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.FileChange{
		{Path: "tracked.txt", FileStat: domain.FileStat{Deletions: 1}},
		{Path: "new.txt", FileStat: domain.FileStat{Additions: 1}},
	}, staged)

	_, err = repo.Unstage(ctx, dir, []string{"new.txt"})
	require.NoError(t, err)
	staged, err = repo.StagedChanges(ctx, dir)
	require.NoError(t, err)
	assert.Len(t, staged, 1)

	diff, err := repo.Diff(ctx, dir, true)
	require.NoError(t, err)
	assert.Contains(t, diff, "-two")

	status, err = repo.Commit(ctx, dir, "fix: drop line\n\nbody")
	require.NoError(t, err)
	assert.Equal(t, "Success: committed fix: drop line", status)

	tracked, err := repo.IsTracked(ctx, dir, "new.txt")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestCLIRepository_UnusualPathsRoundTrip(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	repo := NewCLIRepository(nil)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "café.txt"), []byte("crème\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "with space.txt"), []byte("x\n"), 0644))

	unstaged, err := repo.UnstagedChanges(ctx, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.FileChange{{Path: "café.txt"}, {Path: "with space.txt"}}, unstaged)

	paths := []string{unstaged[0].Path, unstaged[1].Path}
	_, err = repo.Stage(ctx, dir, paths)
	require.NoError(t, err)

	staged, err := repo.StagedChanges(ctx, dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.FileChange{
		{Path: "café.txt", FileStat: domain.FileStat{Additions: 1}},
		{Path: "with space.txt", FileStat: domain.FileStat{Additions: 1}},
	}, staged)

	tracked, err := repo.TrackedFiles(ctx, dir)
	require.NoError(t, err)
	assert.Contains(t, tracked, "tracked.txt")

	_, err = repo.Unstage(ctx, dir, []string{"café.txt"})
	require.NoError(t, err)
	unstaged, err = repo.UnstagedChanges(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []domain.FileChange{{Path: "café.txt"}}, unstaged)
}

func TestCLIRepository_StagedRenameUsesDestination(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	repo := NewCLIRepository(nil)

	cmd := exec.Command("git", "mv", "tracked.txt", "renamé.txt")
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))

	staged, err := repo.StagedChanges(ctx, dir)
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, "renamé.txt", staged[0].Path)
}

func TestCLIRepository_ErrorsCarryStatus(t *testing.T) {
	dir := initRepo(t)
	repo := NewCLIRepository(nil)

	status, err := repo.Stage(context.Background(), dir, []string{"missing.txt"})
	assert.Error(t, err)
	assert.Contains(t, status, "Error: git add -- missing.txt")

	_, err = repo.Commit(context.Background(), dir, "   ")
	assert.Error(t, err)
}

func TestCLIRepository_InspectorAndRemotes(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	repo := NewCLIRepository(nil)

	branch, err := repo.CurrentBranch(ctx, dir)
	require.NoError(t, err)
	assert.NotEmpty(t, branch)

	files, err := repo.TrackedFiles(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"tracked.txt"}, files)

	remotes, err := repo.Remotes(ctx, dir)
	require.NoError(t, err)
	assert.Empty(t, remotes)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))
	root, err := repo.RepoRoot(ctx, sub)
	require.NoError(t, err)
	expected, _ := filepath.EvalSymlinks(dir)
	actual, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, expected, actual)
}

func TestCLIRepository_NotARepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	_, err := NewCLIRepository(nil).CurrentBranch(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNotGitRepository)
}
