package harness

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// TestGitSetup is a bare "origin" plus a working clone with one commit on main.
type TestGitSetup struct {
	BareRepoPath string
	ClonePath    string
	tb           testing.TB
}

// NewTestGitSetup creates the bare repository, clones it and pushes an initial commit.
//
//	tb.TempDir()/
//	├── bare/    <- git init --bare (origin)
//	└── clone/   <- working tree
func NewTestGitSetup(tb testing.TB) *TestGitSetup {
	tb.Helper()

	baseDir := tb.TempDir()
	bareRepoPath := filepath.Join(baseDir, "bare")
	clonePath := filepath.Join(baseDir, "clone")

	runGitCommand(tb, baseDir, "init", "--bare", bareRepoPath)
	runGitCommand(tb, baseDir, "clone", bareRepoPath, clonePath)
	runGitCommand(tb, clonePath, "config", "user.email", "test@example.com")
	runGitCommand(tb, clonePath, "config", "user.name", "Test User")

	g := &TestGitSetup{
		BareRepoPath: bareRepoPath,
		ClonePath:    clonePath,
		tb:           tb,
	}
	g.WriteFile("README.md", "# Test Repo\n")
	g.Commit("Initial commit", "README.md")

	runGitCommand(tb, clonePath, "branch", "-M", "main")
	runGitCommand(tb, clonePath, "push", "-u", "origin", "main")

	return g
}

// WriteFile writes content to a path relative to the clone.
func (g *TestGitSetup) WriteFile(name, content string) {
	g.tb.Helper()
	path := filepath.Join(g.ClonePath, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		g.tb.Fatalf("Failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		g.tb.Fatalf("Failed to write %s: %v", name, err)
	}
}

// Stage runs git add for the given files.
func (g *TestGitSetup) Stage(files ...string) {
	g.tb.Helper()
	runGitCommand(g.tb, g.ClonePath, append([]string{"add", "--"}, files...)...)
}

// Commit stages files and commits them with message.
func (g *TestGitSetup) Commit(message string, files ...string) {
	g.tb.Helper()
	g.Stage(files...)
	runGitCommand(g.tb, g.ClonePath, "commit", "-m", message)
}

// RunGitCommand executes a git command in the specified directory (exported for tests).
func RunGitCommand(tb testing.TB, dir string, args ...string) {
	runGitCommand(tb, dir, args...)
}

func runGitCommand(tb testing.TB, dir string, args ...string) {
	tb.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf("git %v failed in %s: %v\nOutput: %s", args, dir, err, output)
	}
}
