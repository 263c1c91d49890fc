package cmd

import (
	"context"
	"fmt"
	"os"

	"gitsmart/internal/session"
)

// LogCmd prints the most recent commits
type LogCmd struct {
	Limit int    `help:"Number of commits to show" short:"n" default:"10"`
	Repo  string `help:"Registered repository name or alias (defaults to the current directory)" short:"r"`
}

// Run executes the log command
func (l *LogCmd) Run(cli *CLI) error {
	ctx := context.Background()
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	git, _, err := cli.Container.CurrentRepository(ctx, dir, l.Repo)
	if err != nil {
		return err
	}
	commits, err := git.Log(ctx, l.Limit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	fmt.Print(session.RenderCommits(commits))
	return nil
}
