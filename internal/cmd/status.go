package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gitsmart/internal/session"
)

// StatusCmd prints the staged and unstaged changes once
type StatusCmd struct {
	Format string `help:"Output format: text or json" enum:"text,json" default:"text"`
	Repo   string `help:"Registered repository name or alias (defaults to the current directory)" short:"r"`
}

// Run executes the status command
func (s *StatusCmd) Run(cli *CLI) error {
	ctx := context.Background()
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	git, name, err := cli.Container.CurrentRepository(ctx, dir, s.Repo)
	if err != nil {
		return err
	}

	if s.Format == "json" {
		repo, err := cli.Container.RepositoryService.Resolve(ctx, name)
		if err != nil {
			return err
		}
		status, err := git.Status(ctx, *repo)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	staged, unstaged, err := git.Changes(ctx)
	if err != nil {
		return err
	}
	branch, _ := git.Branch(ctx)
	fmt.Print(session.RenderStatus(name, branch, cli.Container.SettingsService.Model(ctx), staged, unstaged))
	return nil
}
