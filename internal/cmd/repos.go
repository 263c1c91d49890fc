package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"gitsmart/internal/domain"
)

// ReposCmd manages the repository registry
type ReposCmd struct {
	Add     ReposAddCmd     `cmd:"add" help:"Register a repository"`
	Alias   ReposAliasCmd   `cmd:"alias" help:"Add an alias to a repository"`
	Cleanup ReposCleanupCmd `cmd:"cleanup" help:"Remove repositories that no longer exist on disk"`
	Current ReposCurrentCmd `cmd:"current" help:"Show the current repository"`
	List    ReposListCmd    `cmd:"list" help:"List registered repositories" default:"1"`
	Remove  ReposRemoveCmd  `cmd:"remove" aliases:"rm" help:"Unregister a repository"`
	Use     ReposUseCmd     `cmd:"use" help:"Make a repository the current one"`
}

// ReposListCmd lists registered repositories
type ReposListCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
}

// Run executes the list command
func (r *ReposListCmd) Run(cli *CLI) error {
	repos, err := cli.Container.RepositoryService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	if r.Format == "json" {
		data, err := json.MarshalIndent(repos, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(repos) == 0 {
		fmt.Println("No repositories registered. Run 'gitsmart repos add' inside a repository.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tALIASES\tPATH\tLAST USED")
	for _, repo := range repos {
		marker := ""
		if repo.IsCurrent {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			marker, repo.Name, strings.Join(repo.Aliases, ","), repo.Path, lastUsed(repo.LastAccessed))
	}
	return w.Flush()
}

func lastUsed(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// ReposAddCmd registers a repository
type ReposAddCmd struct {
	Name string `help:"Name to register the repository under (defaults to the directory name)"`
	Path string `arg:"" optional:"" help:"Path inside the repository (defaults to the current directory)"`
}

// Run executes the add command
func (r *ReposAddCmd) Run(cli *CLI) error {
	path := r.Path
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		path = wd
	}

	repo, err := cli.Container.RepositoryService.Register(context.Background(), path, r.Name)
	if err != nil {
		return err
	}
	fmt.Printf("Registered %s (%s)\n", repo.Name, repo.Path)
	return nil
}

// ReposRemoveCmd unregisters a repository
type ReposRemoveCmd struct {
	Repo string `arg:"" help:"Name, alias or path of the repository"`
}

// Run executes the remove command
func (r *ReposRemoveCmd) Run(cli *CLI) error {
	if err := cli.Container.RepositoryService.Remove(context.Background(), r.Repo); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", r.Repo)
	return nil
}

// ReposAliasCmd adds an alias
type ReposAliasCmd struct {
	Repo  string `arg:"" help:"Name, alias or path of the repository"`
	Alias string `arg:"" help:"Alias to add"`
}

// Run executes the alias command
func (r *ReposAliasCmd) Run(cli *CLI) error {
	if err := cli.Container.RepositoryService.Alias(context.Background(), r.Repo, r.Alias); err != nil {
		return err
	}
	fmt.Printf("Added alias %s for %s\n", r.Alias, r.Repo)
	return nil
}

// ReposUseCmd switches the current repository
type ReposUseCmd struct {
	Repo string `arg:"" help:"Name, alias or path of the repository"`
}

// Run executes the use command
func (r *ReposUseCmd) Run(cli *CLI) error {
	repo, err := cli.Container.RepositoryService.Use(context.Background(), r.Repo)
	if err != nil {
		return err
	}
	fmt.Printf("Switched to %s (%s)\n", repo.Name, repo.Path)
	return nil
}

// ReposCurrentCmd prints the current repository
type ReposCurrentCmd struct{}

// Run executes the current command
func (r *ReposCurrentCmd) Run(cli *CLI) error {
	repo, err := cli.Container.RepositoryService.Current(context.Background())
	if err != nil {
		return err
	}
	printRepository(repo)
	return nil
}

func printRepository(repo *domain.Repository) {
	fmt.Printf("Name:    %s\n", repo.Name)
	fmt.Printf("Path:    %s\n", repo.Path)
	if repo.RemoteURL != "" {
		fmt.Printf("Remote:  %s\n", repo.RemoteURL)
	}
	if len(repo.Aliases) > 0 {
		fmt.Printf("Aliases: %s\n", strings.Join(repo.Aliases, ", "))
	}
}

// ReposCleanupCmd removes stale entries
type ReposCleanupCmd struct{}

// Run executes the cleanup command
func (r *ReposCleanupCmd) Run(cli *CLI) error {
	removed, err := cli.Container.RepositoryService.Cleanup(context.Background())
	for _, name := range removed {
		fmt.Printf("Removed %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(removed) == 0 {
		fmt.Println("Nothing to clean up.")
	}
	return nil
}
