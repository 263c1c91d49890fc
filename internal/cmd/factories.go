package cmd

import (
	"context"
	"log/slog"

	adaptergit "gitsmart/internal/adapters/git"
	adapterllm "gitsmart/internal/adapters/llm"
	adapterprocess "gitsmart/internal/adapters/process"
	adapterstorage "gitsmart/internal/adapters/storage"
	"gitsmart/internal/config"
	"gitsmart/internal/logging"
	"gitsmart/internal/operations"
	"gitsmart/internal/ports"
	"gitsmart/internal/server"
	"gitsmart/internal/services"
)

// Container holds all dependencies for the application
type Container struct {
	// Services
	CommitService     *services.CommitService
	GitService        *services.GitService
	RepositoryService *services.RepositoryService
	SettingsService   *services.SettingsService

	// Coordinator is shared by the interactive session and an in-process server
	Coordinator *operations.Coordinator
	Logger      *slog.Logger

	// Internal - for cleanup only
	registry ports.RepositoryRegistry
}

// NewContainer creates a new Container with all dependencies wired
func NewContainer(settings *config.Settings, logger *slog.Logger) (*Container, error) {
	logger = logging.OrDiscard(logger)

	registry, err := adapterstorage.NewSQLiteRepository(config.GetDBPath(), logger)
	if err != nil {
		return nil, err
	}

	endpoint := settings.Endpoint()
	gitRepo := adaptergit.NewCLIRepository(logger)
	history := adaptergit.NewHistoryRepository(logger)
	llmClient := adapterllm.NewClient(endpoint.APIURL, endpoint.AuthToken, logger)

	return &Container{
		CommitService: services.NewCommitService(llmClient, services.CommitOptions{
			MaxTokens:   *endpoint.MaxTokens,
			Temperature: *endpoint.Temperature,
			UseEmojis:   settings.UseEmojis(),
		}, logger),
		Coordinator:       operations.NewCoordinator(logger),
		GitService:        services.NewGitService(gitRepo, history, "", logger),
		Logger:            logger,
		RepositoryService: services.NewRepositoryService(registry, history, logger),
		SettingsService:   services.NewSettingsService(registry, endpoint, logger),
		registry:          registry,
	}, nil
}

// Handlers builds the remote operation handlers on the shared coordinator
func (c *Container) Handlers() *server.Handlers {
	return server.NewHandlers(server.HandlerDeps{
		Committer: c.CommitService,
		GitFor:    func(repoPath string) server.Git { return c.GitService.WithPath(repoPath) },
		Logger:    c.Logger,
		Model:     c.SettingsService.Model,
		Registry:  c.RepositoryService,
		Tracker:   c.Coordinator,
	})
}

// CompanionServer builds the server with its single-instance lock
func (c *Container) CompanionServer(opts server.Options) (*server.Server, error) {
	opts.Logger = c.Logger
	if opts.HostKeyPath == "" {
		opts.HostKeyPath = config.GetHostKeyPath()
	}
	lock := adapterprocess.NewFileLock(config.GetServerLockPath(), c.Logger)
	return server.New(c.Handlers(), lock, opts)
}

// CurrentRepository resolves the repository for dir, or the named one when given
func (c *Container) CurrentRepository(ctx context.Context, dir, name string) (*services.GitService, string, error) {
	if name != "" {
		repo, err := c.RepositoryService.Resolve(ctx, name)
		if err != nil {
			return nil, "", err
		}
		return c.GitService.WithPath(repo.Path), repo.Name, nil
	}
	repo, err := c.RepositoryService.ForWorkingDirectory(ctx, dir)
	if err != nil {
		return nil, "", err
	}
	return c.GitService.WithPath(repo.Path), repo.Name, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.registry != nil {
		return c.registry.Close()
	}
	return nil
}
