package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"gitsmart/internal/config"
	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// RepositoryService manages the registry of known working trees
type RepositoryService struct {
	locator  ports.RepoLocator
	logger   *slog.Logger
	registry ports.RepositoryRegistry
}

// NewRepositoryService creates a new RepositoryService
func NewRepositoryService(registry ports.RepositoryRegistry, locator ports.RepoLocator, logger *slog.Logger) *RepositoryService {
	return &RepositoryService{
		locator:  locator,
		logger:   logging.OrDiscard(logger),
		registry: registry,
	}
}

// Register records the repository containing path. An already registered
// working tree is returned as is; the first registration becomes current.
func (s *RepositoryService) Register(ctx context.Context, path, name string) (*domain.Repository, error) {
	abs, err := filepath.Abs(config.ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	root, err := s.locator.Discover(abs)
	if err != nil {
		return nil, err
	}

	existing, err := s.registry.GetByPath(ctx, root)
	if err == nil {
		s.logger.Debug("Repository already registered", "name", existing.Name, "path", root)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrRepositoryNotFound) {
		return nil, err
	}

	if name == "" {
		name = filepath.Base(root)
	}
	name = strings.TrimSpace(name)

	current, err := s.registry.Current(ctx)
	if err != nil && !errors.Is(err, domain.ErrRepositoryNotFound) {
		return nil, err
	}

	repo := domain.Repository{
		IsCurrent: current == nil,
		Name:      name,
		Path:      root,
		RemoteURL: s.locator.RemoteURL(root),
	}
	if err := s.registry.Add(ctx, repo); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", name, err)
	}

	s.logger.Info("Repository registered", "name", name, "path", root, "current", repo.IsCurrent)
	return s.registry.Get(ctx, name)
}

// Resolve finds a repository by name, alias or path. An empty identifier
// means the current repository.
func (s *RepositoryService) Resolve(ctx context.Context, identifier string) (*domain.Repository, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return s.registry.Current(ctx)
	}

	repo, err := s.registry.Get(ctx, identifier)
	if err == nil || !errors.Is(err, domain.ErrRepositoryNotFound) {
		return repo, err
	}

	abs, absErr := filepath.Abs(config.ExpandPath(identifier))
	if absErr != nil {
		return nil, err
	}
	if byPath, pathErr := s.registry.GetByPath(ctx, abs); pathErr == nil {
		return byPath, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrRepositoryNotFound, identifier)
}

// ForWorkingDirectory returns the repository containing dir, registering it
// when needed. Outside a repository the current registered one is used.
func (s *RepositoryService) ForWorkingDirectory(ctx context.Context, dir string) (*domain.Repository, error) {
	if _, err := s.locator.Discover(dir); err == nil {
		repo, err := s.Register(ctx, dir, "")
		if err != nil {
			return nil, err
		}
		s.touch(ctx, repo.Name)
		return repo, nil
	}

	repo, err := s.registry.Current(ctx)
	if errors.Is(err, domain.ErrRepositoryNotFound) {
		return nil, domain.ErrNotGitRepository
	}
	if err != nil {
		return nil, err
	}
	s.touch(ctx, repo.Name)
	return repo, nil
}

// List returns all registered repositories, most recently used first
func (s *RepositoryService) List(ctx context.Context) ([]domain.Repository, error) {
	return s.registry.List(ctx)
}

// Current returns the current repository
func (s *RepositoryService) Current(ctx context.Context) (*domain.Repository, error) {
	return s.registry.Current(ctx)
}

// Use makes identifier the current repository
func (s *RepositoryService) Use(ctx context.Context, identifier string) (*domain.Repository, error) {
	repo, err := s.Resolve(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if err := s.registry.SetCurrent(ctx, repo.Name); err != nil {
		return nil, fmt.Errorf("failed to switch repository: %w", err)
	}
	s.touch(ctx, repo.Name)
	s.logger.Info("Switched repository", "name", repo.Name)
	return s.registry.Get(ctx, repo.Name)
}

// Alias adds an alternative name for a repository
func (s *RepositoryService) Alias(ctx context.Context, identifier, alias string) error {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return errors.New("alias cannot be empty")
	}
	repo, err := s.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	return s.registry.AddAlias(ctx, repo.Name, alias)
}

// Remove unregisters a repository
func (s *RepositoryService) Remove(ctx context.Context, identifier string) error {
	repo, err := s.Resolve(ctx, identifier)
	if err != nil {
		return err
	}
	s.logger.Info("Removing repository", "name", repo.Name)
	return s.registry.Remove(ctx, repo.Name)
}

// Cleanup removes entries whose path is no longer a git repository and
// returns their names
func (s *RepositoryService) Cleanup(ctx context.Context) ([]string, error) {
	repos, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	var removed []string
	for _, repo := range repos {
		if _, err := s.locator.Discover(repo.Path); err == nil {
			continue
		}
		if err := s.registry.Remove(ctx, repo.Name); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", repo.Name, err)
		}
		s.logger.Info("Removed stale repository", "name", repo.Name, "path", repo.Path)
		removed = append(removed, repo.Name)
	}
	return removed, nil
}

func (s *RepositoryService) touch(ctx context.Context, name string) {
	if err := s.registry.Touch(ctx, name); err != nil {
		s.logger.Warn("Failed to update last access", "name", name, "error", err)
	}
}
