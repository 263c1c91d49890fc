package ports

import (
	"context"

	"gitsmart/internal/domain"
)

// RepositoryReader looks up registered repositories
type RepositoryReader interface {
	Current(ctx context.Context) (*domain.Repository, error)
	Get(ctx context.Context, identifier string) (*domain.Repository, error)
	GetByPath(ctx context.Context, path string) (*domain.Repository, error)
	List(ctx context.Context) ([]domain.Repository, error)
}

// RepositoryWriter registers and updates repositories
type RepositoryWriter interface {
	Add(ctx context.Context, repo domain.Repository) error
	AddAlias(ctx context.Context, identifier, alias string) error
	Remove(ctx context.Context, identifier string) error
	SetCurrent(ctx context.Context, identifier string) error
	Touch(ctx context.Context, identifier string) error
}

// SettingsStore persists small key/value preferences such as the last used model
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// RepositoryRegistry is the composite interface
type RepositoryRegistry interface {
	RepositoryReader
	RepositoryWriter
	SettingsStore
	Close() error
}
