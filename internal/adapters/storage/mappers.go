package storage

import (
	"gitsmart/internal/domain"
)

// repositoryModelToDomain converts a RepositoryModel (GORM) to domain.Repository
func repositoryModelToDomain(m RepositoryModel, aliases []string) domain.Repository {
	return domain.Repository{
		Aliases:      aliases,
		IsCurrent:    m.IsCurrent,
		LastAccessed: m.LastAccessed,
		Name:         m.Name,
		Path:         m.Path,
		RemoteURL:    m.RemoteURL,
	}
}

// domainToRepositoryModel converts a domain.Repository to RepositoryModel (GORM)
func domainToRepositoryModel(r domain.Repository) RepositoryModel {
	return RepositoryModel{
		IsCurrent:    r.IsCurrent,
		LastAccessed: r.LastAccessed,
		Name:         r.Name,
		Path:         r.Path,
		RemoteURL:    r.RemoteURL,
	}
}
