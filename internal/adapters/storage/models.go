package storage

import "time"

// RepositoryModel is the GORM model for repositories table
type RepositoryModel struct {
	CreatedAt    time.Time
	IsCurrent    bool      `gorm:"not null;default:false;index:idx_is_current"`
	LastAccessed time.Time `gorm:"not null;index:idx_last_accessed"`
	Name         string    `gorm:"primaryKey"`
	Path         string    `gorm:"not null;uniqueIndex:idx_repository_path"`
	RemoteURL    string    `gorm:"default:''"`
	UpdatedAt    time.Time
}

// TableName specifies the table name for GORM
func (RepositoryModel) TableName() string { return "repositories" }

// RepositoryAliasModel is the GORM model for repository aliases
type RepositoryAliasModel struct {
	Alias          string `gorm:"primaryKey"`
	CreatedAt      time.Time
	RepositoryName string `gorm:"not null;index"`
}

// TableName specifies the table name for GORM
func (RepositoryAliasModel) TableName() string { return "repository_aliases" }

// SettingModel is the GORM model for key/value settings
type SettingModel struct {
	Name      string `gorm:"primaryKey"`
	UpdatedAt time.Time
	Value     string `gorm:"not null;default:''"`
}

// TableName specifies the table name for GORM
func (SettingModel) TableName() string { return "settings" }
