package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitsmart/internal/config"
	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// SQLiteRepository implements ports.RepositoryRegistry using GORM
type SQLiteRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Verify interface compliance at compile time
var _ ports.RepositoryRegistry = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the registry database at dbPath
func NewSQLiteRepository(dbPath string, log *slog.Logger) (*SQLiteRepository, error) {
	log = logging.OrDiscard(log)
	dbPath = config.ExpandPath(dbPath)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// Foreign keys are a per-connection setting, so pass them in the DSN
	dsn := dbPath + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt: false,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      newGormLogger(log, os.Getenv(logging.EnvDebug) == "1"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for concurrent access from the companion server
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA synchronous=NORMAL")

	if err := db.AutoMigrate(&RepositoryModel{}, &SettingModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if !db.Migrator().HasTable(&RepositoryAliasModel{}) {
		if err := db.Exec(`
			CREATE TABLE IF NOT EXISTS repository_aliases (
				alias TEXT PRIMARY KEY,
				repository_name TEXT NOT NULL,
				created_at DATETIME,
				FOREIGN KEY (repository_name) REFERENCES repositories(name) ON UPDATE CASCADE ON DELETE CASCADE
			)
		`).Error; err != nil {
			return nil, fmt.Errorf("failed to create repository_aliases table: %w", err)
		}
		if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_repository_aliases_repository_name ON repository_aliases(repository_name)`).Error; err != nil {
			return nil, fmt.Errorf("failed to index repository_aliases: %w", err)
		}
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(0)

	log.Debug("Registry database opened", "path", dbPath)
	return &SQLiteRepository{db: db, logger: log}, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// resolve finds a repository by name or alias inside tx
func resolve(tx *gorm.DB, identifier string) (RepositoryModel, error) {
	var repo RepositoryModel
	err := tx.Where("name = ?", identifier).First(&repo).Error
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return repo, err
	}

	var alias RepositoryAliasModel
	if err := tx.Where("alias = ?", identifier).First(&alias).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo, fmt.Errorf("%s: %w", identifier, domain.ErrRepositoryNotFound)
		}
		return repo, err
	}

	if err := tx.Where("name = ?", alias.RepositoryName).First(&repo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repo, fmt.Errorf("%s: %w", identifier, domain.ErrRepositoryNotFound)
		}
		return repo, err
	}
	return repo, nil
}

func aliasesFor(tx *gorm.DB, names ...string) (map[string][]string, error) {
	var aliases []RepositoryAliasModel
	if err := tx.Where("repository_name IN ?", names).Order("alias ASC").Find(&aliases).Error; err != nil {
		return nil, fmt.Errorf("failed to load aliases: %w", err)
	}
	byRepo := make(map[string][]string, len(names))
	for _, a := range aliases {
		byRepo[a.RepositoryName] = append(byRepo[a.RepositoryName], a.Alias)
	}
	return byRepo, nil
}

// identifierTaken reports whether name is already a repository name or alias
func identifierTaken(tx *gorm.DB, name string) (bool, error) {
	var count int64
	if err := tx.Model(&RepositoryModel{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}
	if err := tx.Model(&RepositoryAliasModel{}).Where("alias = ?", name).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get implements RepositoryReader.Get (by name or alias)
func (r *SQLiteRepository) Get(ctx context.Context, identifier string) (*domain.Repository, error) {
	var result domain.Repository

	err := withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo, err := resolve(tx, identifier)
			if err != nil {
				return err
			}
			aliases, err := aliasesFor(tx, repo.Name)
			if err != nil {
				return err
			}
			result = repositoryModelToDomain(repo, aliases[repo.Name])
			return nil
		})
	}, 3)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetByPath implements RepositoryReader.GetByPath
func (r *SQLiteRepository) GetByPath(ctx context.Context, path string) (*domain.Repository, error) {
	var result domain.Repository

	err := withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var repo RepositoryModel
			if err := tx.Where("path = ?", filepath.Clean(path)).First(&repo).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%s: %w", path, domain.ErrRepositoryNotFound)
				}
				return err
			}
			aliases, err := aliasesFor(tx, repo.Name)
			if err != nil {
				return err
			}
			result = repositoryModelToDomain(repo, aliases[repo.Name])
			return nil
		})
	}, 3)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Current implements RepositoryReader.Current
func (r *SQLiteRepository) Current(ctx context.Context) (*domain.Repository, error) {
	var result domain.Repository

	err := withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var repo RepositoryModel
			if err := tx.Where("is_current = ?", true).First(&repo).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("no current repository: %w", domain.ErrRepositoryNotFound)
				}
				return err
			}
			aliases, err := aliasesFor(tx, repo.Name)
			if err != nil {
				return err
			}
			result = repositoryModelToDomain(repo, aliases[repo.Name])
			return nil
		})
	}, 3)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// List implements RepositoryReader.List, most recently accessed first
func (r *SQLiteRepository) List(ctx context.Context) ([]domain.Repository, error) {
	var repos []RepositoryModel
	var aliases map[string][]string

	err := withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Order("last_accessed DESC, name ASC").Find(&repos).Error; err != nil {
				return fmt.Errorf("failed to load repositories: %w", err)
			}
			names := make([]string, len(repos))
			for i, repo := range repos {
				names[i] = repo.Name
			}
			var err error
			aliases, err = aliasesFor(tx, names...)
			return err
		})
	}, 3)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Repository, 0, len(repos))
	for _, repo := range repos {
		result = append(result, repositoryModelToDomain(repo, aliases[repo.Name]))
	}
	return result, nil
}

// Add implements RepositoryWriter.Add
func (r *SQLiteRepository) Add(ctx context.Context, repo domain.Repository) error {
	repo.Path = filepath.Clean(repo.Path)
	if repo.LastAccessed.IsZero() {
		repo.LastAccessed = time.Now().UTC()
	}

	err := withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			taken, err := identifierTaken(tx, repo.Name)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%s: %w", repo.Name, domain.ErrRepositoryExists)
			}

			var count int64
			if err := tx.Model(&RepositoryModel{}).Where("path = ?", repo.Path).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return fmt.Errorf("%s: %w", repo.Path, domain.ErrRepositoryExists)
			}

			if repo.IsCurrent {
				if err := tx.Model(&RepositoryModel{}).Where("is_current = ?", true).Update("is_current", false).Error; err != nil {
					return err
				}
			}

			model := domainToRepositoryModel(repo)
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("failed to add repository %s: %w", repo.Name, err)
			}

			for _, alias := range repo.Aliases {
				if err := addAlias(tx, repo.Name, alias); err != nil {
					return err
				}
			}
			return nil
		})
	}, 3)
	if err != nil {
		return err
	}

	r.logger.Info("Repository registered", "name", repo.Name, "path", repo.Path)
	return nil
}

func addAlias(tx *gorm.DB, repoName, alias string) error {
	taken, err := identifierTaken(tx, alias)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%s: %w", alias, domain.ErrAliasTaken)
	}
	model := RepositoryAliasModel{Alias: alias, RepositoryName: repoName}
	if err := tx.Create(&model).Error; err != nil {
		return fmt.Errorf("failed to add alias %s: %w", alias, err)
	}
	return nil
}

// AddAlias implements RepositoryWriter.AddAlias
func (r *SQLiteRepository) AddAlias(ctx context.Context, identifier, alias string) error {
	return withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo, err := resolve(tx, identifier)
			if err != nil {
				return err
			}
			return addAlias(tx, repo.Name, alias)
		})
	}, 3)
}

// Remove implements RepositoryWriter.Remove
func (r *SQLiteRepository) Remove(ctx context.Context, identifier string) error {
	return withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo, err := resolve(tx, identifier)
			if err != nil {
				return err
			}
			if err := tx.Where("repository_name = ?", repo.Name).Delete(&RepositoryAliasModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete aliases of %s: %w", repo.Name, err)
			}
			if err := tx.Where("name = ?", repo.Name).Delete(&RepositoryModel{}).Error; err != nil {
				return fmt.Errorf("failed to delete repository %s: %w", repo.Name, err)
			}
			r.logger.Info("Repository removed", "name", repo.Name)
			return nil
		})
	}, 3)
}

// SetCurrent implements RepositoryWriter.SetCurrent
func (r *SQLiteRepository) SetCurrent(ctx context.Context, identifier string) error {
	return withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo, err := resolve(tx, identifier)
			if err != nil {
				return err
			}
			if err := tx.Model(&RepositoryModel{}).Where("is_current = ?", true).Update("is_current", false).Error; err != nil {
				return err
			}
			return tx.Model(&RepositoryModel{}).Where("name = ?", repo.Name).Updates(map[string]any{
				"is_current":    true,
				"last_accessed": time.Now().UTC(),
			}).Error
		})
	}, 3)
}

// Touch implements RepositoryWriter.Touch
func (r *SQLiteRepository) Touch(ctx context.Context, identifier string) error {
	return withRetry(func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo, err := resolve(tx, identifier)
			if err != nil {
				return err
			}
			return tx.Model(&RepositoryModel{}).Where("name = ?", repo.Name).Update("last_accessed", time.Now().UTC()).Error
		})
	}, 3)
}

// GetSetting implements SettingsStore.GetSetting. Missing keys return "".
func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var setting SettingModel
	err := withRetry(func() error {
		return r.db.WithContext(ctx).Where("name = ?", key).First(&setting).Error
	}, 3)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return setting.Value, nil
}

// SetSetting implements SettingsStore.SetSetting
func (r *SQLiteRepository) SetSetting(ctx context.Context, key, value string) error {
	return withRetry(func() error {
		return r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&SettingModel{Name: key, Value: value}).Error
	}, 3)
}

// withRetry retries operations on SQLITE_BUSY with exponential backoff
func withRetry(fn func() error, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}

		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked) {
			time.Sleep(time.Millisecond * time.Duration(50*(i+1)))
			continue
		}

		return err
	}
	return fmt.Errorf("operation failed after %d retries", maxRetries)
}
