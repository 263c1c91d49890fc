package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"gitsmart/internal/config"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

const lastModelKey = "last_model"

// SettingsService holds the model selection for the session
type SettingsService struct {
	endpoint config.APISettings
	logger   *slog.Logger
	store    ports.SettingsStore
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(store ports.SettingsStore, endpoint config.APISettings, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		endpoint: endpoint,
		logger:   logging.OrDiscard(logger),
		store:    store,
	}
}

// Models lists the selectable models, the configured default first
func (s *SettingsService) Models() []string {
	models := []string{s.endpoint.Model}
	for _, m := range s.endpoint.Models {
		if m != "" && !slices.Contains(models, m) {
			models = append(models, m)
		}
	}
	return models
}

// Model returns the last selected model when it is still offered, otherwise the configured one
func (s *SettingsService) Model(ctx context.Context) string {
	last, err := s.store.GetSetting(ctx, lastModelKey)
	if err != nil {
		s.logger.Warn("Failed to read last model", "error", err)
		return s.endpoint.Model
	}
	if last != "" && (len(s.endpoint.Models) == 0 || slices.Contains(s.Models(), last)) {
		return last
	}
	return s.endpoint.Model
}

// SetModel persists the selected model
func (s *SettingsService) SetModel(ctx context.Context, model string) error {
	if err := s.store.SetSetting(ctx, lastModelKey, model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	s.logger.Info("Model selected", "model", model)
	return nil
}
