package application

import (
	"context"
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConfigService manages per-installation payment configs and the channel mapping
type ConfigService struct {
	configRepo ports.AppConfigRepository
	logger     zerolog.Logger
}

// NewConfigService creates a new config service
func NewConfigService(configRepo ports.AppConfigRepository, logger zerolog.Logger) *ConfigService {
	return &ConfigService{
		configRepo: configRepo,
		logger:     logger,
	}
}

// CreateConfigInput represents the input for a new config
type CreateConfigInput struct {
	Name           string `json:"name"`
	PublishableKey string `json:"publishableKey"`
	RestrictedKey  string `json:"restrictedKey"`
	WebhookID      string `json:"webhookId"`
	WebhookSecret  string `json:"webhookSecret"`
}

// CreateConfig validates and saves a config under a fresh id
func (s *ConfigService) CreateConfig(ctx context.Context, scope domain.InstallationScope, input CreateConfigInput) (*domain.StripeConfig, error) {
	config, err := domain.NewStripeConfig(
		uuid.NewString(),
		input.Name,
		input.PublishableKey,
		input.RestrictedKey,
		input.WebhookID,
		input.WebhookSecret,
	)
	if err != nil {
		return nil, err
	}

	if err := s.configRepo.SaveStripeConfig(ctx, scope, config); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("configId", config.ID).
		Msg("Config created")
	return config, nil
}

// GetRootConfig returns all configs and the channel mapping
func (s *ConfigService) GetRootConfig(ctx context.Context, scope domain.InstallationScope) (*domain.AppRootConfig, error) {
	return s.configRepo.GetRootConfig(ctx, scope)
}

// GetConfigForChannel resolves a channel to its config, or nil when none is mapped
func (s *ConfigService) GetConfigForChannel(ctx context.Context, scope domain.InstallationScope, channelID string) (*domain.StripeConfig, error) {
	return s.configRepo.GetStripeConfig(ctx, domain.ByChannelID(scope, channelID))
}

// RemoveConfig deletes a config. Channels mapped to it resolve to nil afterwards.
func (s *ConfigService) RemoveConfig(ctx context.Context, scope domain.InstallationScope, configID string) error {
	if err := s.configRepo.RemoveConfig(ctx, scope, configID); err != nil {
		return err
	}

	s.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("configId", configID).
		Msg("Config removed")
	return nil
}

// MapChannel points a channel at an existing config, or clears it when configID is nil
func (s *ConfigService) MapChannel(ctx context.Context, scope domain.InstallationScope, channelID string, configID *string) error {
	if configID != nil {
		existing, err := s.configRepo.GetStripeConfig(ctx, domain.ByConfigID(scope, *configID))
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, *configID)
		}
	}

	if err := s.configRepo.UpdateMapping(ctx, scope, channelID, configID); err != nil {
		return err
	}

	event := s.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("channelId", channelID)
	if configID != nil {
		event = event.Str("configId", *configID)
	}
	event.Msg("Channel mapping updated")
	return nil
}
