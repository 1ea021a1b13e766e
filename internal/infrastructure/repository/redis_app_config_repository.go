package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/redisdb"
	"saleor-apps-core/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type redisStripeConfigRecord struct {
	ConfigID       string `json:"configId"`
	ConfigName     string `json:"configName"`
	StripePk       string `json:"stripePk"`
	StripeRk       string `json:"stripeRk"`
	StripeWhID     string `json:"stripeWhId"`
	StripeWhSecret string `json:"stripeWhSecret"`
}

func (r *redisStripeConfigRecord) sealedConfig() *domain.StripeConfig {
	return &domain.StripeConfig{
		ID:             r.ConfigID,
		Name:           r.ConfigName,
		PublishableKey: r.StripePk,
		RestrictedKey:  r.StripeRk,
		WebhookID:      r.StripeWhID,
		WebhookSecret:  r.StripeWhSecret,
	}
}

// RedisAppConfigRepository implements AppConfigRepository with two hashes per installation:
// <prefix>:<url>#<appId>:configs (configId -> JSON) and <prefix>:<url>#<appId>:channels (channelId -> configId).
type RedisAppConfigRepository struct {
	conn      *redisdb.Connector
	encryptor ports.EncryptionService
	logger    zerolog.Logger
}

// NewRedisAppConfigRepository creates a new Redis config repository
func NewRedisAppConfigRepository(conn *redisdb.Connector, encryptor ports.EncryptionService, logger zerolog.Logger) ports.AppConfigRepository {
	return &RedisAppConfigRepository{
		conn:      conn,
		encryptor: encryptor,
		logger:    logger.With().Str("repository", "redis").Logger(),
	}
}

func installationKey(scope domain.InstallationScope) string {
	return scope.SaleorAPIURL + "#" + scope.AppID
}

func (r *RedisAppConfigRepository) configsKey(scope domain.InstallationScope) string {
	return r.conn.Key(installationKey(scope), "configs")
}

func (r *RedisAppConfigRepository) channelsKey(scope domain.InstallationScope) string {
	return r.conn.Key(installationKey(scope), "channels")
}

// SaveStripeConfig saves or updates a config
func (r *RedisAppConfigRepository) SaveStripeConfig(ctx context.Context, scope domain.InstallationScope, config *domain.StripeConfig) error {
	if err := validateConfigWrite(scope, config); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}
	client, err := r.conn.Client(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	sealed, err := sealStripeConfig(r.encryptor, config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}
	raw, err := json.Marshal(redisStripeConfigRecord{
		ConfigID:       sealed.ID,
		ConfigName:     sealed.Name,
		StripePk:       sealed.PublishableKey,
		StripeRk:       sealed.RestrictedKey,
		StripeWhID:     sealed.WebhookID,
		StripeWhSecret: sealed.WebhookSecret,
	})
	if err != nil {
		return fmt.Errorf("%w: failed to encode config: %w", domain.ErrFailedSavingConfig, err)
	}

	if err := client.HSet(ctx, r.configsKey(scope), config.ID, raw).Err(); err != nil {
		r.logger.Error().Err(err).Str("configId", config.ID).Msg("Failed to save config")
		return fmt.Errorf("%w: %w: %w", domain.ErrFailedSavingConfig, domain.ErrConnection, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("configId", config.ID).
		Msg("Saved config")
	return nil
}

// GetStripeConfig retrieves a config by id or through the channel mapping
func (r *RedisAppConfigRepository) GetStripeConfig(ctx context.Context, access domain.StripeConfigAccess) (*domain.StripeConfig, error) {
	if err := access.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	client, err := r.conn.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}

	configID := access.ConfigID
	if access.ChannelID != "" {
		mapped, err := client.HGet(ctx, r.channelsKey(access.InstallationScope), access.ChannelID).Result()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w: %w", domain.ErrFailedFetchingConfig, domain.ErrConnection, err)
		}
		configID = mapped
	}

	raw, err := client.HGet(ctx, r.configsKey(access.InstallationScope), configID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrFailedFetchingConfig, domain.ErrConnection, err)
	}

	config, err := r.decode(raw)
	if err != nil {
		r.logger.Error().Err(err).Str("configId", configID).Msg("Failed to decode config")
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	return config, nil
}

func (r *RedisAppConfigRepository) decode(raw []byte) (*domain.StripeConfig, error) {
	var record redisStripeConfigRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return openStripeConfig(r.encryptor, record.sealedConfig())
}

// GetRootConfig reads both hashes of the installation
func (r *RedisAppConfigRepository) GetRootConfig(ctx context.Context, scope domain.InstallationScope) (*domain.AppRootConfig, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	client, err := r.conn.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}

	rawConfigs, err := client.HGetAll(ctx, r.configsKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrFailedFetchingConfig, domain.ErrConnection, err)
	}
	mapping, err := client.HGetAll(ctx, r.channelsKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrFailedFetchingConfig, domain.ErrConnection, err)
	}

	configs := make(map[string]*domain.StripeConfig, len(rawConfigs))
	for id, raw := range rawConfigs {
		config, err := r.decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
		}
		configs[id] = config
	}

	return domain.NewAppRootConfig(mapping, configs), nil
}

// RemoveConfig deletes a config. Mappings pointing at it are kept.
func (r *RedisAppConfigRepository) RemoveConfig(ctx context.Context, scope domain.InstallationScope, configID string) error {
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedRemovingConfig, err)
	}
	client, err := r.conn.Client(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedRemovingConfig, err)
	}

	if err := client.HDel(ctx, r.configsKey(scope), configID).Err(); err != nil {
		return fmt.Errorf("%w: %w: %w", domain.ErrFailedRemovingConfig, domain.ErrConnection, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("configId", configID).
		Msg("Removed config")
	return nil
}

// UpdateMapping sets the channel's config, or removes the field when configID is nil
func (r *RedisAppConfigRepository) UpdateMapping(ctx context.Context, scope domain.InstallationScope, channelID string, configID *string) error {
	if err := validateMappingWrite(scope, channelID, configID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}
	client, err := r.conn.Client(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	if configID == nil {
		err = client.HDel(ctx, r.channelsKey(scope), channelID).Err()
	} else {
		err = client.HSet(ctx, r.channelsKey(scope), channelID, *configID).Err()
	}
	if err != nil {
		r.logger.Error().Err(err).Str("channelId", channelID).Msg("Failed to update mapping")
		return fmt.Errorf("%w: %w: %w", domain.ErrFailedSavingConfig, domain.ErrConnection, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("channelId", channelID).
		Bool("unassigned", configID == nil).
		Msg("Updated mapping")
	return nil
}
