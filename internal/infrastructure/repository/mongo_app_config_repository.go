package repository

import (
	"context"
	"fmt"
	"time"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/mongodb"
	"saleor-apps-core/internal/infrastructure/repository/entity"
	"saleor-apps-core/internal/ports"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	StripeConfigsCollection         = "stripe_configs"
	ChannelConfigMappingsCollection = "channel_config_mappings"
)

// MongoAppConfigRepository implements AppConfigRepository using MongoDB.
// Configs and channel mappings live in two collections, both keyed by installation.
type MongoAppConfigRepository struct {
	configs   *mongodb.Collection
	mappings  *mongodb.Collection
	encryptor ports.EncryptionService
	logger    zerolog.Logger
}

// NewMongoAppConfigRepository creates a new MongoDB config repository
func NewMongoAppConfigRepository(conn *mongodb.Connector, encryptor ports.EncryptionService, logger zerolog.Logger) ports.AppConfigRepository {
	return &MongoAppConfigRepository{
		configs: conn.NewCollection(StripeConfigsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "saleorApiUrl", Value: 1}, {Key: "appId", Value: 1}, {Key: "configId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}),
		mappings: conn.NewCollection(ChannelConfigMappingsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "saleorApiUrl", Value: 1}, {Key: "appId", Value: 1}, {Key: "channelId", Value: 1}},
			Options: options.Index().SetUnique(true),
		}),
		encryptor: encryptor,
		logger:    logger.With().Str("repository", "mongodb").Logger(),
	}
}

func scopeFilter(scope domain.InstallationScope) bson.M {
	return bson.M{"saleorApiUrl": scope.SaleorAPIURL, "appId": scope.AppID}
}

// SaveStripeConfig replaces the stored config, inserting it if absent
func (r *MongoAppConfigRepository) SaveStripeConfig(ctx context.Context, scope domain.InstallationScope, config *domain.StripeConfig) error {
	if err := validateConfigWrite(scope, config); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}
	coll, err := r.configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	sealed, err := sealStripeConfig(r.encryptor, config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}
	doc := entity.MongoStripeConfigDocFromDomain(scope, sealed)
	doc.UpdatedAt = time.Now()

	filter := scopeFilter(scope)
	filter["configId"] = config.ID
	opts := options.Replace().SetUpsert(true)

	if _, err := coll.ReplaceOne(ctx, filter, doc, opts); err != nil {
		r.logger.Error().Err(err).Str("configId", config.ID).Msg("Failed to save config")
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("configId", config.ID).
		Msg("Saved config")
	return nil
}

// GetStripeConfig retrieves a config by id or through the channel mapping
func (r *MongoAppConfigRepository) GetStripeConfig(ctx context.Context, access domain.StripeConfigAccess) (*domain.StripeConfig, error) {
	if err := access.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}

	configID := access.ConfigID
	if access.ChannelID != "" {
		mappings, err := r.mappings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
		}

		var mapping entity.MongoChannelMappingDoc
		filter := scopeFilter(access.InstallationScope)
		filter["channelId"] = access.ChannelID
		err = mappings.FindOne(ctx, filter).Decode(&mapping)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get channel mapping: %w", domain.ErrFailedFetchingConfig, err)
		}
		if mapping.ConfigID == "" {
			return nil, nil
		}
		configID = mapping.ConfigID
	}

	coll, err := r.configs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}

	var doc entity.MongoStripeConfigDoc
	filter := scopeFilter(access.InstallationScope)
	filter["configId"] = configID
	err = coll.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get config: %w", domain.ErrFailedFetchingConfig, err)
	}

	config, err := openStripeConfig(r.encryptor, doc.ToDomain())
	if err != nil {
		r.logger.Error().Err(err).Str("configId", configID).Msg("Failed to decrypt config")
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	return config, nil
}

// GetRootConfig retrieves every config and channel mapping of the installation
func (r *MongoAppConfigRepository) GetRootConfig(ctx context.Context, scope domain.InstallationScope) (*domain.AppRootConfig, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	configsColl, err := r.configs.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	mappingsColl, err := r.mappings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}

	var configDocs []entity.MongoStripeConfigDoc
	if err := findAll(ctx, configsColl, scopeFilter(scope), &configDocs); err != nil {
		return nil, fmt.Errorf("%w: failed to list configs: %w", domain.ErrFailedFetchingConfig, err)
	}
	var mappingDocs []entity.MongoChannelMappingDoc
	if err := findAll(ctx, mappingsColl, scopeFilter(scope), &mappingDocs); err != nil {
		return nil, fmt.Errorf("%w: failed to list channel mappings: %w", domain.ErrFailedFetchingConfig, err)
	}

	configs := make(map[string]*domain.StripeConfig, len(configDocs))
	for i := range configDocs {
		config, err := openStripeConfig(r.encryptor, configDocs[i].ToDomain())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
		}
		configs[config.ID] = config
	}

	mapping := make(map[string]string, len(mappingDocs))
	for _, doc := range mappingDocs {
		if doc.ConfigID != "" {
			mapping[doc.ChannelID] = doc.ConfigID
		}
	}

	return domain.NewAppRootConfig(mapping, configs), nil
}

// RemoveConfig deletes a config. Channel mappings pointing at it are kept and resolve to nothing.
func (r *MongoAppConfigRepository) RemoveConfig(ctx context.Context, scope domain.InstallationScope, configID string) error {
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedRemovingConfig, err)
	}
	coll, err := r.configs.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedRemovingConfig, err)
	}

	filter := scopeFilter(scope)
	filter["configId"] = configID
	if _, err := coll.DeleteOne(ctx, filter); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedRemovingConfig, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("configId", configID).
		Msg("Removed config")
	return nil
}

// UpdateMapping assigns a config to a channel, or unassigns it when configID is nil
func (r *MongoAppConfigRepository) UpdateMapping(ctx context.Context, scope domain.InstallationScope, channelID string, configID *string) error {
	if err := validateMappingWrite(scope, channelID, configID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}
	coll, err := r.mappings.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	doc := entity.MongoChannelMappingDoc{
		SaleorAPIURL: scope.SaleorAPIURL,
		AppID:        scope.AppID,
		ChannelID:    channelID,
		UpdatedAt:    time.Now(),
	}
	if configID != nil {
		doc.ConfigID = *configID
	}

	filter := scopeFilter(scope)
	filter["channelId"] = channelID
	opts := options.Replace().SetUpsert(true)

	if _, err := coll.ReplaceOne(ctx, filter, doc, opts); err != nil {
		r.logger.Error().Err(err).Str("channelId", channelID).Msg("Failed to update mapping")
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("channelId", channelID).
		Str("configId", doc.ConfigID).
		Msg("Updated mapping")
	return nil
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, out *[]T) error {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			return fmt.Errorf("failed to decode document: %w", err)
		}
		*out = append(*out, doc)
	}
	return cursor.Err()
}
