package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/dynamo"
	"saleor-apps-core/internal/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

const (
	configSortKeyPrefix  = "CONFIG_ID#"
	channelSortKeyPrefix = "CHANNEL_ID#"
)

type dynamoStripeConfigItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	ConfigID       string `dynamodbav:"configId"`
	ConfigName     string `dynamodbav:"configName"`
	StripePk       string `dynamodbav:"stripePk"`
	StripeRk       string `dynamodbav:"stripeRk"`
	StripeWhID     string `dynamodbav:"stripeWhId"`
	StripeWhSecret string `dynamodbav:"stripeWhSecret"`
	ModifiedAt     string `dynamodbav:"modifiedAt"`
}

func (i *dynamoStripeConfigItem) sealedConfig() *domain.StripeConfig {
	return &domain.StripeConfig{
		ID:             i.ConfigID,
		Name:           i.ConfigName,
		PublishableKey: i.StripePk,
		RestrictedKey:  i.StripeRk,
		WebhookID:      i.StripeWhID,
		WebhookSecret:  i.StripeWhSecret,
	}
}

type dynamoChannelMappingItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	ChannelID  string `dynamodbav:"channelId"`
	ConfigID   string `dynamodbav:"configId,omitempty"`
	ModifiedAt string `dynamodbav:"modifiedAt"`
}

// DynamoAppConfigRepository implements AppConfigRepository on the main table.
// PK is saleorApiUrl#appId; configs use SK CONFIG_ID#<id>, mappings CHANNEL_ID#<id>.
type DynamoAppConfigRepository struct {
	table     *dynamo.MainTable
	encryptor ports.EncryptionService
	logger    zerolog.Logger
}

// NewDynamoAppConfigRepository creates a new DynamoDB config repository
func NewDynamoAppConfigRepository(table *dynamo.MainTable, encryptor ports.EncryptionService, logger zerolog.Logger) ports.AppConfigRepository {
	return &DynamoAppConfigRepository{
		table:     table,
		encryptor: encryptor,
		logger:    logger.With().Str("repository", "dynamodb").Logger(),
	}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// SaveStripeConfig saves or updates a config
func (r *DynamoAppConfigRepository) SaveStripeConfig(ctx context.Context, scope domain.InstallationScope, config *domain.StripeConfig) error {
	if err := validateConfigWrite(scope, config); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}
	sealed, err := sealStripeConfig(r.encryptor, config)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	item, err := attributevalue.MarshalMap(dynamoStripeConfigItem{
		PK:             dynamo.PrimaryKeyScopedToInstallation(scope),
		SK:             configSortKeyPrefix + config.ID,
		ConfigID:       sealed.ID,
		ConfigName:     sealed.Name,
		StripePk:       sealed.PublishableKey,
		StripeRk:       sealed.RestrictedKey,
		StripeWhID:     sealed.WebhookID,
		StripeWhSecret: sealed.WebhookSecret,
		ModifiedAt:     now(),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to encode config: %w", domain.ErrFailedSavingConfig, err)
	}
	if err := r.put(ctx, item); err != nil {
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
func (r *DynamoAppConfigRepository) GetStripeConfig(ctx context.Context, access domain.StripeConfigAccess) (*domain.StripeConfig, error) {
	if err := access.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	pk := dynamo.PrimaryKeyScopedToInstallation(access.InstallationScope)

	configID := access.ConfigID
	if access.ChannelID != "" {
		raw, err := r.get(ctx, pk, channelSortKeyPrefix+access.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to get channel mapping: %w", domain.ErrFailedFetchingConfig, err)
		}
		if raw == nil {
			return nil, nil
		}
		var mapping dynamoChannelMappingItem
		if err := attributevalue.UnmarshalMap(raw, &mapping); err != nil {
			return nil, fmt.Errorf("%w: failed to decode channel mapping: %w", domain.ErrFailedFetchingConfig, err)
		}
		if mapping.ConfigID == "" {
			return nil, nil
		}
		configID = mapping.ConfigID
	}

	raw, err := r.get(ctx, pk, configSortKeyPrefix+configID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get config: %w", domain.ErrFailedFetchingConfig, err)
	}
	if raw == nil {
		return nil, nil
	}
	var item dynamoStripeConfigItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %w", domain.ErrFailedFetchingConfig, err)
	}

	config, err := openStripeConfig(r.encryptor, item.sealedConfig())
	if err != nil {
		r.logger.Error().Err(err).Str("configId", configID).Msg("Failed to decrypt config")
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	return config, nil
}

// GetRootConfig queries both item kinds of the installation partition
func (r *DynamoAppConfigRepository) GetRootConfig(ctx context.Context, scope domain.InstallationScope) (*domain.AppRootConfig, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	pk := dynamo.PrimaryKeyScopedToInstallation(scope)

	rawConfigs, err := r.table.QueryByPrefix(ctx, pk, configSortKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}
	rawMappings, err := r.table.QueryByPrefix(ctx, pk, channelSortKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
	}

	var configItems []dynamoStripeConfigItem
	if err := attributevalue.UnmarshalListOfMaps(rawConfigs, &configItems); err != nil {
		return nil, fmt.Errorf("%w: failed to decode configs: %w", domain.ErrFailedFetchingConfig, err)
	}
	var mappingItems []dynamoChannelMappingItem
	if err := attributevalue.UnmarshalListOfMaps(rawMappings, &mappingItems); err != nil {
		return nil, fmt.Errorf("%w: failed to decode channel mappings: %w", domain.ErrFailedFetchingConfig, err)
	}

	configs := make(map[string]*domain.StripeConfig, len(configItems))
	for i := range configItems {
		config, err := openStripeConfig(r.encryptor, configItems[i].sealedConfig())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingConfig, err)
		}
		configs[config.ID] = config
	}

	mapping := make(map[string]string, len(mappingItems))
	for _, item := range mappingItems {
		channelID := item.ChannelID
		if channelID == "" {
			channelID = strings.TrimPrefix(item.SK, channelSortKeyPrefix)
		}
		if item.ConfigID != "" {
			mapping[channelID] = item.ConfigID
		}
	}

	return domain.NewAppRootConfig(mapping, configs), nil
}

// RemoveConfig deletes a config item. Mappings pointing at it are kept.
func (r *DynamoAppConfigRepository) RemoveConfig(ctx context.Context, scope domain.InstallationScope, configID string) error {
	if err := scope.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedRemovingConfig, err)
	}
	client, err := r.table.Client(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedRemovingConfig, err)
	}

	if _, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.table.Name()),
		Key:       dynamo.Key(dynamo.PrimaryKeyScopedToInstallation(scope), configSortKeyPrefix+configID),
	}); err != nil {
		return fmt.Errorf("%w: %w: %w", domain.ErrFailedRemovingConfig, domain.ErrConnection, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("configId", configID).
		Msg("Removed config")
	return nil
}

// UpdateMapping writes the channel's mapping item. A nil configID keeps the item without a config.
func (r *DynamoAppConfigRepository) UpdateMapping(ctx context.Context, scope domain.InstallationScope, channelID string, configID *string) error {
	if err := validateMappingWrite(scope, channelID, configID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	mapping := dynamoChannelMappingItem{
		PK:         dynamo.PrimaryKeyScopedToInstallation(scope),
		SK:         channelSortKeyPrefix + channelID,
		ChannelID:  channelID,
		ModifiedAt: now(),
	}
	if configID != nil {
		mapping.ConfigID = *configID
	}

	item, err := attributevalue.MarshalMap(mapping)
	if err != nil {
		return fmt.Errorf("%w: failed to encode channel mapping: %w", domain.ErrFailedSavingConfig, err)
	}
	if err := r.put(ctx, item); err != nil {
		r.logger.Error().Err(err).Str("channelId", channelID).Msg("Failed to update mapping")
		return fmt.Errorf("%w: %w", domain.ErrFailedSavingConfig, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("channelId", channelID).
		Str("configId", mapping.ConfigID).
		Msg("Updated mapping")
	return nil
}

func (r *DynamoAppConfigRepository) get(ctx context.Context, pk, sk string) (map[string]types.AttributeValue, error) {
	return getItem(ctx, r.table, pk, sk)
}

func (r *DynamoAppConfigRepository) put(ctx context.Context, item map[string]types.AttributeValue) error {
	return putItem(ctx, r.table, item)
}

// getItem returns nil, nil when the item does not exist
func getItem(ctx context.Context, table *dynamo.MainTable, pk, sk string) (map[string]types.AttributeValue, error) {
	client, err := table.Client(ctx)
	if err != nil {
		return nil, err
	}
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table.Name()),
		Key:            dynamo.Key(pk, sk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	return out.Item, nil
}

func putItem(ctx context.Context, table *dynamo.MainTable, item map[string]types.AttributeValue) error {
	client, err := table.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table.Name()),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return nil
}
