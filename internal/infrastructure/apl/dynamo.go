package apl

import (
	"context"
	"fmt"
	"time"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/dynamo"
	"saleor-apps-core/internal/ports"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
)

// AuthDataSortKey marks APL items in the main table
const AuthDataSortKey = "APL"

type dynamoAuthDataItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	SaleorAPIURL string `dynamodbav:"saleorApiUrl"`
	Token        string `dynamodbav:"token"`
	AppID        string `dynamodbav:"appId"`
	JWKS         string `dynamodbav:"jwks,omitempty"`
	UpdatedAt    string `dynamodbav:"updatedAt"`
}

func (i *dynamoAuthDataItem) toDomain() *domain.AuthData {
	return &domain.AuthData{
		SaleorAPIURL: i.SaleorAPIURL,
		Token:        i.Token,
		AppID:        i.AppID,
		JWKS:         i.JWKS,
	}
}

// DynamoAPL stores AuthData in the shared main table with PK = saleorApiUrl, SK = APL
type DynamoAPL struct {
	table  *dynamo.MainTable
	logger zerolog.Logger
}

// NewDynamoAPL creates a DynamoDB-backed APL
func NewDynamoAPL(table *dynamo.MainTable, logger zerolog.Logger) *DynamoAPL {
	return &DynamoAPL{
		table:  table,
		logger: logger.With().Str("apl", "dynamodb").Logger(),
	}
}

var _ ports.APL = (*DynamoAPL)(nil)

func authDataKey(saleorAPIURL string) (string, string) {
	return dynamo.PrimaryKeyScopedToSaleorAPIURL(saleorAPIURL), AuthDataSortKey
}

// Get returns the record for the URL, or nil if none is stored
func (a *DynamoAPL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return nil, err
	}
	client, err := a.table.Client(ctx)
	if err != nil {
		return nil, err
	}

	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(a.table.Name()),
		Key:            dynamo.Key(authDataKey(saleorAPIURL)),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get auth data: %w", domain.ErrConnection, err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var item dynamoAuthDataItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to decode auth data for %s: %w", saleorAPIURL, err)
	}
	return item.toDomain(), nil
}

// Set upserts the record
func (a *DynamoAPL) Set(ctx context.Context, authData *domain.AuthData) error {
	if err := authData.Validate(); err != nil {
		return err
	}
	client, err := a.table.Client(ctx)
	if err != nil {
		return err
	}

	pk, sk := authDataKey(authData.SaleorAPIURL)
	item, err := attributevalue.MarshalMap(dynamoAuthDataItem{
		PK:           pk,
		SK:           sk,
		SaleorAPIURL: authData.SaleorAPIURL,
		Token:        authData.Token,
		AppID:        authData.AppID,
		JWKS:         authData.JWKS,
		UpdatedAt:    time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode auth data: %w", err)
	}

	if _, err := client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.table.Name()),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("%w: failed to save auth data: %w", domain.ErrConnection, err)
	}

	a.logger.Info().Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Auth data saved")
	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (a *DynamoAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return err
	}
	client, err := a.table.Client(ctx)
	if err != nil {
		return err
	}

	if _, err := client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(a.table.Name()),
		Key:       dynamo.Key(authDataKey(saleorAPIURL)),
	}); err != nil {
		return fmt.Errorf("%w: failed to delete auth data: %w", domain.ErrConnection, err)
	}

	a.logger.Info().Str("saleorApiUrl", saleorAPIURL).Msg("Auth data deleted")
	return nil
}

// GetAll scans the table for APL items
func (a *DynamoAPL) GetAll(ctx context.Context) ([]*domain.AuthData, error) {
	items, err := a.table.ScanBySortKey(ctx, AuthDataSortKey)
	if err != nil {
		return nil, err
	}

	var decoded []dynamoAuthDataItem
	if err := attributevalue.UnmarshalListOfMaps(items, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode auth data: %w", err)
	}

	all := make([]*domain.AuthData, 0, len(decoded))
	for i := range decoded {
		all = append(all, decoded[i].toDomain())
	}
	return all, nil
}

// IsReady describes the table
func (a *DynamoAPL) IsReady(ctx context.Context) ports.ReadyResult {
	if err := a.table.Ping(ctx); err != nil {
		return ports.ReadyResult{Ready: false, Error: err}
	}
	return ports.ReadyResult{Ready: true}
}

// IsConfigured reports whether the table name and region were provided
func (a *DynamoAPL) IsConfigured(ctx context.Context) ports.ConfiguredResult {
	if err := a.table.IsConfigured(); err != nil {
		return ports.ConfiguredResult{Configured: false, Error: err}
	}
	return ports.ConfiguredResult{Configured: true}
}
