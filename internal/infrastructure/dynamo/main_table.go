// Package dynamo holds the single DynamoDB table shared by every entity kind.
//
// Items are multiplexed with a composite key:
//
//	PK = saleorApiUrl               records that must survive a reinstall (APL)
//	PK = saleorApiUrl#appId         records scoped to one installation (configs, transactions)
//	SK = <KIND>#<natural id>        so a begins_with query lists all of one kind
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/connection"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"
)

const (
	PartitionKey = "PK"
	SortKey      = "SK"
)

// API is the subset of the DynamoDB client the table uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// Config holds the table connection settings
type Config struct {
	TableName       string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// EndpointURL overrides the AWS endpoint, e.g. for DynamoDB Local
	EndpointURL string
	// CreateIfMissing creates the table on first connect when it does not exist
	CreateIfMissing bool
}

// MainTable is the shared table handle. The client is built and the table
// verified (or created) once, on first use.
type MainTable struct {
	cfg       Config
	newClient func(ctx context.Context) (API, error)
	conn      *connection.Lazy[API]
	logger    zerolog.Logger
}

// NewMainTable creates the table handle. Nothing is dialed until first use.
func NewMainTable(cfg Config, logger zerolog.Logger) *MainTable {
	t := &MainTable{cfg: cfg, logger: logger}
	t.newClient = t.loadClient
	t.conn = connection.NewLazy(t.connect)
	return t
}

// NewMainTableWithClient creates a table handle over an existing client
func NewMainTableWithClient(cfg Config, client API, logger zerolog.Logger) *MainTable {
	t := &MainTable{cfg: cfg, logger: logger}
	t.newClient = func(ctx context.Context) (API, error) {
		return client, nil
	}
	t.conn = connection.NewLazy(t.connect)
	return t
}

func (t *MainTable) loadClient(ctx context.Context) (API, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(t.cfg.Region),
	}
	if t.cfg.AccessKeyID != "" && t.cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			t.cfg.AccessKeyID,
			t.cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if t.cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(t.cfg.EndpointURL)
		}
	}), nil
}

func (t *MainTable) connect(ctx context.Context) (API, error) {
	if t.cfg.TableName == "" {
		return nil, fmt.Errorf("%w: DYNAMODB_MAIN_TABLE_NAME is required", domain.ErrMisconfigured)
	}

	client, err := t.newClient(ctx)
	if err != nil {
		return nil, err
	}

	_, err = client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(t.cfg.TableName),
	})
	if err == nil {
		t.logger.Info().Str("table", t.cfg.TableName).Msg("Connected to DynamoDB main table")
		return client, nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) || !t.cfg.CreateIfMissing {
		return nil, fmt.Errorf("table %s not accessible: %w", t.cfg.TableName, err)
	}

	t.logger.Warn().Str("table", t.cfg.TableName).Msg("DynamoDB main table not found, creating it")
	if err := t.createTable(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

func (t *MainTable) createTable(ctx context.Context, client API) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(t.cfg.TableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(PartitionKey), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(SortKey), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(PartitionKey), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(SortKey), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	var inUse *types.ResourceInUseException
	if err != nil && !errors.As(err, &inUse) {
		return fmt.Errorf("failed to create table %s: %w", t.cfg.TableName, err)
	}
	return nil
}

// Client returns the verified client, connecting if needed
func (t *MainTable) Client(ctx context.Context) (API, error) {
	client, err := t.conn.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return client, nil
}

// Name returns the table name
func (t *MainTable) Name() string {
	return t.cfg.TableName
}

// IsConfigured reports whether the settings required to connect are present
func (t *MainTable) IsConfigured() error {
	if t.cfg.TableName == "" {
		return fmt.Errorf("%w: DYNAMODB_MAIN_TABLE_NAME is required", domain.ErrMisconfigured)
	}
	if t.cfg.Region == "" {
		return fmt.Errorf("%w: AWS_REGION is required", domain.ErrMisconfigured)
	}
	return nil
}

// Ping verifies the table is reachable
func (t *MainTable) Ping(ctx context.Context) error {
	client, err := t.Client(ctx)
	if err != nil {
		return err
	}
	if _, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(t.cfg.TableName)}); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return nil
}

// Attempts returns how many connects have been started
func (t *MainTable) Attempts() int64 {
	return t.conn.Attempts()
}

// QueryByPrefix returns every item in a partition whose sort key starts with prefix
func (t *MainTable) QueryByPrefix(ctx context.Context, pk, skPrefix string) ([]map[string]types.AttributeValue, error) {
	client, err := t.Client(ctx)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.cfg.TableName),
		KeyConditionExpression: aws.String("#pk = :pk AND begins_with(#sk, :sk)"),
		ExpressionAttributeNames: map[string]string{
			"#pk": PartitionKey,
			"#sk": SortKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
			":sk": &types.AttributeValueMemberS{Value: skPrefix},
		},
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewQueryPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to query %s: %w", domain.ErrConnection, t.cfg.TableName, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// ScanBySortKey returns every item across partitions with the exact sort key
func (t *MainTable) ScanBySortKey(ctx context.Context, sk string) ([]map[string]types.AttributeValue, error) {
	client, err := t.Client(ctx)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName:        aws.String(t.cfg.TableName),
		FilterExpression: aws.String("#sk = :sk"),
		ExpressionAttributeNames: map[string]string{
			"#sk": SortKey,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: sk},
		},
	}

	var items []map[string]types.AttributeValue
	paginator := dynamodb.NewScanPaginator(client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan %s: %w", domain.ErrConnection, t.cfg.TableName, err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// PrimaryKeyScopedToSaleorAPIURL is the PK for records that outlive a reinstall
func PrimaryKeyScopedToSaleorAPIURL(saleorAPIURL string) string {
	return saleorAPIURL
}

// PrimaryKeyScopedToInstallation is the PK for records of one installation
func PrimaryKeyScopedToInstallation(scope domain.InstallationScope) string {
	return scope.SaleorAPIURL + "#" + scope.AppID
}

// Key builds the key attribute map for GetItem/DeleteItem
func Key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		PartitionKey: &types.AttributeValueMemberS{Value: pk},
		SortKey:      &types.AttributeValueMemberS{Value: sk},
	}
}
