package repository

import (
	"context"
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/dynamo"
	"saleor-apps-core/internal/ports"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/rs/zerolog"
)

const transactionSortKeyPrefix = "TRANSACTION#"

type dynamoRecordedTransactionItem struct {
	PK                      string `dynamodbav:"PK"`
	SK                      string `dynamodbav:"SK"`
	PaymentIntentID         string `dynamodbav:"paymentIntentId"`
	SaleorTransactionID     string `dynamodbav:"saleorTransactionId"`
	SaleorTransactionFlow   string `dynamodbav:"saleorTransactionFlow"`
	ResolvedTransactionFlow string `dynamodbav:"resolvedTransactionFlow"`
	SelectedPaymentMethod   string `dynamodbav:"selectedPaymentMethod"`
	ModifiedAt              string `dynamodbav:"modifiedAt"`
}

// DynamoTransactionRecorder implements TransactionRecorder on the main table
type DynamoTransactionRecorder struct {
	table  *dynamo.MainTable
	logger zerolog.Logger
}

// NewDynamoTransactionRecorder creates a new DynamoDB transaction recorder
func NewDynamoTransactionRecorder(table *dynamo.MainTable, logger zerolog.Logger) ports.TransactionRecorder {
	return &DynamoTransactionRecorder{
		table:  table,
		logger: logger.With().Str("repository", "dynamodb").Logger(),
	}
}

// RecordTransaction puts the item keyed by the payment intent, replacing any previous one
func (r *DynamoTransactionRecorder) RecordTransaction(ctx context.Context, scope domain.InstallationScope, transaction *domain.RecordedTransaction) error {
	if err := validateTransactionWrite(scope, transaction); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedWritingTransaction, err)
	}

	item, err := attributevalue.MarshalMap(dynamoRecordedTransactionItem{
		PK:                      dynamo.PrimaryKeyScopedToInstallation(scope),
		SK:                      transactionSortKeyPrefix + transaction.PaymentIntentID,
		PaymentIntentID:         transaction.PaymentIntentID,
		SaleorTransactionID:     transaction.SaleorTransactionID,
		SaleorTransactionFlow:   string(transaction.SaleorTransactionFlow),
		ResolvedTransactionFlow: string(transaction.ResolvedTransactionFlow),
		SelectedPaymentMethod:   transaction.SelectedPaymentMethod,
		ModifiedAt:              now(),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to encode transaction: %w", domain.ErrFailedWritingTransaction, err)
	}
	if err := putItem(ctx, r.table, item); err != nil {
		r.logger.Error().Err(err).Str("paymentIntentId", transaction.PaymentIntentID).Msg("Failed to record transaction")
		return fmt.Errorf("%w: %w", domain.ErrFailedWritingTransaction, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("paymentIntentId", transaction.PaymentIntentID).
		Msg("Recorded transaction")
	return nil
}

// GetTransactionByPaymentIntentID retrieves the record for the payment intent
func (r *DynamoTransactionRecorder) GetTransactionByPaymentIntentID(ctx context.Context, scope domain.InstallationScope, paymentIntentID string) (*domain.RecordedTransaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingTransaction, err)
	}

	raw, err := getItem(ctx, r.table, dynamo.PrimaryKeyScopedToInstallation(scope), transactionSortKeyPrefix+paymentIntentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingTransaction, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: payment intent %s", domain.ErrTransactionMissing, paymentIntentID)
	}

	var item dynamoRecordedTransactionItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: failed to decode transaction: %w", domain.ErrFailedFetchingTransaction, err)
	}
	return &domain.RecordedTransaction{
		PaymentIntentID:         item.PaymentIntentID,
		SaleorTransactionID:     item.SaleorTransactionID,
		SaleorTransactionFlow:   domain.TransactionFlow(item.SaleorTransactionFlow),
		ResolvedTransactionFlow: domain.TransactionFlow(item.ResolvedTransactionFlow),
		SelectedPaymentMethod:   item.SelectedPaymentMethod,
	}, nil
}
