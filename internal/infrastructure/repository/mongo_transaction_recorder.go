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

const RecordedTransactionsCollection = "recorded_transactions"

// MongoTransactionRecorder implements TransactionRecorder using MongoDB
type MongoTransactionRecorder struct {
	collection *mongodb.Collection
	logger     zerolog.Logger
}

// NewMongoTransactionRecorder creates a new MongoDB transaction recorder
func NewMongoTransactionRecorder(conn *mongodb.Connector, logger zerolog.Logger) ports.TransactionRecorder {
	return &MongoTransactionRecorder{
		collection: conn.NewCollection(RecordedTransactionsCollection,
			mongo.IndexModel{
				Keys:    bson.D{{Key: "saleorApiUrl", Value: 1}, {Key: "appId", Value: 1}, {Key: "stripePaymentIntentId", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			mongo.IndexModel{
				Keys: bson.D{{Key: "saleorApiUrl", Value: 1}, {Key: "appId", Value: 1}, {Key: "saleorTransactionId", Value: 1}},
			},
		),
		logger: logger.With().Str("repository", "mongodb").Logger(),
	}
}

// RecordTransaction saves or replaces the record for the payment intent
func (r *MongoTransactionRecorder) RecordTransaction(ctx context.Context, scope domain.InstallationScope, transaction *domain.RecordedTransaction) error {
	if err := validateTransactionWrite(scope, transaction); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedWritingTransaction, err)
	}
	coll, err := r.collection.Get(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedWritingTransaction, err)
	}

	doc := entity.MongoRecordedTransactionDocFromDomain(scope, transaction)
	doc.UpdatedAt = time.Now()

	filter := scopeFilter(scope)
	filter["stripePaymentIntentId"] = transaction.PaymentIntentID
	opts := options.Replace().SetUpsert(true)

	if _, err := coll.ReplaceOne(ctx, filter, doc, opts); err != nil {
		r.logger.Error().Err(err).Str("paymentIntentId", transaction.PaymentIntentID).Msg("Failed to record transaction")
		return fmt.Errorf("%w: %w", domain.ErrFailedWritingTransaction, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("paymentIntentId", transaction.PaymentIntentID).
		Str("saleorTransactionId", transaction.SaleorTransactionID).
		Msg("Recorded transaction")
	return nil
}

// GetTransactionByPaymentIntentID retrieves the record for the payment intent
func (r *MongoTransactionRecorder) GetTransactionByPaymentIntentID(ctx context.Context, scope domain.InstallationScope, paymentIntentID string) (*domain.RecordedTransaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingTransaction, err)
	}
	coll, err := r.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingTransaction, err)
	}

	var doc entity.MongoRecordedTransactionDoc
	filter := scopeFilter(scope)
	filter["stripePaymentIntentId"] = paymentIntentID

	err = coll.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: payment intent %s", domain.ErrTransactionMissing, paymentIntentID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingTransaction, err)
	}

	return doc.ToDomain(), nil
}
