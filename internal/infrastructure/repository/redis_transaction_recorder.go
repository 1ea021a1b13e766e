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

// RedisTransactionRecorder stores one JSON value per payment intent under
// <prefix>:<url>#<appId>:transaction:<paymentIntentId>
type RedisTransactionRecorder struct {
	conn   *redisdb.Connector
	logger zerolog.Logger
}

// NewRedisTransactionRecorder creates a new Redis transaction recorder
func NewRedisTransactionRecorder(conn *redisdb.Connector, logger zerolog.Logger) ports.TransactionRecorder {
	return &RedisTransactionRecorder{
		conn:   conn,
		logger: logger.With().Str("repository", "redis").Logger(),
	}
}

func (r *RedisTransactionRecorder) key(scope domain.InstallationScope, paymentIntentID string) string {
	return r.conn.Key(installationKey(scope), "transaction", paymentIntentID)
}

// RecordTransaction overwrites the value for the payment intent
func (r *RedisTransactionRecorder) RecordTransaction(ctx context.Context, scope domain.InstallationScope, transaction *domain.RecordedTransaction) error {
	if err := validateTransactionWrite(scope, transaction); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedWritingTransaction, err)
	}
	client, err := r.conn.Client(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrFailedWritingTransaction, err)
	}

	raw, err := json.Marshal(transaction)
	if err != nil {
		return fmt.Errorf("%w: failed to encode transaction: %w", domain.ErrFailedWritingTransaction, err)
	}
	if err := client.Set(ctx, r.key(scope, transaction.PaymentIntentID), raw, 0).Err(); err != nil {
		r.logger.Error().Err(err).Str("paymentIntentId", transaction.PaymentIntentID).Msg("Failed to record transaction")
		return fmt.Errorf("%w: %w: %w", domain.ErrFailedWritingTransaction, domain.ErrConnection, err)
	}

	r.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("paymentIntentId", transaction.PaymentIntentID).
		Msg("Recorded transaction")
	return nil
}

// GetTransactionByPaymentIntentID retrieves the record for the payment intent
func (r *RedisTransactionRecorder) GetTransactionByPaymentIntentID(ctx context.Context, scope domain.InstallationScope, paymentIntentID string) (*domain.RecordedTransaction, error) {
	if err := scope.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingTransaction, err)
	}
	client, err := r.conn.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFailedFetchingTransaction, err)
	}

	raw, err := client.Get(ctx, r.key(scope, paymentIntentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: payment intent %s", domain.ErrTransactionMissing, paymentIntentID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", domain.ErrFailedFetchingTransaction, domain.ErrConnection, err)
	}

	var transaction domain.RecordedTransaction
	if err := json.Unmarshal(raw, &transaction); err != nil {
		return nil, fmt.Errorf("%w: failed to decode transaction: %w", domain.ErrFailedFetchingTransaction, err)
	}
	return &transaction, nil
}
