package application

import (
	"context"
	"errors"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/rs/zerolog"
)

// TransactionService records which Saleor transaction a payment intent belongs to,
// so repeated webhook deliveries resolve to the same flow
type TransactionService struct {
	recorder ports.TransactionRecorder
	logger   zerolog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(recorder ports.TransactionRecorder, logger zerolog.Logger) *TransactionService {
	return &TransactionService{
		recorder: recorder,
		logger:   logger,
	}
}

// RecordPaymentIntent stores the record. Recording the same intent again replaces it.
func (s *TransactionService) RecordPaymentIntent(ctx context.Context, scope domain.InstallationScope, transaction *domain.RecordedTransaction) error {
	if err := s.recorder.RecordTransaction(ctx, scope, transaction); err != nil {
		s.logger.Error().
			Err(err).
			Str("saleorApiUrl", scope.SaleorAPIURL).
			Str("paymentIntentId", transaction.PaymentIntentID).
			Msg("Failed to record transaction")
		return err
	}

	s.logger.Info().
		Str("saleorApiUrl", scope.SaleorAPIURL).
		Str("paymentIntentId", transaction.PaymentIntentID).
		Str("saleorTransactionId", transaction.SaleorTransactionID).
		Msg("Transaction recorded")
	return nil
}

// ResolveFlow looks up the record for a payment intent. found is false when
// nothing was recorded yet; storage failures are returned as errors.
func (s *TransactionService) ResolveFlow(ctx context.Context, scope domain.InstallationScope, paymentIntentID string) (transaction *domain.RecordedTransaction, found bool, err error) {
	transaction, err = s.recorder.GetTransactionByPaymentIntentID(ctx, scope, paymentIntentID)
	if errors.Is(err, domain.ErrTransactionMissing) {
		s.logger.Debug().
			Str("saleorApiUrl", scope.SaleorAPIURL).
			Str("paymentIntentId", paymentIntentID).
			Msg("No transaction recorded for payment intent")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return transaction, true, nil
}
