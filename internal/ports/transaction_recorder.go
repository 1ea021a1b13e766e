package ports

import (
	"context"

	"saleor-apps-core/internal/domain"
)

// TransactionRecorder defines the interface for payment intent idempotency records
type TransactionRecorder interface {
	// RecordTransaction upserts the record keyed by its payment intent id
	RecordTransaction(ctx context.Context, scope domain.InstallationScope, transaction *domain.RecordedTransaction) error

	// GetTransactionByPaymentIntentID returns domain.ErrTransactionMissing when nothing was recorded
	GetTransactionByPaymentIntentID(ctx context.Context, scope domain.InstallationScope, paymentIntentID string) (*domain.RecordedTransaction, error)
}
