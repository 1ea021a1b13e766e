package domain

import "fmt"

// TransactionFlow is the flow Saleor asked for, or the one we resolved it to
type TransactionFlow string

const (
	TransactionFlowCharge    TransactionFlow = "CHARGE"
	TransactionFlowAuthorize TransactionFlow = "AUTHORIZE"
)

// IsValid reports whether the flow is one we know
func (f TransactionFlow) IsValid() bool {
	return f == TransactionFlowCharge || f == TransactionFlowAuthorize
}

// RecordedTransaction is the idempotency record for one payment intent.
// There is at most one per (installation, PaymentIntentID).
type RecordedTransaction struct {
	PaymentIntentID         string          `json:"paymentIntentId"`
	SaleorTransactionID     string          `json:"saleorTransactionId"`
	SaleorTransactionFlow   TransactionFlow `json:"saleorTransactionFlow"`
	ResolvedTransactionFlow TransactionFlow `json:"resolvedTransactionFlow"`
	SelectedPaymentMethod   string          `json:"selectedPaymentMethod"`
}

// Validate checks the fields needed to key and later interpret the record
func (t *RecordedTransaction) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: transaction is nil", ErrInvalidInput)
	}
	if t.PaymentIntentID == "" {
		return fmt.Errorf("%w: payment intent id is required", ErrInvalidInput)
	}
	if t.SaleorTransactionID == "" {
		return fmt.Errorf("%w: saleor transaction id is required", ErrInvalidInput)
	}
	if !t.SaleorTransactionFlow.IsValid() {
		return fmt.Errorf("%w: unknown transaction flow %q", ErrInvalidInput, t.SaleorTransactionFlow)
	}
	if !t.ResolvedTransactionFlow.IsValid() {
		return fmt.Errorf("%w: unknown resolved transaction flow %q", ErrInvalidInput, t.ResolvedTransactionFlow)
	}
	return nil
}
