package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordedTransaction_Validate(t *testing.T) {
	valid := RecordedTransaction{
		PaymentIntentID:         "pi_1",
		SaleorTransactionID:     "VHJhbnNhY3Rpb246MQ==",
		SaleorTransactionFlow:   TransactionFlowAuthorize,
		ResolvedTransactionFlow: TransactionFlowCharge,
	}
	assert.NoError(t, valid.Validate())

	tests := map[string]func(tx *RecordedTransaction){
		"no payment intent":  func(tx *RecordedTransaction) { tx.PaymentIntentID = "" },
		"no saleor id":       func(tx *RecordedTransaction) { tx.SaleorTransactionID = "" },
		"unknown flow":       func(tx *RecordedTransaction) { tx.SaleorTransactionFlow = "REFUND" },
		"unknown resolution": func(tx *RecordedTransaction) { tx.ResolvedTransactionFlow = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			tx := valid
			mutate(&tx)
			assert.ErrorIs(t, tx.Validate(), ErrInvalidInput)
		})
	}

	var missing *RecordedTransaction
	assert.ErrorIs(t, missing.Validate(), ErrInvalidInput)
}
