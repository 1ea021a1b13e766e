package entity

import (
	"time"

	"saleor-apps-core/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoRecordedTransactionDoc represents a recorded transaction in MongoDB
type MongoRecordedTransactionDoc struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty"`
	SaleorAPIURL            string             `bson:"saleorApiUrl"`
	AppID                   string             `bson:"appId"`
	StripePaymentIntentID   string             `bson:"stripePaymentIntentId"`
	SaleorTransactionID     string             `bson:"saleorTransactionId"`
	SaleorTransactionFlow   string             `bson:"saleorTransactionFlow"`
	ResolvedTransactionFlow string             `bson:"resolvedTransactionFlow"`
	SelectedPaymentMethod   string             `bson:"selectedPaymentMethod"`
	UpdatedAt               time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoRecordedTransactionDoc) ToDomain() *domain.RecordedTransaction {
	return &domain.RecordedTransaction{
		PaymentIntentID:         d.StripePaymentIntentID,
		SaleorTransactionID:     d.SaleorTransactionID,
		SaleorTransactionFlow:   domain.TransactionFlow(d.SaleorTransactionFlow),
		ResolvedTransactionFlow: domain.TransactionFlow(d.ResolvedTransactionFlow),
		SelectedPaymentMethod:   d.SelectedPaymentMethod,
	}
}

// MongoRecordedTransactionDocFromDomain converts a domain entity to a MongoDB document
func MongoRecordedTransactionDocFromDomain(scope domain.InstallationScope, transaction *domain.RecordedTransaction) *MongoRecordedTransactionDoc {
	return &MongoRecordedTransactionDoc{
		SaleorAPIURL:            scope.SaleorAPIURL,
		AppID:                   scope.AppID,
		StripePaymentIntentID:   transaction.PaymentIntentID,
		SaleorTransactionID:     transaction.SaleorTransactionID,
		SaleorTransactionFlow:   string(transaction.SaleorTransactionFlow),
		ResolvedTransactionFlow: string(transaction.ResolvedTransactionFlow),
		SelectedPaymentMethod:   transaction.SelectedPaymentMethod,
	}
}
