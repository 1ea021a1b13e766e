package entity

import (
	"time"

	"saleor-apps-core/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoStripeConfigDoc represents a stripe config in MongoDB.
// StripeRk and StripeWhSecret hold ciphertext, never plaintext.
type MongoStripeConfigDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	SaleorAPIURL   string             `bson:"saleorApiUrl"`
	AppID          string             `bson:"appId"`
	ConfigID       string             `bson:"configId"`
	ConfigName     string             `bson:"configName"`
	StripePk       string             `bson:"stripePk"`
	StripeRk       string             `bson:"stripeRk"`
	StripeWhID     string             `bson:"stripeWhId"`
	StripeWhSecret string             `bson:"stripeWhSecret"`
	UpdatedAt      time.Time          `bson:"updatedAt"`
}

// ToDomain converts the document to a config that still carries encrypted secrets
func (d *MongoStripeConfigDoc) ToDomain() *domain.StripeConfig {
	return &domain.StripeConfig{
		ID:             d.ConfigID,
		Name:           d.ConfigName,
		PublishableKey: d.StripePk,
		RestrictedKey:  d.StripeRk,
		WebhookID:      d.StripeWhID,
		WebhookSecret:  d.StripeWhSecret,
	}
}

// MongoStripeConfigDocFromDomain converts a config whose secrets are already encrypted
func MongoStripeConfigDocFromDomain(scope domain.InstallationScope, sealed *domain.StripeConfig) *MongoStripeConfigDoc {
	return &MongoStripeConfigDoc{
		SaleorAPIURL:   scope.SaleorAPIURL,
		AppID:          scope.AppID,
		ConfigID:       sealed.ID,
		ConfigName:     sealed.Name,
		StripePk:       sealed.PublishableKey,
		StripeRk:       sealed.RestrictedKey,
		StripeWhID:     sealed.WebhookID,
		StripeWhSecret: sealed.WebhookSecret,
	}
}

// MongoChannelMappingDoc represents one channel's config assignment.
// An empty ConfigID means the channel was explicitly unassigned.
type MongoChannelMappingDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SaleorAPIURL string             `bson:"saleorApiUrl"`
	AppID        string             `bson:"appId"`
	ChannelID    string             `bson:"channelId"`
	ConfigID     string             `bson:"configId,omitempty"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}
