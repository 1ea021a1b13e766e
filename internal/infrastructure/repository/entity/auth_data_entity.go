package entity

import (
	"time"

	"saleor-apps-core/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoAuthDataDoc represents an APL record in MongoDB
type MongoAuthDataDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	SaleorAPIURL string             `bson:"saleorApiUrl"`
	Token        string             `bson:"token"`
	AppID        string             `bson:"appId"`
	JWKS         string             `bson:"jwks,omitempty"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity. The storage id is dropped.
func (d *MongoAuthDataDoc) ToDomain() *domain.AuthData {
	return &domain.AuthData{
		SaleorAPIURL: d.SaleorAPIURL,
		Token:        d.Token,
		AppID:        d.AppID,
		JWKS:         d.JWKS,
	}
}

// MongoAuthDataDocFromDomain converts a domain entity to a MongoDB document
func MongoAuthDataDocFromDomain(authData *domain.AuthData) *MongoAuthDataDoc {
	return &MongoAuthDataDoc{
		SaleorAPIURL: authData.SaleorAPIURL,
		Token:        authData.Token,
		AppID:        authData.AppID,
		JWKS:         authData.JWKS,
	}
}
