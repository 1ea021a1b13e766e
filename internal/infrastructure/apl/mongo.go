package apl

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

// AuthDataCollection holds one document per Saleor API URL
const AuthDataCollection = "apl_auth_data"

// MongoAPL implements ports.APL using MongoDB
type MongoAPL struct {
	conn       *mongodb.Connector
	collection *mongodb.Collection
	logger     zerolog.Logger
}

// NewMongoAPL creates a MongoDB-backed APL. The unique index on saleorApiUrl
// is created together with the first connection.
func NewMongoAPL(conn *mongodb.Connector, logger zerolog.Logger) *MongoAPL {
	return &MongoAPL{
		conn: conn,
		collection: conn.NewCollection(AuthDataCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "saleorApiUrl", Value: 1}},
			Options: options.Index().SetUnique(true),
		}),
		logger: logger.With().Str("apl", "mongodb").Logger(),
	}
}

var _ ports.APL = (*MongoAPL)(nil)

func (a *MongoAPL) coll(ctx context.Context) (*mongo.Collection, error) {
	return a.collection.Get(ctx)
}

// Get retrieves the record by Saleor API URL
func (a *MongoAPL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return nil, err
	}
	coll, err := a.coll(ctx)
	if err != nil {
		return nil, err
	}

	var doc entity.MongoAuthDataDoc
	err = coll.FindOne(ctx, bson.M{"saleorApiUrl": saleorAPIURL}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get auth data: %w", domain.ErrConnection, err)
	}

	return doc.ToDomain(), nil
}

// Set replaces the whole record, inserting it if absent
func (a *MongoAPL) Set(ctx context.Context, authData *domain.AuthData) error {
	if err := authData.Validate(); err != nil {
		return err
	}
	coll, err := a.coll(ctx)
	if err != nil {
		return err
	}

	doc := entity.MongoAuthDataDocFromDomain(authData)
	doc.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"saleorApiUrl": authData.SaleorAPIURL}

	if _, err := coll.ReplaceOne(ctx, filter, doc, opts); err != nil {
		return fmt.Errorf("%w: failed to save auth data: %w", domain.ErrConnection, err)
	}

	a.logger.Info().Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Auth data saved")
	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (a *MongoAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return err
	}
	coll, err := a.coll(ctx)
	if err != nil {
		return err
	}

	if _, err := coll.DeleteOne(ctx, bson.M{"saleorApiUrl": saleorAPIURL}); err != nil {
		return fmt.Errorf("%w: failed to delete auth data: %w", domain.ErrConnection, err)
	}

	a.logger.Info().Str("saleorApiUrl", saleorAPIURL).Msg("Auth data deleted")
	return nil
}

// GetAll retrieves every record
func (a *MongoAPL) GetAll(ctx context.Context) ([]*domain.AuthData, error) {
	coll, err := a.coll(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "saleorApiUrl", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list auth data: %w", domain.ErrConnection, err)
	}
	defer cursor.Close(ctx)

	all := []*domain.AuthData{}
	for cursor.Next(ctx) {
		var doc entity.MongoAuthDataDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode auth data: %w", err)
		}
		all = append(all, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: cursor error: %w", domain.ErrConnection, err)
	}

	return all, nil
}

// IsReady pings the server
func (a *MongoAPL) IsReady(ctx context.Context) ports.ReadyResult {
	if err := a.conn.Ping(ctx); err != nil {
		return ports.ReadyResult{Ready: false, Error: err}
	}
	return ports.ReadyResult{Ready: true}
}

// IsConfigured reports whether MONGODB_URL was provided
func (a *MongoAPL) IsConfigured(ctx context.Context) ports.ConfiguredResult {
	if !a.conn.IsConfigured() {
		return ports.ConfiguredResult{
			Configured: false,
			Error:      fmt.Errorf("%w: MONGODB_URL is required", domain.ErrMisconfigured),
		}
	}
	return ports.ConfiguredResult{Configured: true}
}
