package mongodb

import (
	"context"
	"errors"
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/connection"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultDatabase is used when MONGODB_DATABASE is not set
const DefaultDatabase = "saleor_apps"

// Connector owns the process-wide MongoDB client. It connects on first use
// and is shared by the APL, the config repository and the transaction recorder.
type Connector struct {
	uri      string
	database string
	external bool
	conn     *connection.Lazy[*mongo.Database]
	logger   zerolog.Logger
}

// NewConnector creates a connector. Nothing is dialed until Database is called.
func NewConnector(uri, database string, logger zerolog.Logger) *Connector {
	if database == "" {
		database = DefaultDatabase
	}
	c := &Connector{
		uri:      uri,
		database: database,
		logger:   logger,
	}
	c.conn = connection.NewLazy(c.connect)
	return c
}

// NewConnectorWithDatabase wraps an already connected database
func NewConnectorWithDatabase(db *mongo.Database, logger zerolog.Logger) *Connector {
	return &Connector{
		database: db.Name(),
		external: true,
		logger:   logger,
		conn: connection.NewLazy(func(ctx context.Context) (*mongo.Database, error) {
			return db, nil
		}),
	}
}

func (c *Connector) connect(ctx context.Context) (*mongo.Database, error) {
	if c.uri == "" {
		return nil, fmt.Errorf("%w: MONGODB_URL is required", domain.ErrMisconfigured)
	}

	c.logger.Info().Str("database", c.database).Msg("Connecting to MongoDB")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(c.uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	c.logger.Info().Str("database", c.database).Msg("Connected to MongoDB")
	return client.Database(c.database), nil
}

// Database returns the shared database handle, connecting if needed
func (c *Connector) Database(ctx context.Context) (*mongo.Database, error) {
	db, err := c.conn.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return db, nil
}

// Ping checks the server answers
func (c *Connector) Ping(ctx context.Context) error {
	db, err := c.Database(ctx)
	if err != nil {
		return err
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return fmt.Errorf("%w: ping failed: %w", domain.ErrConnection, err)
	}
	return nil
}

// IsConfigured reports whether a connection string is available
func (c *Connector) IsConfigured() bool {
	return c.uri != "" || c.external
}

// Attempts returns how many connects have been started
func (c *Connector) Attempts() int64 {
	return c.conn.Attempts()
}

// Close disconnects the client if one was established
func (c *Connector) Close(ctx context.Context) error {
	db, ok := c.conn.Reset()
	if !ok || c.external {
		return nil
	}
	if err := db.Client().Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	return nil
}

// EnsureIndexes creates the given indexes. CreateMany is idempotent for identical specs.
func EnsureIndexes(ctx context.Context, collection *mongo.Collection, models ...mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", collection.Name(), err)
	}
	return nil
}

// Collection is a collection handle whose indexes are ensured once, together
// with the first successful connection. A failed index build is retried on the
// next call.
type Collection struct {
	name string
	lazy *connection.Lazy[*mongo.Collection]
}

// NewCollection creates a lazily opened collection on the connector's database
func (c *Connector) NewCollection(name string, indexes ...mongo.IndexModel) *Collection {
	return &Collection{
		name: name,
		lazy: connection.NewLazy(func(ctx context.Context) (*mongo.Collection, error) {
			db, err := c.Database(ctx)
			if err != nil {
				return nil, err
			}
			coll := db.Collection(name)
			if err := EnsureIndexes(ctx, coll, indexes...); err != nil {
				return nil, err
			}
			return coll, nil
		}),
	}
}

// Get returns the collection, connecting and building indexes if needed
func (c *Collection) Get(ctx context.Context) (*mongo.Collection, error) {
	coll, err := c.lazy.Get(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrConnection) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return coll, nil
}

// Name returns the collection name
func (c *Collection) Name() string {
	return c.name
}
