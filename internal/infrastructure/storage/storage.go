// Package storage selects and wires the persistence backends at startup.
package storage

import (
	"context"
	"errors"
	"fmt"

	"saleor-apps-core/internal/config"
	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/apl"
	"saleor-apps-core/internal/infrastructure/dynamo"
	"saleor-apps-core/internal/infrastructure/encryption"
	"saleor-apps-core/internal/infrastructure/metrics"
	"saleor-apps-core/internal/infrastructure/mongodb"
	"saleor-apps-core/internal/infrastructure/redisdb"
	"saleor-apps-core/internal/infrastructure/repository"
	"saleor-apps-core/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// Storage is the set of stores the process runs with. AppConfigs and
// Transactions are nil when the data backend is "none".
type Storage struct {
	APL          ports.APL
	AppConfigs   ports.AppConfigRepository
	Transactions ports.TransactionRecorder

	conns   *connectors
	closers []func(ctx context.Context) error
}

type options struct {
	registerer prometheus.Registerer
}

// Option customizes New
type Option func(*options)

// WithRegisterer registers the APL metrics on reg instead of the default registry
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// connectors caches one connector per backend so the APL and the repositories share a client
type connectors struct {
	cfg    *config.Config
	logger zerolog.Logger
	redis  *redisdb.Connector
	mongo  *mongodb.Connector
	table  *dynamo.MainTable
	s      *Storage
}

func (c *connectors) redisConn() *redisdb.Connector {
	if c.redis == nil {
		c.redis = redisdb.NewConnector(c.cfg.RedisURL, c.cfg.RedisKeyPrefix, c.logger)
		conn := c.redis
		c.s.closers = append(c.s.closers, func(context.Context) error { return conn.Close() })
	}
	return c.redis
}

func (c *connectors) mongoConn() *mongodb.Connector {
	if c.mongo == nil {
		c.mongo = mongodb.NewConnector(c.cfg.MongoDBURL, c.cfg.MongoDBDatabase, c.logger)
		c.s.closers = append(c.s.closers, c.mongo.Close)
	}
	return c.mongo
}

func (c *connectors) mainTable() *dynamo.MainTable {
	if c.table == nil {
		c.table = dynamo.NewMainTable(dynamo.Config{
			TableName:       c.cfg.DynamoDBTableName,
			Region:          c.cfg.AWSRegion,
			AccessKeyID:     c.cfg.AWSAccessKeyID,
			SecretAccessKey: c.cfg.AWSSecretAccessKey,
			EndpointURL:     c.cfg.DynamoDBEndpoint,
			CreateIfMissing: c.cfg.DynamoDBEndpoint != "",
		}, c.logger)
	}
	return c.table
}

// New builds the stores selected by cfg. No connection is attempted; each
// backend dials on first use. Missing settings fail here with domain.ErrMisconfigured.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Storage, error) {
	o := options{registerer: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Storage{}
	c := &connectors{cfg: cfg, logger: logger, s: s}
	s.conns = c

	store, err := c.newAPL()
	if err != nil {
		return nil, err
	}
	if result := store.IsConfigured(context.Background()); !result.Configured {
		return nil, result.Error
	}

	collectors, err := metrics.NewAPLCollectors(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register APL metrics: %w", err)
	}
	s.APL = metrics.NewInstrumentedAPL(store, cfg.APL, collectors)

	if cfg.DataBackend != config.DataNone {
		encryptor, err := encryption.NewService(cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		if err := c.newDataStores(encryptor); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("apl", cfg.APL).
		Str("dataBackend", cfg.DataBackend).
		Msg("Storage configured")

	return s, nil
}

func (c *connectors) newAPL() (ports.APL, error) {
	switch c.cfg.APL {
	case config.APLFile:
		return apl.NewFileAPL(c.cfg.FileAPLPath, c.logger), nil
	case config.APLRedis:
		return apl.NewRedisAPL(c.redisConn(), c.logger), nil
	case config.APLMongoDB:
		return apl.NewMongoAPL(c.mongoConn(), c.logger), nil
	case config.APLDynamoDB:
		return apl.NewDynamoAPL(c.mainTable(), c.logger), nil
	case config.APLSaleorCloud:
		return apl.NewCloudAPL(c.cfg.RESTAPLEndpoint, c.cfg.RESTAPLToken, c.logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown APL %q", domain.ErrMisconfigured, c.cfg.APL)
	}
}

func (c *connectors) newDataStores(encryptor ports.EncryptionService) error {
	switch c.cfg.DataBackend {
	case config.DataRedis:
		conn := c.redisConn()
		c.s.AppConfigs = repository.NewRedisAppConfigRepository(conn, encryptor, c.logger)
		c.s.Transactions = repository.NewRedisTransactionRecorder(conn, c.logger)
	case config.DataMongoDB:
		conn := c.mongoConn()
		c.s.AppConfigs = repository.NewMongoAppConfigRepository(conn, encryptor, c.logger)
		c.s.Transactions = repository.NewMongoTransactionRecorder(conn, c.logger)
	case config.DataDynamoDB:
		table := c.mainTable()
		if err := table.IsConfigured(); err != nil {
			return err
		}
		c.s.AppConfigs = repository.NewDynamoAppConfigRepository(table, encryptor, c.logger)
		c.s.Transactions = repository.NewDynamoTransactionRecorder(table, c.logger)
	default:
		return fmt.Errorf("%w: unknown DATA_BACKEND %q", domain.ErrMisconfigured, c.cfg.DataBackend)
	}
	return nil
}

// Close releases every connector that was created
func (s *Storage) Close(ctx context.Context) error {
	var errs []error
	for _, closeFn := range s.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
