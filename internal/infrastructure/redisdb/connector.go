package redisdb

import (
	"context"
	"fmt"
	"strings"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/connection"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultKeyPrefix namespaces every key written by the apps
const DefaultKeyPrefix = "saleor_apps"

// Connector owns the process-wide Redis client. It connects on first use.
type Connector struct {
	url       string
	keyPrefix string
	conn      *connection.Lazy[*redis.Client]
	logger    zerolog.Logger
}

// NewConnector creates a connector. Nothing is dialed until Client is called.
func NewConnector(url, keyPrefix string, logger zerolog.Logger) *Connector {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	c := &Connector{
		url:       url,
		keyPrefix: strings.TrimSuffix(keyPrefix, ":"),
		logger:    logger,
	}
	c.conn = connection.NewLazy(c.connect)
	return c
}

func (c *Connector) connect(ctx context.Context) (*redis.Client, error) {
	if c.url == "" {
		return nil, fmt.Errorf("%w: REDIS_URL is required", domain.ErrMisconfigured)
	}

	var opts *redis.Options
	if strings.HasPrefix(c.url, "redis://") || strings.HasPrefix(c.url, "rediss://") {
		parsed, err := redis.ParseURL(c.url)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid REDIS_URL: %w", domain.ErrMisconfigured, err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: c.url}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	c.logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return client, nil
}

// Client returns the shared client, connecting if needed
func (c *Connector) Client(ctx context.Context) (*redis.Client, error) {
	client, err := c.conn.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return client, nil
}

// Ping checks the server answers
func (c *Connector) Ping(ctx context.Context) error {
	client, err := c.Client(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: ping failed: %w", domain.ErrConnection, err)
	}
	return nil
}

// Key joins parts under the connector's prefix, e.g. Key("a", "b") = "<prefix>:a:b"
func (c *Connector) Key(parts ...string) string {
	return c.keyPrefix + ":" + strings.Join(parts, ":")
}

// IsConfigured reports whether a connection string is available
func (c *Connector) IsConfigured() bool {
	return c.url != ""
}

// Attempts returns how many connects have been started
func (c *Connector) Attempts() int64 {
	return c.conn.Attempts()
}

// Close releases the client if one was established
func (c *Connector) Close() error {
	client, ok := c.conn.Reset()
	if !ok {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}
	return nil
}
