package apl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/redisdb"
	"saleor-apps-core/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// aplKeySegment keeps APL keys apart from the config and transaction keys
// written through the same connector
const aplKeySegment = "apl"

// RedisAPL stores each AuthData as a JSON string under <prefix>:apl:<saleorApiUrl>
type RedisAPL struct {
	conn   *redisdb.Connector
	logger zerolog.Logger
}

// NewRedisAPL creates a Redis-backed APL over a shared connector
func NewRedisAPL(conn *redisdb.Connector, logger zerolog.Logger) *RedisAPL {
	return &RedisAPL{
		conn:   conn,
		logger: logger.With().Str("apl", "redis").Logger(),
	}
}

var _ ports.APL = (*RedisAPL)(nil)

func (a *RedisAPL) key(saleorAPIURL string) string {
	return a.conn.Key(aplKeySegment, saleorAPIURL)
}

// Get returns the record for the URL, or nil if none is stored
func (a *RedisAPL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return nil, err
	}
	client, err := a.conn.Client(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := client.Get(ctx, a.key(saleorAPIURL)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get auth data: %w", domain.ErrConnection, err)
	}

	var authData domain.AuthData
	if err := json.Unmarshal(raw, &authData); err != nil {
		return nil, fmt.Errorf("failed to decode auth data for %s: %w", saleorAPIURL, err)
	}
	return &authData, nil
}

// Set upserts the record
func (a *RedisAPL) Set(ctx context.Context, authData *domain.AuthData) error {
	if err := authData.Validate(); err != nil {
		return err
	}
	client, err := a.conn.Client(ctx)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(authData)
	if err != nil {
		return fmt.Errorf("failed to encode auth data: %w", err)
	}
	if err := client.Set(ctx, a.key(authData.SaleorAPIURL), raw, 0).Err(); err != nil {
		return fmt.Errorf("%w: failed to save auth data: %w", domain.ErrConnection, err)
	}

	a.logger.Info().Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Auth data saved")
	return nil
}

// Delete removes the record. Deleting an absent record is not an error.
func (a *RedisAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return err
	}
	client, err := a.conn.Client(ctx)
	if err != nil {
		return err
	}
	if err := client.Del(ctx, a.key(saleorAPIURL)).Err(); err != nil {
		return fmt.Errorf("%w: failed to delete auth data: %w", domain.ErrConnection, err)
	}

	a.logger.Info().Str("saleorApiUrl", saleorAPIURL).Msg("Auth data deleted")
	return nil
}

// GetAll is not supported: listing would need a keyspace SCAN shared with other data
func (a *RedisAPL) GetAll(ctx context.Context) ([]*domain.AuthData, error) {
	return nil, fmt.Errorf("%w: redis APL cannot list auth data", domain.ErrUnsupported)
}

// IsReady pings the server
func (a *RedisAPL) IsReady(ctx context.Context) ports.ReadyResult {
	if err := a.conn.Ping(ctx); err != nil {
		return ports.ReadyResult{Ready: false, Error: err}
	}
	return ports.ReadyResult{Ready: true}
}

// IsConfigured reports whether REDIS_URL was provided
func (a *RedisAPL) IsConfigured(ctx context.Context) ports.ConfiguredResult {
	if !a.conn.IsConfigured() {
		return ports.ConfiguredResult{
			Configured: false,
			Error:      fmt.Errorf("%w: REDIS_URL is required", domain.ErrMisconfigured),
		}
	}
	return ports.ConfiguredResult{Configured: true}
}
