package ports

import (
	"context"

	"saleor-apps-core/internal/domain"
)

// AppConfigRepository defines the interface for per-installation config persistence
type AppConfigRepository interface {
	// SaveStripeConfig upserts a config, encrypting its secrets
	SaveStripeConfig(ctx context.Context, scope domain.InstallationScope, config *domain.StripeConfig) error

	// GetStripeConfig resolves a config by id or through the channel mapping.
	// Returns (nil, nil) for an unknown id, an unmapped channel or a dangling mapping.
	GetStripeConfig(ctx context.Context, access domain.StripeConfigAccess) (*domain.StripeConfig, error)

	// GetRootConfig returns all configs and the full channel mapping
	GetRootConfig(ctx context.Context, scope domain.InstallationScope) (*domain.AppRootConfig, error)

	// RemoveConfig deletes a config. Mappings pointing at it are left in place.
	RemoveConfig(ctx context.Context, scope domain.InstallationScope, configID string) error

	// UpdateMapping points a channel at a config, or clears it when configID is nil
	UpdateMapping(ctx context.Context, scope domain.InstallationScope, channelID string, configID *string) error
}

// EncryptionService encrypts secrets at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}
