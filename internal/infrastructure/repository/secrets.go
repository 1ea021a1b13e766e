package repository

import (
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"
)

// sealStripeConfig returns a copy of config with its secret fields encrypted
func sealStripeConfig(encryptor ports.EncryptionService, config *domain.StripeConfig) (*domain.StripeConfig, error) {
	restrictedKey, err := encryptor.Encrypt(config.RestrictedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt restricted key: %w", err)
	}
	webhookSecret, err := encryptor.Encrypt(config.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt webhook secret: %w", err)
	}

	sealed := *config
	sealed.RestrictedKey = restrictedKey
	sealed.WebhookSecret = webhookSecret
	return &sealed, nil
}

// openStripeConfig decrypts the secret fields of a stored config in place and
// checks the result is a valid config
func openStripeConfig(encryptor ports.EncryptionService, sealed *domain.StripeConfig) (*domain.StripeConfig, error) {
	restrictedKey, err := encryptor.Decrypt(sealed.RestrictedKey)
	if err != nil {
		return nil, fmt.Errorf("config %s restricted key: %w", sealed.ID, err)
	}
	webhookSecret, err := encryptor.Decrypt(sealed.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("config %s webhook secret: %w", sealed.ID, err)
	}

	sealed.RestrictedKey = restrictedKey
	sealed.WebhookSecret = webhookSecret
	// a wrong key can still produce valid padding; garbage never carries the key prefixes
	if err := sealed.Validate(); err != nil {
		return nil, fmt.Errorf("%w: config %s: %w", domain.ErrDecryption, sealed.ID, err)
	}
	return sealed, nil
}

func validateConfigWrite(scope domain.InstallationScope, config *domain.StripeConfig) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if config == nil {
		return fmt.Errorf("%w: config is nil", domain.ErrInvalidInput)
	}
	return config.Validate()
}

func validateMappingWrite(scope domain.InstallationScope, channelID string, configID *string) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if channelID == "" {
		return fmt.Errorf("%w: channel id is required", domain.ErrInvalidInput)
	}
	if configID != nil && *configID == "" {
		return fmt.Errorf("%w: config id must not be empty, pass nil to unassign", domain.ErrInvalidInput)
	}
	return nil
}

func validateTransactionWrite(scope domain.InstallationScope, transaction *domain.RecordedTransaction) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return transaction.Validate()
}
