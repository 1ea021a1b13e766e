package domain

import (
	"fmt"
	"strings"
)

// InstallationScope identifies one app installation within a tenant.
// Config and transaction records are keyed by it, so a reinstall (new app id)
// does not see the previous installation's data.
type InstallationScope struct {
	SaleorAPIURL string
	AppID        string
}

// Validate checks that both parts of the scope are present
func (s InstallationScope) Validate() error {
	if _, err := NewSaleorAPIURL(s.SaleorAPIURL); err != nil {
		return err
	}
	if s.AppID == "" {
		return fmt.Errorf("%w: app id is required", ErrInvalidInput)
	}
	return nil
}

// StripeConfig is a named payment configuration for one installation.
// RestrictedKey and WebhookSecret are secrets and are only ever persisted encrypted.
type StripeConfig struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PublishableKey string `json:"publishableKey"`
	RestrictedKey  string `json:"-"`
	WebhookID      string `json:"webhookId"`
	WebhookSecret  string `json:"-"`
}

// NewStripeConfig creates a StripeConfig with validation
func NewStripeConfig(id, name, publishableKey, restrictedKey, webhookID, webhookSecret string) (*StripeConfig, error) {
	config := &StripeConfig{
		ID:             id,
		Name:           name,
		PublishableKey: publishableKey,
		RestrictedKey:  restrictedKey,
		WebhookID:      webhookID,
		WebhookSecret:  webhookSecret,
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required fields and key prefixes
func (c *StripeConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: config id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: config name is required", ErrInvalidInput)
	}
	if !strings.HasPrefix(c.PublishableKey, "pk_") {
		return fmt.Errorf("%w: publishable key must start with pk_", ErrInvalidInput)
	}
	if !strings.HasPrefix(c.RestrictedKey, "rk_") {
		return fmt.Errorf("%w: restricted key must start with rk_", ErrInvalidInput)
	}
	if !strings.HasPrefix(c.WebhookSecret, "whsec_") {
		return fmt.Errorf("%w: webhook secret must start with whsec_", ErrInvalidInput)
	}
	return nil
}

// AppRootConfig is every config of an installation plus the channel mapping,
// as consumed by the admin UI.
type AppRootConfig struct {
	ChannelConfigMapping map[string]string        `json:"channelConfigMapping"`
	StripeConfigsByID    map[string]*StripeConfig `json:"stripeConfigsById"`
}

// NewAppRootConfig creates an AppRootConfig, never with nil maps
func NewAppRootConfig(mapping map[string]string, configs map[string]*StripeConfig) *AppRootConfig {
	if mapping == nil {
		mapping = map[string]string{}
	}
	if configs == nil {
		configs = map[string]*StripeConfig{}
	}
	return &AppRootConfig{
		ChannelConfigMapping: mapping,
		StripeConfigsByID:    configs,
	}
}

// GetConfigForChannel resolves a channel through the mapping.
// Unmapped channels and mappings to removed configs both yield nil.
func (r *AppRootConfig) GetConfigForChannel(channelID string) *StripeConfig {
	configID, ok := r.ChannelConfigMapping[channelID]
	if !ok || configID == "" {
		return nil
	}
	return r.StripeConfigsByID[configID]
}

// GetChannelsForConfig lists the channels currently mapped to a config
func (r *AppRootConfig) GetChannelsForConfig(configID string) []string {
	var channels []string
	for channelID, mapped := range r.ChannelConfigMapping {
		if mapped == configID {
			channels = append(channels, channelID)
		}
	}
	return channels
}

// StripeConfigAccess is the lookup descriptor for a single config.
// Exactly one of ConfigID and ChannelID is set.
type StripeConfigAccess struct {
	InstallationScope
	ConfigID  string
	ChannelID string
}

// ByConfigID looks a config up directly
func ByConfigID(scope InstallationScope, configID string) StripeConfigAccess {
	return StripeConfigAccess{InstallationScope: scope, ConfigID: configID}
}

// ByChannelID looks a config up through the channel mapping
func ByChannelID(scope InstallationScope, channelID string) StripeConfigAccess {
	return StripeConfigAccess{InstallationScope: scope, ChannelID: channelID}
}

// Validate checks the scope and that exactly one lookup attribute is set
func (a StripeConfigAccess) Validate() error {
	if err := a.InstallationScope.Validate(); err != nil {
		return err
	}
	if (a.ConfigID == "") == (a.ChannelID == "") {
		return fmt.Errorf("%w: exactly one of config id and channel id must be set", ErrInvalidInput)
	}
	return nil
}
