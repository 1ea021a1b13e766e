package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// AuthData identifies one app installation against one Saleor instance.
// SaleorAPIURL is the natural key: there is at most one record per URL.
type AuthData struct {
	SaleorAPIURL string `json:"saleorApiUrl" bson:"saleorApiUrl"`
	Token        string `json:"token" bson:"token"`
	AppID        string `json:"appId" bson:"appId"`
	JWKS         string `json:"jwks,omitempty" bson:"jwks,omitempty"`
}

// Validate checks the fields every backend relies on and normalizes
// SaleorAPIURL in place, so the stored key matches later lookups.
func (a *AuthData) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: auth data is nil", ErrInvalidInput)
	}
	saleorAPIURL, err := NewSaleorAPIURL(a.SaleorAPIURL)
	if err != nil {
		return err
	}
	a.SaleorAPIURL = saleorAPIURL
	if a.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidInput)
	}
	if a.AppID == "" {
		return fmt.Errorf("%w: app id is required", ErrInvalidInput)
	}
	return nil
}

// NewSaleorAPIURL validates a tenant API URL and returns it trimmed. It must be
// an absolute http(s) URL with a host and no fragment.
func NewSaleorAPIURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: saleor api url is required", ErrInvalidInput)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid saleor api url %q: %w", ErrInvalidInput, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: saleor api url must use http or https, got %q", ErrInvalidInput, raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: saleor api url has no host: %q", ErrInvalidInput, raw)
	}
	// the URL is used verbatim inside storage keys
	if strings.Contains(raw, "#") {
		return "", fmt.Errorf("%w: saleor api url must not have a fragment: %q", ErrInvalidInput, raw)
	}
	return raw, nil
}
