package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	saleorAPIURLKey contextKey = "saleor_api_url"
	appIDKey        contextKey = "app_id"
)

// WithSaleorAPIURL stores the tenant API URL in the context
func WithSaleorAPIURL(ctx context.Context, saleorAPIURL string) context.Context {
	return context.WithValue(ctx, saleorAPIURLKey, saleorAPIURL)
}

// GetSaleorAPIURLFromContext returns the tenant API URL, or "" if unset
func GetSaleorAPIURLFromContext(ctx context.Context) string {
	v, _ := ctx.Value(saleorAPIURLKey).(string)
	return v
}

// WithAppID stores the installation's app id in the context
func WithAppID(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, appIDKey, appID)
}

// GetAppIDFromContext returns the app id, or "" if unset
func GetAppIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(appIDKey).(string)
	return v
}

// ScopeFromContext builds the installation scope set by the tenant middleware
func ScopeFromContext(ctx context.Context) InstallationScope {
	return InstallationScope{
		SaleorAPIURL: GetSaleorAPIURLFromContext(ctx),
		AppID:        GetAppIDFromContext(ctx),
	}
}
