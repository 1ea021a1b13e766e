package ports

import "context"

// SaleorClient reads installation details from a Saleor instance during registration
type SaleorClient interface {
	// FetchAppID returns the id of the app the token belongs to
	FetchAppID(ctx context.Context, saleorAPIURL, token string) (string, error)

	// FetchJWKS returns the instance's JSON Web Key Set used to verify webhook signatures
	FetchJWKS(ctx context.Context, saleorAPIURL string) (string, error)
}
