package ports

import (
	"context"

	"saleor-apps-core/internal/domain"
)

// ReadyResult is the outcome of a readiness check. Error explains a false Ready.
type ReadyResult struct {
	Ready bool
	Error error
}

// ConfiguredResult is the outcome of a configuration check. Error explains a false Configured.
type ConfiguredResult struct {
	Configured bool
	Error      error
}

// APL (Auth Persistence Layer) stores one AuthData per Saleor API URL.
// Every backend implements the same semantics:
//   - Get returns (nil, nil) when nothing is stored for the URL
//   - Set is an upsert keyed on AuthData.SaleorAPIURL
//   - Delete of an absent key succeeds
//   - GetAll may return domain.ErrUnsupported
//   - IsReady and IsConfigured never fail; problems are reported in the result
type APL interface {
	Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error)
	Set(ctx context.Context, authData *domain.AuthData) error
	Delete(ctx context.Context, saleorAPIURL string) error
	GetAll(ctx context.Context) ([]*domain.AuthData, error)
	IsReady(ctx context.Context) ReadyResult
	IsConfigured(ctx context.Context) ConfiguredResult
}
