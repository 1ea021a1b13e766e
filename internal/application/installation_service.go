package application

import (
	"context"
	"errors"
	"fmt"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/rs/zerolog"
)

// InstallationService manages app installations stored in the APL
type InstallationService struct {
	apl      ports.APL
	saleor   ports.SaleorClient
	verifier ports.RequestVerifier
	logger   zerolog.Logger
}

// NewInstallationService creates a new installation service
func NewInstallationService(
	apl ports.APL,
	saleor ports.SaleorClient,
	verifier ports.RequestVerifier,
	logger zerolog.Logger,
) *InstallationService {
	return &InstallationService{
		apl:      apl,
		saleor:   saleor,
		verifier: verifier,
		logger:   logger,
	}
}

// RegisterInput is what Saleor sends to the token target URL on install
type RegisterInput struct {
	SaleorAPIURL string
	Token        string
}

// Register stores the installation. The app id and key set are read back from
// the instance so a forged token is rejected before anything is written.
func (s *InstallationService) Register(ctx context.Context, input RegisterInput) (*domain.AuthData, error) {
	saleorAPIURL, err := domain.NewSaleorAPIURL(input.SaleorAPIURL)
	if err != nil {
		return nil, err
	}
	if input.Token == "" {
		return nil, fmt.Errorf("%w: auth token is required", domain.ErrInvalidInput)
	}

	appID, err := s.saleor.FetchAppID(ctx, saleorAPIURL, input.Token)
	if err != nil {
		s.logger.Warn().Err(err).Str("saleorApiUrl", saleorAPIURL).Msg("Could not verify app token")
		return nil, fmt.Errorf("%w: %w", ErrTokenVerification, err)
	}

	jwks, err := s.saleor.FetchJWKS(ctx, saleorAPIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jwks: %w", err)
	}

	authData := &domain.AuthData{
		SaleorAPIURL: saleorAPIURL,
		Token:        input.Token,
		AppID:        appID,
		JWKS:         jwks,
	}
	if err := s.apl.Set(ctx, authData); err != nil {
		s.logger.Error().Err(err).Str("saleorApiUrl", saleorAPIURL).Msg("Failed to save auth data")
		return nil, fmt.Errorf("failed to save auth data: %w", err)
	}

	s.logger.Info().
		Str("saleorApiUrl", saleorAPIURL).
		Str("appId", appID).
		Msg("App registered")

	return authData, nil
}

// Uninstall removes the installation's auth data. Configs and transaction
// records stay keyed by the old app id and are never seen by a reinstall.
func (s *InstallationService) Uninstall(ctx context.Context, saleorAPIURL string) error {
	if err := s.apl.Delete(ctx, saleorAPIURL); err != nil {
		return fmt.Errorf("failed to delete auth data: %w", err)
	}

	s.logger.Info().Str("saleorApiUrl", saleorAPIURL).Msg("App uninstalled")
	return nil
}

// GetAuthData returns the installation, or ErrNotInstalled
func (s *InstallationService) GetAuthData(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	authData, err := s.apl.Get(ctx, saleorAPIURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get auth data: %w", err)
	}

	if authData == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, saleorAPIURL)
	}

	return authData, nil
}

// AuthenticateDashboard checks a bearer token the instance issued to the
// app's dashboard for this installation
func (s *InstallationService) AuthenticateDashboard(ctx context.Context, authData *domain.AuthData, token string) error {
	if token == "" {
		return fmt.Errorf("%w: bearer token is required", ErrRequestVerification)
	}
	return s.verifyWithKeyRefresh(ctx, authData, func(jwks string) error {
		return s.verifier.VerifyToken(token, jwks, authData.AppID)
	})
}

// AuthenticateWebhook checks the Saleor-Signature of a webhook delivery
func (s *InstallationService) AuthenticateWebhook(ctx context.Context, authData *domain.AuthData, signature string, payload []byte) error {
	if signature == "" {
		return fmt.Errorf("%w: webhook signature is required", ErrRequestVerification)
	}
	return s.verifyWithKeyRefresh(ctx, authData, func(jwks string) error {
		return s.verifier.VerifySignature(signature, payload, jwks)
	})
}

// verifyWithKeyRefresh runs verify against the stored key set. When the
// signing key is missing from it, the set is fetched again once and, if the
// fresh set verifies, stored in place of the old one.
func (s *InstallationService) verifyWithKeyRefresh(ctx context.Context, authData *domain.AuthData, verify func(jwks string) error) error {
	err := verify(authData.JWKS)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUnknownSigningKey) {
		return fmt.Errorf("%w: %w", ErrRequestVerification, err)
	}

	jwks, fetchErr := s.saleor.FetchJWKS(ctx, authData.SaleorAPIURL)
	if fetchErr != nil {
		s.logger.Warn().Err(fetchErr).Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Could not refresh jwks")
		return fmt.Errorf("%w: %w", ErrRequestVerification, err)
	}
	if jwks == authData.JWKS {
		return fmt.Errorf("%w: %w", ErrRequestVerification, err)
	}
	if err := verify(jwks); err != nil {
		return fmt.Errorf("%w: %w", ErrRequestVerification, err)
	}

	refreshed := *authData
	refreshed.JWKS = jwks
	if err := s.apl.Set(ctx, &refreshed); err != nil {
		// the request is authentic; the next one refetches
		s.logger.Error().Err(err).Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Failed to store refreshed jwks")
		return nil
	}
	s.logger.Info().Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Refreshed jwks")
	return nil
}

// ListInstallations returns every installation. Backends that cannot list
// return domain.ErrUnsupported.
func (s *InstallationService) ListInstallations(ctx context.Context) ([]*domain.AuthData, error) {
	return s.apl.GetAll(ctx)
}

// HealthStatus is the outcome of the APL health check
type HealthStatus struct {
	Configured bool   `json:"configured"`
	Ready      bool   `json:"ready"`
	Error      string `json:"error,omitempty"`
}

// Healthy reports whether the store is usable
func (h HealthStatus) Healthy() bool {
	return h.Configured && h.Ready
}

// CheckHealth checks the APL. Readiness is only checked once configuration passes.
func (s *InstallationService) CheckHealth(ctx context.Context) HealthStatus {
	configured := s.apl.IsConfigured(ctx)
	if !configured.Configured {
		return HealthStatus{Error: errString(configured.Error)}
	}

	ready := s.apl.IsReady(ctx)
	return HealthStatus{Configured: true, Ready: ready.Ready, Error: errString(ready.Error)}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
