package webhook_handlers

import (
	"context"

	"saleor-apps-core/internal/application"
	"saleor-apps-core/internal/domain"

	"github.com/rs/zerolog"
)

// AppUninstalledHandler removes the installation when Saleor deletes the app
type AppUninstalledHandler struct {
	installations *application.InstallationService
	logger        zerolog.Logger
}

// NewAppUninstalledHandler creates a new app uninstalled webhook handler
func NewAppUninstalledHandler(installations *application.InstallationService, logger zerolog.Logger) *AppUninstalledHandler {
	return &AppUninstalledHandler{
		installations: installations,
		logger:        logger,
	}
}

// CanHandle returns true if this handler can process the given event
func (h *AppUninstalledHandler) CanHandle(event string) bool {
	return event == domain.EventAppDeleted
}

// Handle deletes the tenant's auth data. Configs and transaction records are
// kept; they are scoped to the old app id.
func (h *AppUninstalledHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	h.logger.Info().
		Str("saleorApiUrl", event.SaleorAPIURL).
		Msg("Processing APP_DELETED")

	return h.installations.Uninstall(ctx, event.SaleorAPIURL)
}
