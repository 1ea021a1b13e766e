package webhook_handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"saleor-apps-core/internal/application"
	"saleor-apps-core/internal/domain"

	"github.com/rs/zerolog"
)

type orderFullyPaidPayload struct {
	Order *domain.Order `json:"order"`
}

// OrderFullyPaidHandler provisions OCR credits when an order is fully paid
type OrderFullyPaidHandler struct {
	credits *application.CreditsService
	logger  zerolog.Logger
}

// NewOrderFullyPaidHandler creates a new order fully paid webhook handler
func NewOrderFullyPaidHandler(credits *application.CreditsService, logger zerolog.Logger) *OrderFullyPaidHandler {
	return &OrderFullyPaidHandler{
		credits: credits,
		logger:  logger,
	}
}

// CanHandle returns true if this handler can process the given event
func (h *OrderFullyPaidHandler) CanHandle(event string) bool {
	return event == domain.EventOrderFullyPaid
}

// Handle processes an ORDER_FULLY_PAID event
func (h *OrderFullyPaidHandler) Handle(ctx context.Context, event *domain.WebhookEvent) error {
	var payload orderFullyPaidPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("%w: failed to parse order payload: %w", domain.ErrInvalidInput, err)
	}
	if payload.Order == nil {
		return fmt.Errorf("%w: no order in payload", domain.ErrInvalidInput)
	}

	h.logger.Info().
		Str("saleorApiUrl", event.SaleorAPIURL).
		Str("orderId", payload.Order.ID).
		Str("orderNumber", payload.Order.Number).
		Msg("Processing ORDER_FULLY_PAID")

	result, err := h.credits.ProvisionOrder(ctx, payload.Order)
	if err != nil {
		return err
	}

	h.logger.Info().
		Str("orderId", payload.Order.ID).
		Str("accountId", result.AccountID).
		Int("creditsAdded", result.CreditsAdded).
		Msg("Order processed")
	return nil
}
