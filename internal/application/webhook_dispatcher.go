package application

import (
	"context"
	"errors"
	"fmt"

	"saleor-apps-core/internal/domain"

	"github.com/rs/zerolog"
)

// ErrNoWebhookHandler means no registered handler accepts the event
var ErrNoWebhookHandler = errors.New("no handler for webhook event")

// WebhookHandler processes one kind of Saleor webhook event
type WebhookHandler interface {
	CanHandle(event string) bool
	Handle(ctx context.Context, event *domain.WebhookEvent) error
}

// EventPublisher receives every event that was handled successfully
type EventPublisher interface {
	Publish(event *domain.WebhookEvent)
}

// WebhookDispatcher routes webhook events to their handlers
type WebhookDispatcher struct {
	handlers  []WebhookHandler
	publisher EventPublisher
	logger    zerolog.Logger
}

// NewWebhookDispatcher creates a dispatcher. publisher may be nil.
func NewWebhookDispatcher(publisher EventPublisher, logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		publisher: publisher,
		logger:    logger,
	}
}

// RegisterHandler adds a handler. Handlers run in registration order.
func (d *WebhookDispatcher) RegisterHandler(handler WebhookHandler) {
	d.handlers = append(d.handlers, handler)
}

// Dispatch runs every handler that accepts the event and stops at the first failure
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event *domain.WebhookEvent) error {
	handled := false
	for _, handler := range d.handlers {
		if !handler.CanHandle(event.Event) {
			continue
		}
		handled = true
		if err := handler.Handle(ctx, event); err != nil {
			d.logger.Error().
				Err(err).
				Str("event", event.Event).
				Str("saleorApiUrl", event.SaleorAPIURL).
				Msg("Webhook handler failed")
			return err
		}
	}

	if !handled {
		return fmt.Errorf("%w: %s", ErrNoWebhookHandler, event.Event)
	}

	if d.publisher != nil {
		d.publisher.Publish(event)
	}
	return nil
}
