package pubsub

import (
	"context"
	"slices"
	"sync"

	"saleor-apps-core/internal/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const subscriptionBuffer = 16

// Subscription receives processed webhook events until its context ends
type Subscription struct {
	ID     string
	Filter Filter
	Events chan *domain.WebhookEvent

	cancel context.CancelFunc
}

// Filter narrows a subscription. Zero fields match everything.
type Filter struct {
	Events       []string
	SaleorAPIURL string
}

func (f Filter) matches(event *domain.WebhookEvent) bool {
	if len(f.Events) > 0 && !slices.Contains(f.Events, event.Event) {
		return false
	}
	return f.SaleorAPIURL == "" || f.SaleorAPIURL == event.SaleorAPIURL
}

// WebhookPubSub fans processed webhook events out to in-process subscribers.
// Delivery is best effort: a subscriber with a full buffer misses events.
type WebhookPubSub struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	logger        zerolog.Logger
}

// NewWebhookPubSub creates a new webhook pub/sub
func NewWebhookPubSub(logger zerolog.Logger) *WebhookPubSub {
	return &WebhookPubSub{
		subscriptions: make(map[string]*Subscription),
		logger:        logger,
	}
}

// Subscribe registers a subscription that is removed when ctx ends
func (ps *WebhookPubSub) Subscribe(ctx context.Context, filter Filter) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		ID:     uuid.NewString(),
		Filter: filter,
		Events: make(chan *domain.WebhookEvent, subscriptionBuffer),
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.subscriptions[sub.ID] = sub
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("subscriptionId", sub.ID).
		Str("saleorApiUrl", filter.SaleorAPIURL).
		Msg("Webhook subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(sub.ID)
	}()

	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (ps *WebhookPubSub) Unsubscribe(id string) {
	ps.mu.Lock()
	sub, ok := ps.subscriptions[id]
	if ok {
		delete(ps.subscriptions, id)
		close(sub.Events)
	}
	ps.mu.Unlock()

	if ok {
		sub.cancel()
		ps.logger.Debug().Str("subscriptionId", id).Msg("Webhook subscription removed")
	}
}

// Publish delivers the event to every matching subscription without blocking
func (ps *WebhookPubSub) Publish(event *domain.WebhookEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, sub := range ps.subscriptions {
		if !sub.Filter.matches(event) {
			continue
		}
		select {
		case sub.Events <- event:
			delivered++
		default:
			ps.logger.Warn().
				Str("subscriptionId", sub.ID).
				Msg("Subscription buffer full, dropping event")
		}
	}

	if delivered > 0 {
		ps.logger.Debug().
			Str("event", event.Event).
			Str("saleorApiUrl", event.SaleorAPIURL).
			Int("subscribers", delivered).
			Msg("Published webhook event")
	}
}

// Len returns the number of active subscriptions
func (ps *WebhookPubSub) Len() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscriptions)
}
