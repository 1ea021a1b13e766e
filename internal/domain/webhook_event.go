package domain

import "time"

// Saleor webhook event names handled by the apps
const (
	EventOrderFullyPaid = "ORDER_FULLY_PAID"
	EventAppDeleted     = "APP_DELETED"
)

// WebhookEvent is a delivery received from a Saleor instance
type WebhookEvent struct {
	Event        string    `json:"event"`
	SaleorAPIURL string    `json:"saleorApiUrl"`
	Payload      []byte    `json:"payload"`
	ReceivedAt   time.Time `json:"receivedAt"`
}
