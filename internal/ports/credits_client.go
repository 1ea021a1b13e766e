package ports

import "context"

// CreditTopUpRequest asks the credits API to add OCR pages to an account
type CreditTopUpRequest struct {
	AccountID string
	Pages     int
	OrderID   string
	Source    string
}

// CreditTopUpResponse is the credits API's answer to a top-up
type CreditTopUpResponse struct {
	AccountID        string  `json:"account_id"`
	PagesAdded       int     `json:"pages_added"`
	NewCreditBalance int     `json:"new_credit_balance"`
	OrderID          *string `json:"order_id"`
	Message          string  `json:"message"`
}

// CreditsClient defines the interface for the OCR credits API
type CreditsClient interface {
	AddCredits(ctx context.Context, request CreditTopUpRequest) (*CreditTopUpResponse, error)
}
