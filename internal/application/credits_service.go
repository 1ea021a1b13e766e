package application

import (
	"context"
	"fmt"
	"strings"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/rs/zerolog"
)

// CreditsSource tags top-ups made for paid orders
const CreditsSource = "saleor-ocr-credits"

// SKUPages maps product variant SKUs of the OCR channel to the pages they grant
var SKUPages = map[string]int{
	"OCR-500":   500,
	"OCR-1000":  1000,
	"OCR-2000":  2000,
	"OCR-5000":  5000,
	"OCR-10000": 10000,
	"OCR-25000": 25000,
}

// PagesForSKU returns the pages one unit of sku grants, 0 for unknown SKUs
func PagesForSKU(sku string) int {
	return SKUPages[sku]
}

// ProvisionResult summarizes the top-ups made for an order
type ProvisionResult struct {
	AccountID    string `json:"accountId"`
	CreditsAdded int    `json:"creditsAdded"`
}

// CreditsService provisions OCR credits for paid orders
type CreditsService struct {
	client ports.CreditsClient
	logger zerolog.Logger
}

// NewCreditsService creates a new credits service
func NewCreditsService(client ports.CreditsClient, logger zerolog.Logger) *CreditsService {
	return &CreditsService{
		client: client,
		logger: logger,
	}
}

// ProvisionOrder adds pages x quantity for every credits line of the order to
// the buyer's account, keyed by email. Lines without a known SKU are skipped.
// The first failed top-up aborts the order so the webhook is redelivered.
func (s *CreditsService) ProvisionOrder(ctx context.Context, order *domain.Order) (*ProvisionResult, error) {
	accountID := strings.TrimSpace(order.UserEmail)
	if accountID == "" {
		s.logger.Error().Str("orderId", order.ID).Msg("No customer email in order")
		return nil, fmt.Errorf("%w: order %s", ErrNoCustomerEmail, order.ID)
	}

	result := &ProvisionResult{AccountID: accountID}
	for _, line := range order.Lines {
		if line.ProductSKU == "" {
			s.logger.Warn().Str("lineId", line.ID).Msg("Line item has no SKU")
			continue
		}

		pages := PagesForSKU(line.ProductSKU)
		if pages == 0 {
			s.logger.Info().Str("sku", line.ProductSKU).Msg("SKU is not an OCR credits product")
			continue
		}

		credits := pages * line.Quantity
		resp, err := s.client.AddCredits(ctx, ports.CreditTopUpRequest{
			AccountID: accountID,
			Pages:     credits,
			OrderID:   order.ID,
			Source:    CreditsSource,
		})
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("sku", line.ProductSKU).
				Str("accountId", accountID).
				Msg("Failed to add credits")
			return nil, fmt.Errorf("failed to provision credits for %s: %w", line.ProductSKU, err)
		}

		s.logger.Info().
			Str("accountId", accountID).
			Str("sku", line.ProductSKU).
			Int("pagesAdded", resp.PagesAdded).
			Int("newBalance", resp.NewCreditBalance).
			Msg("Credits added for line item")
		result.CreditsAdded += credits
	}

	if result.CreditsAdded == 0 {
		s.logger.Info().Str("orderId", order.ID).Msg("No OCR credit products found in order")
	}
	return result, nil
}
