package credits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"saleor-apps-core/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultSource tags top-ups made by this service
const DefaultSource = "saleor"

// ErrCreditsAPI is returned when the credits API answers with a non-2xx status
var ErrCreditsAPI = errors.New("credits api error")

type topUpBody struct {
	Pages   int    `json:"pages"`
	OrderID string `json:"order_id"`
	Source  string `json:"source"`
}

// Client talks to the metered OCR credits API
type Client struct {
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewClient creates a credits API client. Top-ups are not idempotent on the
// remote side, so requests are never retried.
func NewClient(apiURL, apiKey string, logger zerolog.Logger) ports.CreditsClient {
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(apiURL, "/")).
		SetTimeout(30*time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger.With().Str("client", "credits").Logger(),
	}
}

// AddCredits adds pages to an account. The account is created remotely on first use.
func (c *Client) AddCredits(ctx context.Context, request ports.CreditTopUpRequest) (*ports.CreditTopUpResponse, error) {
	source := request.Source
	if source == "" {
		source = DefaultSource
	}

	c.logger.Info().
		Str("accountId", request.AccountID).
		Int("pages", request.Pages).
		Str("orderId", request.OrderID).
		Msg("Adding credits")

	var result ports.CreditTopUpResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetPathParam("accountId", request.AccountID).
		SetBody(topUpBody{Pages: request.Pages, OrderID: request.OrderID, Source: source}).
		SetResult(&result).
		Post("/v1/accounts/{accountId}/credits")
	if err != nil {
		c.logger.Error().Err(err).Str("accountId", request.AccountID).Msg("Credits API call failed")
		return nil, fmt.Errorf("failed to call credits api: %w", err)
	}

	if resp.IsError() {
		body := strings.TrimSpace(resp.String())
		c.logger.Error().
			Int("status", resp.StatusCode()).
			Str("error", body).
			Msg("Credits API returned error")
		return nil, fmt.Errorf("%w: %d - %s", ErrCreditsAPI, resp.StatusCode(), body)
	}

	c.logger.Info().
		Str("accountId", request.AccountID).
		Int("pagesAdded", result.PagesAdded).
		Int("newBalance", result.NewCreditBalance).
		Msg("Credits added")

	return &result, nil
}
