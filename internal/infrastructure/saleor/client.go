package saleor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"saleor-apps-core/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrSaleorAPI is returned when a Saleor instance rejects a call or answers with GraphQL errors
var ErrSaleorAPI = errors.New("saleor api error")

const appIDQuery = `query AppId { app { id } }`

type graphQLRequest struct {
	Query string `json:"query"`
}

type appIDResponse struct {
	Data struct {
		App *struct {
			ID string `json:"id"`
		} `json:"app"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client calls Saleor instances. One client serves every tenant; the target
// URL comes with each call.
type Client struct {
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewClient creates a Saleor client
func NewClient(logger zerolog.Logger) ports.SaleorClient {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Accept", "application/json")

	return &Client{
		httpClient: client,
		logger:     logger.With().Str("client", "saleor").Logger(),
	}
}

// FetchAppID asks the instance which app the token was issued for
func (c *Client) FetchAppID(ctx context.Context, saleorAPIURL, token string) (string, error) {
	var result appIDResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetBody(graphQLRequest{Query: appIDQuery}).
		SetResult(&result).
		Post(saleorAPIURL)
	if err != nil {
		return "", fmt.Errorf("failed to query app id: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: app id query returned %d", ErrSaleorAPI, resp.StatusCode())
	}
	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", ErrSaleorAPI, result.Errors[0].Message)
	}
	if result.Data.App == nil || result.Data.App.ID == "" {
		return "", fmt.Errorf("%w: token is not an app token", ErrSaleorAPI)
	}

	c.logger.Debug().Str("saleorApiUrl", saleorAPIURL).Str("appId", result.Data.App.ID).Msg("Fetched app id")
	return result.Data.App.ID, nil
}

// FetchJWKS downloads the key set from the instance's well-known location
func (c *Client) FetchJWKS(ctx context.Context, saleorAPIURL string) (string, error) {
	jwksURL, err := JWKSURL(saleorAPIURL)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.R().SetContext(ctx).Get(jwksURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch jwks: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: jwks returned %d", ErrSaleorAPI, resp.StatusCode())
	}
	return strings.TrimSpace(resp.String()), nil
}

// JWKSURL derives https://host/.well-known/jwks.json from a Saleor API URL
func JWKSURL(saleorAPIURL string) (string, error) {
	u, err := url.Parse(saleorAPIURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid saleor api url %q", saleorAPIURL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/.well-known/jwks.json"}).String(), nil
}
