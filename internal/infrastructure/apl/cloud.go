package apl

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// cloudAuthData is the wire format of the remote APL service
type cloudAuthData struct {
	SaleorAPIURL string `json:"saleor_api_url"`
	AppID        string `json:"app_id"`
	Token        string `json:"token"`
	JWKS         string `json:"jwks,omitempty"`
	Domain       string `json:"domain,omitempty"`
}

func (c *cloudAuthData) toDomain() *domain.AuthData {
	return &domain.AuthData{
		SaleorAPIURL: c.SaleorAPIURL,
		AppID:        c.AppID,
		Token:        c.Token,
		JWKS:         c.JWKS,
	}
}

type cloudPage struct {
	Count    int             `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []cloudAuthData `json:"results"`
}

// CloudAPL delegates storage to a remote REST service (the saleor-cloud APL).
// Records are addressed as <endpoint>/<base64url(saleorApiUrl)>.
type CloudAPL struct {
	endpoint   string
	token      string
	httpClient *resty.Client
	logger     zerolog.Logger
}

// NewCloudAPL creates a REST-backed APL
func NewCloudAPL(endpoint, token string, logger zerolog.Logger) *CloudAPL {
	endpoint = strings.TrimSuffix(endpoint, "/")
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(15*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &CloudAPL{
		endpoint:   endpoint,
		token:      token,
		httpClient: client,
		logger:     logger.With().Str("apl", "saleor-cloud").Logger(),
	}
}

var _ ports.APL = (*CloudAPL)(nil)

func resourceID(saleorAPIURL string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(saleorAPIURL))
}

func statusError(op string, resp *resty.Response) error {
	return fmt.Errorf("%w: %s returned %d: %s", domain.ErrConnection, op, resp.StatusCode(), strings.TrimSpace(resp.String()))
}

// Get returns the record for the URL, or nil when the service answers 404
func (a *CloudAPL) Get(ctx context.Context, saleorAPIURL string) (*domain.AuthData, error) {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return nil, err
	}
	var result cloudAuthData
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		Get("/" + resourceID(saleorAPIURL))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get auth data: %w", domain.ErrConnection, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, statusError("get auth data", resp)
	}

	return result.toDomain(), nil
}

// Set upserts the record
func (a *CloudAPL) Set(ctx context.Context, authData *domain.AuthData) error {
	if err := authData.Validate(); err != nil {
		return err
	}

	body := cloudAuthData{
		SaleorAPIURL: authData.SaleorAPIURL,
		AppID:        authData.AppID,
		Token:        authData.Token,
		JWKS:         authData.JWKS,
		Domain:       hostOf(authData.SaleorAPIURL),
	}
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post("")
	if err != nil {
		return fmt.Errorf("%w: failed to save auth data: %w", domain.ErrConnection, err)
	}
	if resp.IsError() {
		return statusError("save auth data", resp)
	}

	a.logger.Info().Str("saleorApiUrl", authData.SaleorAPIURL).Msg("Auth data saved")
	return nil
}

// Delete removes the record. A 404 counts as success.
func (a *CloudAPL) Delete(ctx context.Context, saleorAPIURL string) error {
	saleorAPIURL, err := domain.NewSaleorAPIURL(saleorAPIURL)
	if err != nil {
		return err
	}
	resp, err := a.httpClient.R().
		SetContext(ctx).
		Delete("/" + resourceID(saleorAPIURL))
	if err != nil {
		return fmt.Errorf("%w: failed to delete auth data: %w", domain.ErrConnection, err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return statusError("delete auth data", resp)
	}

	a.logger.Info().Str("saleorApiUrl", saleorAPIURL).Msg("Auth data deleted")
	return nil
}

// GetAll follows the service's pagination until next is empty
func (a *CloudAPL) GetAll(ctx context.Context) ([]*domain.AuthData, error) {
	all := []*domain.AuthData{}
	next := a.endpoint
	seen := map[string]bool{}

	for next != "" && !seen[next] {
		seen[next] = true

		var page cloudPage
		resp, err := a.httpClient.R().
			SetContext(ctx).
			SetResult(&page).
			Get(next)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list auth data: %w", domain.ErrConnection, err)
		}
		if resp.IsError() {
			return nil, statusError("list auth data", resp)
		}

		for i := range page.Results {
			all = append(all, page.Results[i].toDomain())
		}

		next = ""
		if page.Next != nil {
			next = *page.Next
		}
	}

	return all, nil
}

// IsReady checks the service answers an authorized list request
func (a *CloudAPL) IsReady(ctx context.Context) ports.ReadyResult {
	resp, err := a.httpClient.R().
		SetContext(ctx).
		SetQueryParam("limit", "1").
		Get("")
	if err != nil {
		return ports.ReadyResult{Ready: false, Error: fmt.Errorf("%w: %w", domain.ErrConnection, err)}
	}
	if resp.IsError() {
		return ports.ReadyResult{Ready: false, Error: statusError("readiness check", resp)}
	}
	return ports.ReadyResult{Ready: true}
}

// IsConfigured reports whether the endpoint and token were provided
func (a *CloudAPL) IsConfigured(ctx context.Context) ports.ConfiguredResult {
	if a.endpoint == "" {
		return ports.ConfiguredResult{Error: fmt.Errorf("%w: REST_APL_ENDPOINT is required", domain.ErrMisconfigured)}
	}
	if a.token == "" {
		return ports.ConfiguredResult{Error: fmt.Errorf("%w: REST_APL_TOKEN is required", domain.ErrMisconfigured)}
	}
	return ports.ConfiguredResult{Configured: true}
}

func hostOf(saleorAPIURL string) string {
	u, err := url.Parse(saleorAPIURL)
	if err != nil {
		return ""
	}
	return u.Host
}
