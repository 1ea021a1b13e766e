package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"saleor-apps-core/internal/application"
	"saleor-apps-core/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const (
	// SaleorAPIURLHeader identifies the tenant on every Saleor call
	SaleorAPIURLHeader = "Saleor-Api-Url"

	// SaleorSignatureHeader carries the detached JWS of a webhook body
	SaleorSignatureHeader = "Saleor-Signature"
)

// requestLogger logs one line per request with status and latency
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			event := logger.Info()
			if ww.Status() >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("requestId", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("saleorApiUrl", r.Header.Get(SaleorAPIURLHeader)).
				Msg("Request handled")
		})
	}
}

// securityHeaders sets the headers every response carries
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		next.ServeHTTP(w, r)
	})
}

// authenticator checks that a request was issued for the resolved installation
type authenticator func(r *http.Request, authData *domain.AuthData) error

// dashboardToken requires the bearer token Saleor hands the app's dashboard
func dashboardToken(installations *application.InstallationService) authenticator {
	return func(r *http.Request, authData *domain.AuthData) error {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			token = ""
		}
		return installations.AuthenticateDashboard(r.Context(), authData, strings.TrimSpace(token))
	}
}

// webhookSignature requires a Saleor-Signature over the raw body. The body is
// put back for the handler.
func webhookSignature(installations *application.InstallationService) authenticator {
	return func(r *http.Request, authData *domain.AuthData) error {
		payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
		if err != nil {
			return fmt.Errorf("%w: failed to read request body", domain.ErrInvalidInput)
		}
		if len(payload) > maxBodyBytes {
			return fmt.Errorf("%w: request body too large", domain.ErrInvalidInput)
		}
		r.Body = io.NopCloser(bytes.NewReader(payload))

		return installations.AuthenticateWebhook(r.Context(), authData, r.Header.Get(SaleorSignatureHeader), payload)
	}
}

// tenantMiddleware resolves the Saleor-Api-Url header to an installation,
// authenticates the request against it, and puts its URL and app id in the
// request context. Unknown tenants and unverified requests get 401.
func tenantMiddleware(installations *application.InstallationService, authenticate authenticator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			saleorAPIURL := r.Header.Get(SaleorAPIURLHeader)
			if saleorAPIURL == "" {
				writeJSONError(w, http.StatusBadRequest, SaleorAPIURLHeader+" header is required")
				return
			}

			authData, err := installations.GetAuthData(r.Context(), saleorAPIURL)
			if errors.Is(err, application.ErrNotInstalled) {
				logger.Warn().Str("saleorApiUrl", saleorAPIURL).Msg("Request from unknown tenant")
				writeJSONError(w, http.StatusUnauthorized, "app is not installed for this Saleor instance")
				return
			}
			if errors.Is(err, domain.ErrInvalidInput) {
				writeError(w, err)
				return
			}
			if err != nil {
				logger.Error().Err(err).Str("saleorApiUrl", saleorAPIURL).Msg("Failed to resolve tenant")
				writeJSONError(w, http.StatusServiceUnavailable, "auth store unavailable")
				return
			}

			if err := authenticate(r, authData); err != nil {
				logger.Warn().Err(err).Str("saleorApiUrl", saleorAPIURL).Str("path", r.URL.Path).Msg("Rejected unauthenticated request")
				writeError(w, err)
				return
			}

			ctx := domain.WithSaleorAPIURL(r.Context(), authData.SaleorAPIURL)
			ctx = domain.WithAppID(ctx, authData.AppID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
