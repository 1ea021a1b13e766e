package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"saleor-apps-core/internal/application"
	"saleor-apps-core/internal/domain"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service and storage errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, application.ErrNoCustomerEmail):
		return http.StatusBadRequest
	case errors.Is(err, application.ErrTokenVerification), errors.Is(err, application.ErrRequestVerification):
		return http.StatusUnauthorized
	case errors.Is(err, application.ErrConfigNotFound), errors.Is(err, application.ErrNotInstalled):
		return http.StatusNotFound
	case errors.Is(err, application.ErrNoWebhookHandler), errors.Is(err, domain.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrConnection):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	// driver details stay in the logs
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}
	writeJSONError(w, status, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
