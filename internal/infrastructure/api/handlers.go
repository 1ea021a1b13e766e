package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"saleor-apps-core/internal/application"
	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// SaleorEventHeader carries the event name on webhook deliveries
const SaleorEventHeader = "Saleor-Event"

type handlers struct {
	services Services
	logger   zerolog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	status := h.services.Installations.CheckHealth(r.Context())
	if !status.Healthy() {
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

type registerRequest struct {
	AuthToken string `json:"auth_token"`
}

// register is the token target URL Saleor calls on install
func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var body registerRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	authData, err := h.services.Installations.Register(r.Context(), application.RegisterInput{
		SaleorAPIURL: r.Header.Get(SaleorAPIURLHeader),
		Token:        body.AuthToken,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"appId": authData.AppID})
}

func (h *handlers) webhook(event string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if header := r.Header.Get(SaleorEventHeader); header != "" && !strings.EqualFold(header, event) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unexpected %s %q", SaleorEventHeader, header))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}

		ctx := r.Context()
		webhookEvent := &domain.WebhookEvent{
			Event:        event,
			SaleorAPIURL: domain.GetSaleorAPIURLFromContext(ctx),
			Payload:      payload,
			ReceivedAt:   time.Now().UTC(),
		}

		if err := h.services.Dispatcher.Dispatch(ctx, webhookEvent); err != nil {
			h.logger.Error().
				Err(err).
				Str("event", event).
				Str("saleorApiUrl", webhookEvent.SaleorAPIURL).
				Msg("Failed to dispatch webhook event")
			// non-2xx makes Saleor retry the delivery
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"received": "true"})
	}
}

// events streams processed webhook events of the caller's tenant as server-sent events
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	filter := pubsub.Filter{SaleorAPIURL: domain.GetSaleorAPIURLFromContext(ctx)}
	if events := r.URL.Query().Get("events"); events != "" {
		filter.Events = strings.Split(events, ",")
	}
	sub := h.services.Events.Subscribe(ctx, filter)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Error().Err(err).Str("event", event.Event).Msg("Failed to encode event")
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()
		}
	}
}

func (h *handlers) getRootConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	root, err := h.services.Configs.GetRootConfig(ctx, domain.ScopeFromContext(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, root)
}

func (h *handlers) createConfig(w http.ResponseWriter, r *http.Request) {
	var input application.CreateConfigInput
	if !decodeJSON(w, r, &input) {
		return
	}

	ctx := r.Context()
	config, err := h.services.Configs.CreateConfig(ctx, domain.ScopeFromContext(ctx), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, config)
}

func (h *handlers) removeConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.services.Configs.RemoveConfig(ctx, domain.ScopeFromContext(ctx), chi.URLParam(r, "configId")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) getChannelConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID := chi.URLParam(r, "channelId")
	config, err := h.services.Configs.GetConfigForChannel(ctx, domain.ScopeFromContext(ctx), channelID)
	if err != nil {
		writeError(w, err)
		return
	}
	if config == nil {
		writeJSONError(w, http.StatusNotFound, "no config assigned to channel "+channelID)
		return
	}
	writeJSON(w, http.StatusOK, config)
}

type mapChannelRequest struct {
	ConfigID *string `json:"configId"`
}

func (h *handlers) mapChannel(w http.ResponseWriter, r *http.Request) {
	var body mapChannelRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	ctx := r.Context()
	err := h.services.Configs.MapChannel(ctx, domain.ScopeFromContext(ctx), chi.URLParam(r, "channelId"), body.ConfigID)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) recordTransaction(w http.ResponseWriter, r *http.Request) {
	var transaction domain.RecordedTransaction
	if !decodeJSON(w, r, &transaction) {
		return
	}

	ctx := r.Context()
	if err := h.services.Transactions.RecordPaymentIntent(ctx, domain.ScopeFromContext(ctx), &transaction); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, transaction)
}

func (h *handlers) resolveTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	paymentIntentID := chi.URLParam(r, "paymentIntentId")
	transaction, found, err := h.services.Transactions.ResolveFlow(ctx, domain.ScopeFromContext(ctx), paymentIntentID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeJSONError(w, http.StatusNotFound, "no transaction recorded for "+paymentIntentID)
		return
	}
	writeJSON(w, http.StatusOK, transaction)
}
