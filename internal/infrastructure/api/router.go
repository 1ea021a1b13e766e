package api

import (
	"net/http"

	"saleor-apps-core/internal/application"
	"saleor-apps-core/internal/domain"
	"saleor-apps-core/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Services are the application services the router exposes.
// Configs and Transactions are nil when no data backend is configured.
type Services struct {
	Installations *application.InstallationService
	Configs       *application.ConfigService
	Transactions  *application.TransactionService
	Dispatcher    *application.WebhookDispatcher
	Events        *pubsub.WebhookPubSub
	Gatherer      prometheus.Gatherer
}

// NewRouter builds the HTTP surface of the app
func NewRouter(services Services, allowedOrigins []string, logger zerolog.Logger) http.Handler {
	h := &handlers{services: services, logger: logger}

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", SaleorAPIURLHeader, SaleorEventHeader, SaleorSignatureHeader},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	if services.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(services.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.register)

		r.Group(func(r chi.Router) {
			r.Use(tenantMiddleware(services.Installations, webhookSignature(services.Installations), logger))

			r.Post("/webhooks/order-fully-paid", h.webhook(domain.EventOrderFullyPaid))
			r.Post("/webhooks/app-deleted", h.webhook(domain.EventAppDeleted))
		})

		r.Group(func(r chi.Router) {
			r.Use(tenantMiddleware(services.Installations, dashboardToken(services.Installations), logger))

			if services.Events != nil {
				r.Get("/events", h.events)
			}

			if services.Configs != nil {
				r.Get("/configs", h.getRootConfig)
				r.Post("/configs", h.createConfig)
				r.Delete("/configs/{configId}", h.removeConfig)
				r.Get("/channels/{channelId}/config", h.getChannelConfig)
				r.Put("/channels/{channelId}/config", h.mapChannel)
			}

			if services.Transactions != nil {
				r.Post("/transactions", h.recordTransaction)
				r.Get("/transactions/{paymentIntentId}", h.resolveTransaction)
			}
		})
	})

	return r
}
