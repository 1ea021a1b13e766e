package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"saleor-apps-core/internal/application"
	"saleor-apps-core/internal/application/webhook_handlers"
	"saleor-apps-core/internal/config"
	"saleor-apps-core/internal/domain"
	apiinfra "saleor-apps-core/internal/infrastructure/api"
	"saleor-apps-core/internal/infrastructure/credits"
	"saleor-apps-core/internal/infrastructure/pubsub"
	"saleor-apps-core/internal/infrastructure/saleor"
	"saleor-apps-core/internal/infrastructure/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("Invalid log level")
	}
	logger = logger.Level(level)

	// Storage connects lazily, so this never dials a backend
	store, err := storage.New(cfg, logger, storage.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	// Initialize application services
	installationService := application.NewInstallationService(store.APL, saleor.NewClient(logger), saleor.NewVerifier(), logger)

	services := apiinfra.Services{
		Installations: installationService,
		Gatherer:      prometheus.DefaultGatherer,
	}
	if store.AppConfigs != nil {
		services.Configs = application.NewConfigService(store.AppConfigs, logger)
	}
	if store.Transactions != nil {
		services.Transactions = application.NewTransactionService(store.Transactions, logger)
	}

	// Initialize webhook pub/sub and dispatcher
	webhookPubSub := pubsub.NewWebhookPubSub(logger)
	webhookDispatcher := application.NewWebhookDispatcher(webhookPubSub, logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(installationService, logger))
	if cfg.HasCredits() {
		creditsService := application.NewCreditsService(credits.NewClient(cfg.CreditsAPIURL, cfg.CreditsAPIKey, logger), logger)
		webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderFullyPaidHandler(creditsService, logger))
	} else {
		logger.Warn().Msg("Credits API not configured, ORDER_FULLY_PAID webhooks will be rejected")
	}
	services.Dispatcher = webhookDispatcher
	services.Events = webhookPubSub

	logStartupState(logger, cfg, installationService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apiinfra.NewRouter(services, cfg.AllowedOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shut down server")
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to close storage")
	}
}

// logStartupState reports the selected backends and, where the APL can list,
// how many installations it holds. This is the first backend call of the process.
func logStartupState(logger zerolog.Logger, cfg *config.Config, installations *application.InstallationService) {
	logger.Info().
		Str("apl", cfg.APL).
		Str("dataBackend", cfg.DataBackend).
		Bool("credits", cfg.HasCredits()).
		Msg("Storage selected")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	all, err := installations.ListInstallations(ctx)
	switch {
	case errors.Is(err, domain.ErrUnsupported):
		return
	case err != nil:
		logger.Warn().Err(err).Msg("Could not list installations")
	default:
		logger.Info().Int("installations", len(all)).Msg("Installations loaded")
	}
}
