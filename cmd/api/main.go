package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/haidarlabs/qanuni-gateway/cmd/mainconfig"
	"github.com/haidarlabs/qanuni-gateway/internal/analysis"
	"github.com/haidarlabs/qanuni-gateway/internal/api/router"
	"github.com/haidarlabs/qanuni-gateway/internal/commands"
	appconfig "github.com/haidarlabs/qanuni-gateway/internal/config"
	"github.com/haidarlabs/qanuni-gateway/internal/events"
	"github.com/haidarlabs/qanuni-gateway/internal/http/handlers"
	"github.com/haidarlabs/qanuni-gateway/internal/messaging"
	obsmetrics "github.com/haidarlabs/qanuni-gateway/internal/observability/metrics"
	"github.com/haidarlabs/qanuni-gateway/internal/session"
	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting qanuni-gateway API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create db pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	sessionStore := session.NewStore(pool)
	messageStore := messaging.NewStore(pool)
	recordStore := analysis.NewRecordStore(pool)

	registry := prometheus.NewRegistry()
	gatewayMetrics := obsmetrics.NewGatewayMetrics(registry)

	model, closeModel := buildModelClient(ctx, cfg, logger)
	if closeModel != nil {
		defer closeModel()
	}

	mediaClient := messaging.NewMediaClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, logger.Component("media"))
	orchestrator := analysis.NewOrchestrator(analysis.Config{
		Model:        model,
		Fetcher:      mediaClient,
		Records:      recordStore,
		Jurisdiction: cfg.Jurisdiction,
		Logger:       logger.Component("analysis"),
		Metrics:      gatewayMetrics,
	})

	webhookCfg := messaging.WebhookHandlerConfig{
		WebhookSecret: cfg.TwilioWebhookSecret,
		PublicBaseURL: cfg.PublicBaseURL,
		Sessions:      sessionStore,
		Messages:      messageStore,
		Router:        commands.NewRouter(),
		Analyzer:      orchestrator,
		Logger:        logger.Component("webhooks"),
		Metrics:       gatewayMetrics,
	}
	if processed := buildProcessedStore(ctx, cfg, logger); processed != nil {
		webhookCfg.Processed = processed
	}
	webhooks := messaging.NewWebhookHandler(webhookCfg)

	adminMessagingCfg := handlers.AdminMessagingConfig{
		Messages:          messageStore,
		Sessions:          sessionStore,
		ChannelConfigured: cfg.ChannelConfigured(),
		Logger:            logger.Component("admin"),
		Metrics:           gatewayMetrics,
	}
	if cfg.ChannelConfigured() {
		sender := messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger.Component("sender"))
		adminMessagingCfg.Dispatcher = messaging.NewDispatcher(sender, messaging.NewIntervalPacer(cfg.BulkSendInterval), logger.Component("dispatch"))
	}
	adminMessaging := handlers.NewAdminMessagingHandler(adminMessagingCfg)

	adminDirectory := handlers.NewAdminDirectoryHandler(handlers.AdminDirectoryConfig{
		Sessions:          sessionStore,
		Messages:          messageStore,
		ChannelConfigured: cfg.ChannelConfigured(),
		AIConfigured:      cfg.AIConfigured(),
		Logger:            logger.Component("admin"),
	})

	r := router.New(&router.Config{
		Logger:           logger,
		Webhooks:         webhooks,
		AdminMessaging:   adminMessaging,
		AdminDirectory:   adminDirectory,
		MetricsHandler:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminJWTSecret:   cfg.AdminJWTSecret,
		WebhookRateLimit: cfg.WebhookRateLimit,
		WebhookBurst:     cfg.WebhookRateBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildModelClient selects the document-analysis backend from configuration.
// A deployment without AI credentials returns a nil client; the orchestrator
// answers with an "unavailable" reply in that case.
func buildModelClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (analysis.ModelClient, func()) {
	if !cfg.AIConfigured() {
		logger.Info("document analysis disabled", "provider", cfg.AIProvider)
		return nil, nil
	}
	switch cfg.AIProvider {
	case "gemini":
		client, err := analysis.NewGeminiModelClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			logger.Error("failed to create gemini client", "error", err)
			return nil, nil
		}
		logger.Info("document analysis enabled", "provider", "gemini", "model", cfg.GeminiModelID)
		return client, func() { _ = client.Close() }
	default:
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			return nil, nil
		}
		client := analysis.NewBedrockModelClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		logger.Info("document analysis enabled", "provider", "bedrock", "model", cfg.BedrockModelID)
		return client, nil
	}
}

// buildProcessedStore wires the optional Redis-backed webhook deduplicator.
// Without Redis the gateway still works; redelivered webhooks just produce
// duplicate replies.
func buildProcessedStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *events.ProcessedStore {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, webhook dedupe disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return events.NewProcessedStore(client, cfg.ProcessedEventTTL)
}
