package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/paypal-ledger/internal/api/handlers"
	"github.com/dvloznov/paypal-ledger/internal/api/middleware"
	"github.com/dvloznov/paypal-ledger/internal/app"
	"github.com/dvloznov/paypal-ledger/internal/config"
	"github.com/dvloznov/paypal-ledger/internal/logger"
)

// maxPayloadBytes caps inbound webhook bodies.
const maxPayloadBytes = 1 << 20

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Parse command-line flags
	port := flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
	flag.Parse()

	// Initialize logger
	log := logger.NewService(cfg.LogLevel, cfg.LogFormat)

	if !cfg.AuthEnabled() {
		log.Warn().Msg("CLOUDMAILIN_USERNAME not set - webhook auth disabled")
	}

	// Initialize collaborators
	ctx := context.Background()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(application.Processor)
	healthHandler := handlers.NewHealthHandler()

	// Create router
	mux := http.NewServeMux()

	webhook := middleware.Chain(http.HandlerFunc(webhookHandler.IncomingEmail),
		middleware.BasicAuth(cfg.WebhookUsername, cfg.WebhookPassword, "paypal-ledger"),
		middleware.MaxBytes(maxPayloadBytes),
	)
	mux.HandleFunc("/webhook/incoming-email", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			webhook.ServeHTTP(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			healthHandler.Health(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Apply middleware
	handler := middleware.Chain(mux,
		middleware.RequestID,
		middleware.Recovery(log),
		middleware.Logger(log),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown lets in-flight ledger writes finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if err := application.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close clients")
	}

	log.Info().Msg("Server exited")
}
