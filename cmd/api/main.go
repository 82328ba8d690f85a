package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/3lprints/storefront/internal/app"
	"github.com/3lprints/storefront/internal/config"
	"github.com/3lprints/storefront/internal/handlers"
	"github.com/3lprints/storefront/internal/logger"
	"github.com/3lprints/storefront/internal/ratelimit"
	"github.com/3lprints/storefront/internal/routes"
)

func main() {
	// 0. --- Load Configuration (.env + environment) ---
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. --- Database & Services ---
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialise application", zap.Error(err))
	}
	defer a.Close()

	// 2. --- Background Workers ---
	// Outbox relay: phase-2 work queued inside order transactions
	relay, closeRelay := a.Relay()
	defer closeRelay()
	a.Checkout.OnTasksQueued(relay.Notify)
	go relay.Run(ctx)

	// Rate limiter sweeper: drops expired windows
	limiter := ratelimit.New()
	go limiter.Run(ctx, cfg.RateLimit.SweepInterval)

	// --- Application Setup ---
	h := &handlers.Handlers{
		Repos:         a.Repos,
		Checkout:      a.Checkout,
		Customization: a.Customization,
		Auth:          a.Auth,
		Log:           log,
		UploadDir:     cfg.HTTP.UploadDir,
		BaseURL:       cfg.HTTP.BaseURL,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(h, routes.Options{
		AllowedOrigin:  cfg.HTTP.AllowedOrigin,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Limiter:        limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- Start Server ---
	go func() {
		log.Info("Starting storefront API server", zap.String("port", cfg.HTTP.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
	}
}
