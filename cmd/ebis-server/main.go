// Command ebis-server serves the Ebis investment analysis API.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ebis/config"
	"ebis/internal/api"
	"ebis/internal/app"
	"ebis/observability"
	"ebis/repository"
	"ebis/services"
	"ebis/storage"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLoggerWithLevel(cfg.Log.Production, observability.ParseLevel(cfg.Log.Level))
	observability.InitMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		observability.Fatal("failed to open storage", "backend", cfg.Storage.Backend, "error", err)
	}

	if cfg.UsesDemoKey() {
		observability.Warn("ALPHA_VANTAGE_API_KEY not set, using the demo key; most symbols will fall back to demo data")
	}
	alpha := services.NewAlphaVantageService(cfg.AlphaVantage.APIKey).
		WithBaseURL(cfg.AlphaVantage.BaseURL).
		WithTimeout(time.Duration(cfg.AlphaVantage.TimeoutSeconds) * time.Second)
	market := services.NewCachedProvider(alpha, store, cfg.CacheTTL())

	authRepo := repository.NewKVAuthRepository(store, repository.AuthOptions{
		SessionTTL:        cfg.SessionTTL(),
		ResetTTL:          cfg.ResetTTL(),
		BcryptCost:        cfg.Auth.BcryptCost,
		MinPasswordLength: cfg.Auth.MinPasswordChars,
		SeedDemoUser:      cfg.Auth.SeedDemoUser,
	})
	historyRepo := repository.NewKVHistoryRepository(store, cfg.Analysis.HistoryLimit)

	application := app.New(cfg, market, historyRepo, store)
	auth := app.NewAuthService(authRepo, nil)

	sched, err := app.NewMaintenanceScheduler(cfg.Auth.SweepSchedule, auth, application)
	if err != nil {
		observability.Fatal("failed to schedule maintenance jobs", "schedule", cfg.Auth.SweepSchedule, "error", err)
	}
	sched.Start()

	handler := api.NewHandler(application, auth, cfg)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(handler, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Duration(cfg.Analysis.TimeoutSeconds+10) * time.Second,
	}

	go func() {
		observability.Info("starting ebis server", "addr", cfg.HTTP.Addr, "storage", cfg.Storage.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	observability.Info("shutting down ebis server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Error("server forced to shutdown", "error", err)
	}
	sched.Stop()
	if err := application.Shutdown(shutdownCtx); err != nil {
		observability.Error("failed to close storage", "error", err)
	}
	observability.Info("ebis server stopped")
}
