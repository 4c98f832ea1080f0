// Package main provides a standalone HTTP server for E2E testing.
// It runs the same routes and handlers as ebis-server against in-memory
// storage and fixture market data, so browser tests need no API key.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ebis/config"
	"ebis/internal/api"
	"ebis/internal/app"
	"ebis/observability"
	"ebis/repository"
	"ebis/storage"
)

func main() {
	// Initialize logger in development mode for tests
	observability.InitLogger(false)
	observability.InitMetrics()

	port := os.Getenv("E2E_SERVER_PORT")
	if port == "" {
		port = "9090"
	}

	cfg := config.NewTestConfig()
	cfg.HTTP.Addr = ":" + port
	cfg.Analysis.TimeoutSeconds = 10

	store := storage.NewMemoryStore()
	authRepo := repository.NewKVAuthRepository(store, repository.AuthOptions{
		SessionTTL:   cfg.SessionTTL(),
		ResetTTL:     cfg.ResetTTL(),
		BcryptCost:   bcrypt.MinCost,
		SeedDemoUser: true,
	})
	historyRepo := repository.NewKVHistoryRepository(store, cfg.Analysis.HistoryLimit)

	application := app.New(cfg, NewFixtureMarket(), historyRepo, store)
	auth := app.NewAuthService(authRepo, nil)

	handler := api.NewHandler(application, auth, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in goroutine
	go func() {
		observability.Info("starting E2E test server", "port", port, "url", fmt.Sprintf("http://localhost:%s", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Fatal("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	observability.Info("shutting down E2E test server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		observability.Fatal("server forced to shutdown", "error", err)
	}

	application.Shutdown(shutdownCtx)
	observability.Info("E2E test server stopped")
}
