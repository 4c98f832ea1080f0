// Package e2e provides end-to-end testing infrastructure for ebis.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ebis/config"
	"ebis/e2e/mocks"
	"ebis/internal/api"
	"ebis/internal/app"
	"ebis/models"
	"ebis/repository"
	"ebis/services"
	"ebis/storage"
)

// TestHarness runs the full HTTP stack against a mock Alpha Vantage
// server and a throwaway SQLite store.
type TestHarness struct {
	t          *testing.T
	ctx        context.Context
	cancel     context.CancelFunc
	mockServer *mocks.MockServer
	store      storage.Store
	app        *app.App
	auth       *app.AuthService
	router     http.Handler
	config     *config.Config
}

// NewTestHarness creates a new test harness with all dependencies initialized.
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)

	h := &TestHarness{
		t:      t,
		ctx:    ctx,
		cancel: cancel,
	}

	return h
}

// Setup initializes all test dependencies.
func (h *TestHarness) Setup() error {
	// Start mock server for external APIs
	h.mockServer = mocks.NewMockServer()

	h.config = h.createTestConfig()

	// every harness starts with closed breakers
	services.SetGlobalRegistry(services.NewCircuitBreakerRegistry(services.DefaultCircuitBreakerConfig))

	var err error
	h.store, err = storage.Open(h.ctx, h.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to open test store: %w", err)
	}

	alpha := services.NewAlphaVantageService("e2e-key").
		WithBaseURL(h.mockServer.URL()).
		WithTimeout(5 * time.Second).
		WithRetryConfig(services.RetryConfig{
			MaxRetries:     1,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     5 * time.Millisecond,
		})
	market := services.NewCachedProvider(alpha, h.store, h.config.CacheTTL())

	authRepo := repository.NewKVAuthRepository(h.store, repository.AuthOptions{
		SessionTTL:   h.config.SessionTTL(),
		ResetTTL:     h.config.ResetTTL(),
		BcryptCost:   bcrypt.MinCost,
		SeedDemoUser: true,
	})
	historyRepo := repository.NewKVHistoryRepository(h.store, h.config.Analysis.HistoryLimit)

	h.app = app.New(h.config, market, historyRepo, h.store)
	h.auth = app.NewAuthService(authRepo, nil)

	handler := api.NewHandler(h.app, h.auth, h.config)
	h.router = api.NewRouter(handler, h.config)

	return nil
}

// Teardown cleans up all test resources.
func (h *TestHarness) Teardown() {
	if h.cancel != nil {
		h.cancel()
	}

	if h.app != nil {
		h.app.Shutdown(context.Background())
	}

	if h.mockServer != nil {
		h.mockServer.Close()
	}
}

// Context returns the test context.
func (h *TestHarness) Context() context.Context {
	return h.ctx
}

// MockServer returns the mock server for configuring responses.
func (h *TestHarness) MockServer() *mocks.MockServer {
	return h.mockServer
}

// App returns the application instance.
func (h *TestHarness) App() *app.App {
	return h.app
}

// Router returns the HTTP router for making requests.
func (h *TestHarness) Router() http.Handler {
	return h.router
}

// Config returns the test configuration.
func (h *TestHarness) Config() *config.Config {
	return h.config
}

// DoRequest performs an HTTP request and returns the response.
func (h *TestHarness) DoRequest(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

// LoginDemo signs in as the seeded demo user and returns the bearer token.
func (h *TestHarness) LoginDemo() string {
	h.t.Helper()

	body := fmt.Sprintf(`{"email":%q,"password":%q}`, repository.DemoUserEmail, repository.DemoUserPassword)
	resp := h.DoRequest(http.MethodPost, "/api/auth/login", body, "")
	if resp.Code != http.StatusOK {
		h.t.Fatalf("demo login failed: %d %s", resp.Code, resp.Body.String())
	}

	var auth models.AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		h.t.Fatalf("failed to decode login response: %v", err)
	}
	return auth.Token
}

func (h *TestHarness) createTestConfig() *config.Config {
	cfg := config.NewTestConfig()
	cfg.AlphaVantage.BaseURL = h.mockServer.URL()
	cfg.Storage.Backend = config.BackendSQLite
	cfg.Storage.SQLitePath = filepath.Join(h.t.TempDir(), "ebis-e2e.db")
	cfg.Analysis.TimeoutSeconds = 10
	cfg.Analysis.DemoFallback = false
	return cfg
}
