package app

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"ebis/config"
	"ebis/models"
	"ebis/repository"
	"ebis/services"
	"ebis/storage"
)

var (
	ErrAnalysisBusy  = errors.New("analysis queue full, too many concurrent requests - try again later")
	ErrInvalidSymbol = errors.New("invalid symbol")
	ErrInvalidID     = errors.New("invalid history id")
	ErrNoMarketData  = errors.New("no market data available")
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.-]+$`)

// MaxSymbolLength bounds accepted ticker symbols
const MaxSymbolLength = 10

// App holds application dependencies using interfaces for testability
type App struct {
	cfg         *config.Config
	market      services.MarketDataProvider
	history     repository.HistoryRepository
	store       storage.Store
	analysisSem chan struct{}
	now         func() time.Time
}

// New creates the application. store may be nil when the repositories
// run on something other than a storage.Store.
func New(cfg *config.Config, market services.MarketDataProvider, history repository.HistoryRepository, store storage.Store) *App {
	limit := cfg.Analysis.ConcurrencyLimit
	if limit <= 0 {
		limit = 1
	}
	return &App{
		cfg:         cfg,
		market:      market,
		history:     history,
		store:       store,
		analysisSem: make(chan struct{}, limit),
		now:         time.Now,
	}
}

// Shutdown releases the backing store
func (a *App) Shutdown(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// Market returns the market data provider
func (a *App) Market() services.MarketDataProvider {
	return a.market
}

// NormalizeSymbol trims and upper-cases symbol and checks its format
func NormalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrInvalidSymbol)
	}
	if len(symbol) > MaxSymbolLength {
		return "", fmt.Errorf("%w: symbol too long (max %d characters)", ErrInvalidSymbol, MaxSymbolLength)
	}
	if !symbolPattern.MatchString(symbol) {
		return "", fmt.Errorf("%w: alphanumeric, dots, and dashes only", ErrInvalidSymbol)
	}
	return symbol, nil
}

// ParseID parses a history record id
func ParseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	return parsed, nil
}

// Search returns companies matching keywords. Blank keywords match nothing.
func (a *App) Search(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return []models.SearchResult{}, nil
	}
	results, err := a.market.SearchCompanies(ctx, keywords)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return results, nil
}

// HealthStatus summarises the state of the backing services
type HealthStatus struct {
	Status          string                                   `json:"status"`
	Storage         string                                   `json:"storage"`
	CircuitBreakers map[string]services.CircuitBreakerStatus `json:"circuitBreakers"`
}

// Health checks storage connectivity and the circuit breakers
func (a *App) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:          "ok",
		Storage:         a.cfg.Storage.Backend,
		CircuitBreakers: services.GetGlobalRegistry().Status(),
	}

	if a.store == nil {
		status.Storage = "not_configured"
	} else if err := storage.Health(ctx, a.store); err != nil {
		status.Storage = "disconnected"
		status.Status = "degraded"
	}

	for _, cb := range status.CircuitBreakers {
		if cb.State == "open" {
			status.Status = "degraded"
			break
		}
	}
	return status
}
