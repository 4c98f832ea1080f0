package services

import (
	"context"

	"ebis/models"
)

// MarketDataProvider defines the market data operations the analysis needs
type MarketDataProvider interface {
	GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error)
	GetDailyTimeSeries(ctx context.Context, symbol string) ([]models.TimeSeriesData, error)
	GetCompanyOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error)
	SearchCompanies(ctx context.Context, keywords string) ([]models.SearchResult, error)
}

// Compile-time interface verification
var _ MarketDataProvider = (*AlphaVantageService)(nil)
var _ MarketDataProvider = (*CachedProvider)(nil)
