package services

import (
	"context"
	"time"

	"ebis/models"
	"ebis/observability"
	"ebis/storage"
)

// CachedProvider fronts a MarketDataProvider with store-backed caches for
// the slow-moving overview and daily series. Quotes and searches pass
// through. Cache failures are logged and fall back to the upstream.
type CachedProvider struct {
	next     MarketDataProvider
	overview *StoreCache[models.CompanyOverview]
	series   *StoreCache[[]models.TimeSeriesData]
}

// NewCachedProvider wraps next with caches of the given TTL kept in store
func NewCachedProvider(next MarketDataProvider, store storage.Store, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:     next,
		overview: NewStoreCache[models.CompanyOverview](store, "overview", ttl),
		series:   NewStoreCache[[]models.TimeSeriesData](store, "daily_series", ttl),
	}
}

func (p *CachedProvider) GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	return p.next.GetQuote(ctx, symbol)
}

func (p *CachedProvider) GetDailyTimeSeries(ctx context.Context, symbol string) ([]models.TimeSeriesData, error) {
	series, ok, err := p.series.Get(ctx, symbol)
	if err != nil {
		observability.Warn("market data cache read failed", "kind", "daily_series", "symbol", symbol, "error", err)
	}
	observability.GetMetrics().RecordCacheLookup("daily_series", ok)
	if ok {
		return series, nil
	}

	series, err = p.next.GetDailyTimeSeries(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := p.series.Set(ctx, symbol, series); err != nil {
		observability.Warn("market data cache write failed", "kind", "daily_series", "symbol", symbol, "error", err)
	}
	return append([]models.TimeSeriesData(nil), series...), nil
}

func (p *CachedProvider) GetCompanyOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error) {
	o, ok, err := p.overview.Get(ctx, symbol)
	if err != nil {
		observability.Warn("market data cache read failed", "kind", "overview", "symbol", symbol, "error", err)
	}
	observability.GetMetrics().RecordCacheLookup("overview", ok)
	if ok {
		return &o, nil
	}

	fetched, err := p.next.GetCompanyOverview(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if err := p.overview.Set(ctx, symbol, *fetched); err != nil {
		observability.Warn("market data cache write failed", "kind", "overview", "symbol", symbol, "error", err)
	}
	return fetched, nil
}

func (p *CachedProvider) SearchCompanies(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	return p.next.SearchCompanies(ctx, keywords)
}

// Prune drops expired entries from both caches
func (p *CachedProvider) Prune(ctx context.Context) (int, error) {
	n, err := p.overview.Prune(ctx)
	if err != nil {
		return n, err
	}
	m, err := p.series.Prune(ctx)
	return n + m, err
}
