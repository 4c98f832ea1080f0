package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"ebis/models"
	"ebis/services"
)

// FixtureMarket serves fixed market data for browser tests. Symbols
// outside the fixture set answer with services.ErrNoData so the demo
// fallback path can be exercised too.
type FixtureMarket struct {
	companies map[string]fixture
}

type fixture struct {
	quote    models.StockQuote
	series   []models.TimeSeriesData
	overview models.CompanyOverview
}

func NewFixtureMarket() *FixtureMarket {
	m := &FixtureMarket{companies: make(map[string]fixture)}

	m.add(models.CompanyOverview{
		Symbol:                  "JNJ",
		Name:                    "Johnson & Johnson",
		Sector:                  "Healthcare",
		Industry:                "Drug Manufacturers",
		MarketCap:               decimal.NewFromInt(400_000_000_000),
		PERatio:                 15.2,
		PEGRatio:                1.4,
		PriceToBook:             5.8,
		EPS:                     10.15,
		DividendYield:           0.0295,
		Beta:                    0.55,
		ProfitMargin:            0.18,
		ReturnOnEquity:          0.22,
		QuarterlyRevenueGrowth:  0.04,
		QuarterlyEarningsGrowth: 0.06,
	}, 155.50, 7_500_000)

	m.add(models.CompanyOverview{
		Symbol:                  "AAPL",
		Name:                    "Apple Inc",
		Sector:                  "Technology",
		Industry:                "Consumer Electronics",
		MarketCap:               decimal.NewFromInt(2_800_000_000_000),
		PERatio:                 29.5,
		PEGRatio:                2.1,
		PriceToBook:             45.0,
		EPS:                     6.42,
		DividendYield:           0.005,
		Beta:                    1.25,
		ProfitMargin:            0.26,
		ReturnOnEquity:          1.47,
		QuarterlyRevenueGrowth:  0.02,
		QuarterlyEarningsGrowth: 0.11,
	}, 189.30, 52_000_000)

	m.add(models.CompanyOverview{
		Symbol:                  "RIVN",
		Name:                    "Rivian Automotive Inc",
		Sector:                  "Consumer Cyclical",
		Industry:                "Auto Manufacturers",
		MarketCap:               decimal.NewFromInt(17_000_000_000),
		EPS:                     -5.74,
		Beta:                    2.05,
		ProfitMargin:            -0.92,
		ReturnOnEquity:          -0.48,
		QuarterlyRevenueGrowth:  0.17,
		QuarterlyEarningsGrowth: -0.3,
	}, 17.40, 38_000_000)

	return m
}

func (m *FixtureMarket) add(overview models.CompanyOverview, price float64, volume int64) {
	p := decimal.NewFromFloat(price)
	m.companies[overview.Symbol] = fixture{
		quote: models.StockQuote{
			Symbol:        overview.Symbol,
			Price:         p,
			Change:        p.Mul(decimal.NewFromFloat(0.004)).Round(2),
			ChangePercent: 0.4,
			Volume:        volume,
			MarketCap:     overview.MarketCap,
		},
		series:   fixtureSeries(price, volume),
		overview: overview,
	}
}

// fixtureSeries builds 30 ascending daily bars drifting up to price
func fixtureSeries(price float64, volume int64) []models.TimeSeriesData {
	const days = 30
	series := make([]models.TimeSeriesData, days)
	for i := range series {
		px := price * (0.94 + 0.06*float64(i)/float64(days-1))
		if i%3 == 1 {
			px *= 0.99
		}
		c := decimal.NewFromFloat(px).Round(2)
		series[i] = models.TimeSeriesData{
			Date:   fmt.Sprintf("2024-02-%02d", i%28+1),
			Open:   c.Mul(decimal.NewFromFloat(0.995)).Round(2),
			High:   c.Mul(decimal.NewFromFloat(1.01)).Round(2),
			Low:    c.Mul(decimal.NewFromFloat(0.985)).Round(2),
			Close:  c,
			Volume: volume,
		}
		if i >= 28 {
			series[i].Date = fmt.Sprintf("2024-03-%02d", i-27)
		}
	}
	return series
}

func (m *FixtureMarket) lookup(symbol string) (fixture, error) {
	f, ok := m.companies[strings.ToUpper(symbol)]
	if !ok {
		return fixture{}, fmt.Errorf("fixture %s: %w", symbol, services.ErrNoData)
	}
	return f, nil
}

func (m *FixtureMarket) GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	f, err := m.lookup(symbol)
	if err != nil {
		return nil, err
	}
	q := f.quote
	return &q, nil
}

func (m *FixtureMarket) GetDailyTimeSeries(ctx context.Context, symbol string) ([]models.TimeSeriesData, error) {
	f, err := m.lookup(symbol)
	if err != nil {
		return nil, err
	}
	return append([]models.TimeSeriesData(nil), f.series...), nil
}

func (m *FixtureMarket) GetCompanyOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error) {
	f, err := m.lookup(symbol)
	if err != nil {
		return nil, err
	}
	o := f.overview
	return &o, nil
}

func (m *FixtureMarket) SearchCompanies(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	keywords = strings.ToLower(strings.TrimSpace(keywords))
	results := []models.SearchResult{}
	for _, f := range m.companies {
		if strings.Contains(strings.ToLower(f.overview.Symbol), keywords) ||
			strings.Contains(strings.ToLower(f.overview.Name), keywords) {
			results = append(results, models.SearchResult{Symbol: f.overview.Symbol, Name: f.overview.Name})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Symbol < results[j].Symbol })
	return results, nil
}

var _ services.MarketDataProvider = (*FixtureMarket)(nil)
