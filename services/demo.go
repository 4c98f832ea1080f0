package services

import (
	"github.com/shopspring/decimal"

	"ebis/models"
)

// DemoBundle is the fixed dataset served when the live API has nothing
type DemoBundle struct {
	Quote      models.StockQuote
	TimeSeries []models.TimeSeriesData
	Overview   models.CompanyOverview
}

// DemoSymbol is the symbol the demo bundle describes
const DemoSymbol = "IBM"

func bar(date string, open, high, low, close float64, volume int64) models.TimeSeriesData {
	return models.TimeSeriesData{
		Date:   date,
		Open:   decimal.NewFromFloat(open),
		High:   decimal.NewFromFloat(high),
		Low:    decimal.NewFromFloat(low),
		Close:  decimal.NewFromFloat(close),
		Volume: volume,
	}
}

// DemoData returns a fresh copy of the IBM demo bundle
func DemoData() DemoBundle {
	return DemoBundle{
		Quote: models.StockQuote{
			Symbol:        DemoSymbol,
			Price:         decimal.RequireFromString("139.70"),
			Change:        decimal.RequireFromString("0.42"),
			ChangePercent: 0.30,
			Volume:        3542000,
		},
		TimeSeries: []models.TimeSeriesData{
			bar("2024-01-01", 135.0, 140.0, 134.0, 139.0, 2500000),
			bar("2024-01-02", 139.0, 142.0, 138.0, 141.0, 2800000),
			bar("2024-01-03", 141.0, 143.0, 139.0, 140.0, 2200000),
			bar("2024-01-04", 140.0, 141.0, 137.0, 139.7, 3542000),
		},
		Overview: models.CompanyOverview{
			Symbol:         DemoSymbol,
			Name:           "International Business Machines Corporation",
			Description:    "International Business Machines Corporation provides integrated solutions and services worldwide.",
			Sector:         "Technology",
			Industry:       "Information Technology Services",
			MarketCap:      decimal.NewFromInt(128_000_000_000),
			PERatio:        22.5,
			EPS:            6.20,
			ProfitMargin:   0.089,
			ReturnOnEquity: 0.125,
		},
	}
}
