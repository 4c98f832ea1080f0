package models

import (
	"github.com/shopspring/decimal"
)

// StockQuote represents the latest traded price for a symbol
type StockQuote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent float64         `json:"changePercent"`
	Volume        int64           `json:"volume"`
	MarketCap     decimal.Decimal `json:"marketCap,omitempty"`
}

// TimeSeriesData is one daily OHLCV bar. Series are ordered ascending by Date.
type TimeSeriesData struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// CompanyOverview holds descriptive and fundamental data for one company.
// Ratio fields use zero for "unknown"; the upstream fetcher maps missing
// or unparsable values to zero.
type CompanyOverview struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`

	MarketCap   decimal.Decimal `json:"marketCap"`
	Revenue     decimal.Decimal `json:"revenue"`
	GrossProfit decimal.Decimal `json:"grossProfit"`

	PERatio         float64 `json:"peRatio"`
	PEGRatio        float64 `json:"pegRatio"`
	BookValue       float64 `json:"bookValue"`
	DividendYield   float64 `json:"dividendYield"`
	EPS             float64 `json:"eps"`
	RevenuePerShare float64 `json:"revenuePerShare"`
	DilutedEPS      float64 `json:"dilutedEPS"`

	ProfitMargin    float64 `json:"profitMargin"`
	OperatingMargin float64 `json:"operatingMargin"`
	ReturnOnAssets  float64 `json:"returnOnAssets"`
	ReturnOnEquity  float64 `json:"returnOnEquity"`

	QuarterlyEarningsGrowth float64 `json:"quarterlyEarningsGrowth"`
	QuarterlyRevenueGrowth  float64 `json:"quarterlyRevenueGrowth"`

	AnalystTargetPrice float64 `json:"analystTargetPrice"`
	TrailingPE         float64 `json:"trailingPE"`
	ForwardPE          float64 `json:"forwardPE"`
	PriceToSales       float64 `json:"priceToSales"`
	PriceToBook        float64 `json:"priceToBook"`
	EVToRevenue        float64 `json:"evToRevenue"`
	EVToEBITDA         float64 `json:"evToEbitda"`

	Beta                float64         `json:"beta"`
	Week52High          decimal.Decimal `json:"week52High"`
	Week52Low           decimal.Decimal `json:"week52Low"`
	Day50MovingAverage  float64         `json:"day50MovingAverage"`
	Day200MovingAverage float64         `json:"day200MovingAverage"`

	SharesOutstanding       int64   `json:"sharesOutstanding"`
	SharesFloat             int64   `json:"sharesFloat"`
	SharesShort             int64   `json:"sharesShort"`
	SharesShortPriorMonth   int64   `json:"sharesShortPriorMonth"`
	ShortRatio              float64 `json:"shortRatio"`
	ShortPercentOutstanding float64 `json:"shortPercentOutstanding"`
	ShortPercentFloat       float64 `json:"shortPercentFloat"`
	PercentInsiders         float64 `json:"percentInsiders"`
	PercentInstitutions     float64 `json:"percentInstitutions"`

	ForwardAnnualDividendRate  float64 `json:"forwardAnnualDividendRate"`
	ForwardAnnualDividendYield float64 `json:"forwardAnnualDividendYield"`
	PayoutRatio                float64 `json:"payoutRatio"`
	DividendDate               string  `json:"dividendDate"`
	ExDividendDate             string  `json:"exDividendDate"`
	LastSplitFactor            string  `json:"lastSplitFactor"`
	LastSplitDate              string  `json:"lastSplitDate"`
}

// SearchResult is a single symbol search match
type SearchResult struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Closes returns the closing prices of a series as float64 values, in order
func Closes(series []TimeSeriesData) []float64 {
	closes := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close.InexactFloat64()
	}
	return closes
}
