package analyzer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"ebis/models"
)

// Key metric labels, in display order
const (
	LabelMarketCap     = "Market Cap"
	LabelPERatio       = "P/E Ratio"
	LabelPriceToBook   = "Price to Book"
	LabelProfitMargin  = "Profit Margin"
	LabelROE           = "ROE"
	LabelDividendYield = "Dividend Yield"
	LabelRevenueGrowth = "Revenue Growth"
	LabelBeta          = "Beta"
)

// NotAvailable is shown for ratios the data source did not provide
const NotAvailable = "N/A"

var billion = decimal.NewFromInt(1_000_000_000)

// KeyMetrics builds the display table for an overview
func KeyMetrics(o models.CompanyOverview) models.KeyMetrics {
	return models.KeyMetrics{
		{Label: LabelMarketCap, Value: FormatMarketCap(o.MarketCap)},
		{Label: LabelPERatio, Value: numberOrNA(o.PERatio)},
		{Label: LabelPriceToBook, Value: numberOrNA(o.PriceToBook)},
		{Label: LabelProfitMargin, Value: percentOrNA(o.ProfitMargin)},
		{Label: LabelROE, Value: percentOrNA(o.ReturnOnEquity)},
		{Label: LabelDividendYield, Value: percentOrNA(o.DividendYield)},
		{Label: LabelRevenueGrowth, Value: percentOrNA(o.QuarterlyRevenueGrowth)},
		{Label: LabelBeta, Value: numberOrNA(o.Beta)},
	}
}

// FormatMarketCap renders a market capitalisation in billions of dollars
// with one decimal, e.g. 128000000000 -> "$128.0B"
func FormatMarketCap(v decimal.Decimal) string {
	return "$" + v.Div(billion).StringFixed(1) + "B"
}

// ParseMarketCap is the inverse of FormatMarketCap
func ParseMarketCap(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "$") || !strings.HasSuffix(trimmed, "B") {
		return decimal.Zero, fmt.Errorf("invalid market cap %q: want $<billions>B", s)
	}
	d, err := decimal.NewFromString(trimmed[1 : len(trimmed)-1])
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid market cap %q: %w", s, err)
	}
	return d.Mul(billion), nil
}

func numberOrNA(v float64) string {
	if v == 0 {
		return NotAvailable
	}
	return number(v)
}

func percentOrNA(v float64) string {
	if v == 0 {
		return NotAvailable
	}
	return percent(v)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// percent renders a ratio such as 0.089 as "8.9%"
func percent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
