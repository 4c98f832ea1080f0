package analyzer

import (
	"gonum.org/v1/gonum/stat"

	"ebis/models"
)

// MinVolatilityPoints is the shortest series the volatility factor uses
const MinVolatilityPoints = 5

// RiskScore starts from 100 and subtracts penalties for high beta, high
// day-to-day volatility and a deep drop from the 52-week high. When none of
// the three factors can be evaluated the category is NeutralScore.
//
// The drawdown factor uses the midpoint of the 52-week range as the price
// reference rather than the quote, so the quote does not change the result.
func RiskScore(o models.CompanyOverview, _ models.StockQuote, series []models.TimeSeriesData) float64 {
	score := 100.0
	evaluated := false

	if o.Beta > 0 {
		evaluated = true
		score -= betaPenalty(o.Beta)
	}

	if vol, ok := Volatility(series); ok {
		evaluated = true
		score -= volatilityPenalty(vol)
	}

	if drop, ok := DropFrom52WeekHigh(o); ok {
		evaluated = true
		score -= drawdownPenalty(drop)
	}

	if !evaluated {
		return NeutralScore
	}
	return clamp(score, 0, 100)
}

func betaPenalty(beta float64) float64 {
	switch {
	case beta > 2.0:
		return 30
	case beta > 1.5:
		return 20
	case beta > 1.2:
		return 10
	default:
		return 0
	}
}

func volatilityPenalty(stdDev float64) float64 {
	switch {
	case stdDev > 0.05:
		return 25
	case stdDev > 0.03:
		return 15
	case stdDev > 0.02:
		return 10
	default:
		return 0
	}
}

func drawdownPenalty(drop float64) float64 {
	switch {
	case drop > 0.50:
		return 20
	case drop > 0.30:
		return 15
	case drop > 0.20:
		return 10
	default:
		return 0
	}
}

// Volatility returns the population standard deviation of the consecutive
// percentage close changes of series. It reports false when the series has
// fewer than MinVolatilityPoints bars or no usable change. Pairs whose
// earlier close is not positive are skipped.
func Volatility(series []models.TimeSeriesData) (float64, bool) {
	if len(series) < MinVolatilityPoints {
		return 0, false
	}

	closes := models.Closes(series)
	changes := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			continue
		}
		changes = append(changes, (closes[i]-prev)/prev)
	}
	if len(changes) == 0 {
		return 0, false
	}

	_, std := stat.PopMeanStdDev(changes, nil)
	return std, true
}

// DropFrom52WeekHigh approximates how far the price sits below its 52-week
// high, using the midpoint of the 52-week range as the current price. It
// reports false when either bound is not positive.
func DropFrom52WeekHigh(o models.CompanyOverview) (float64, bool) {
	high := o.Week52High.InexactFloat64()
	low := o.Week52Low.InexactFloat64()
	if high <= 0 || low <= 0 {
		return 0, false
	}

	mid := (high + low) / 2
	return (high - mid) / high, true
}
