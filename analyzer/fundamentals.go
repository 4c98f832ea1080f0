package analyzer

import (
	"ebis/models"
)

// FinancialHealthScore averages the profitability factors. A factor counts
// only when its ratio is strictly positive.
func FinancialHealthScore(o models.CompanyOverview) float64 {
	var factors factorSet

	if o.ProfitMargin > 0 {
		factors.add(profitMarginBucket(o.ProfitMargin))
	}
	if o.OperatingMargin > 0 {
		factors.add(operatingMarginBucket(o.OperatingMargin))
	}
	if o.ReturnOnEquity > 0 {
		factors.add(returnOnEquityBucket(o.ReturnOnEquity))
	}
	if o.ReturnOnAssets > 0 {
		factors.add(returnOnAssetsBucket(o.ReturnOnAssets))
	}

	return factors.mean()
}

func profitMarginBucket(v float64) float64 {
	switch {
	case v > 0.15:
		return 25
	case v > 0.10:
		return 20
	case v > 0.05:
		return 15
	default:
		return 10
	}
}

func operatingMarginBucket(v float64) float64 {
	switch {
	case v > 0.20:
		return 25
	case v > 0.15:
		return 20
	case v > 0.10:
		return 15
	default:
		return 10
	}
}

func returnOnEquityBucket(v float64) float64 {
	switch {
	case v > 0.20:
		return 25
	case v > 0.15:
		return 20
	case v > 0.10:
		return 15
	default:
		return 10
	}
}

func returnOnAssetsBucket(v float64) float64 {
	switch {
	case v > 0.10:
		return 25
	case v > 0.05:
		return 20
	case v > 0.03:
		return 15
	default:
		return 10
	}
}

// GrowthScore averages the growth factors. Revenue and earnings growth count
// whenever they are non-zero, negative values included; PEG only when positive.
func GrowthScore(o models.CompanyOverview) float64 {
	var factors factorSet

	if o.QuarterlyRevenueGrowth != 0 {
		factors.add(revenueGrowthBucket(o.QuarterlyRevenueGrowth))
	}
	if o.QuarterlyEarningsGrowth != 0 {
		factors.add(earningsGrowthBucket(o.QuarterlyEarningsGrowth))
	}
	if o.PEGRatio > 0 {
		factors.add(pegBucket(o.PEGRatio))
	}

	return factors.mean()
}

func revenueGrowthBucket(v float64) float64 {
	switch {
	case v > 0.20:
		return 30
	case v > 0.10:
		return 25
	case v > 0.05:
		return 20
	case v > 0:
		return 15
	default:
		return 5
	}
}

func earningsGrowthBucket(v float64) float64 {
	switch {
	case v > 0.25:
		return 30
	case v > 0.15:
		return 25
	case v > 0.05:
		return 20
	case v > 0:
		return 15
	default:
		return 5
	}
}

func pegBucket(v float64) float64 {
	switch {
	case v < 1.0:
		return 25
	case v < 1.5:
		return 20
	case v < 2.0:
		return 15
	default:
		return 10
	}
}

// ValuationScore averages the price multiples and dividend yield. Every
// factor counts only when strictly positive.
func ValuationScore(o models.CompanyOverview) float64 {
	var factors factorSet

	if o.PERatio > 0 {
		factors.add(peBucket(o.PERatio))
	}
	if o.PriceToBook > 0 {
		factors.add(priceToBookBucket(o.PriceToBook))
	}
	if o.PriceToSales > 0 {
		factors.add(priceToSalesBucket(o.PriceToSales))
	}
	if o.DividendYield > 0 {
		factors.add(dividendYieldBucket(o.DividendYield))
	}

	return factors.mean()
}

func peBucket(v float64) float64 {
	switch {
	case v < 10:
		return 25
	case v < 15:
		return 20
	case v < 20:
		return 15
	case v < 30:
		return 10
	default:
		return 5
	}
}

func priceToBookBucket(v float64) float64 {
	switch {
	case v < 1.0:
		return 25
	case v < 1.5:
		return 20
	case v < 2.0:
		return 15
	case v < 3.0:
		return 10
	default:
		return 5
	}
}

func priceToSalesBucket(v float64) float64 {
	switch {
	case v < 1.0:
		return 25
	case v < 2.0:
		return 20
	case v < 3.0:
		return 15
	case v < 5.0:
		return 10
	default:
		return 5
	}
}

func dividendYieldBucket(v float64) float64 {
	switch {
	case v > 0.04:
		return 20
	case v > 0.02:
		return 15
	default:
		return 10
	}
}
