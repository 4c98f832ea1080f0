// Package analyzer computes the Ebis investment score for a company from its
// fundamentals, latest quote and recent daily prices.
//
// Every function in this package is pure: no I/O, no shared state, safe for
// concurrent use.
package analyzer

import (
	"math"

	"ebis/models"
)

// Category weights of the total score
const (
	WeightFinancialHealth = 0.30
	WeightGrowth          = 0.25
	WeightValuation       = 0.25
	WeightRisk            = 0.20
)

// NeutralScore is used for a category where no factor had usable input
const NeutralScore = 50.0

// CalculateInvestmentScore scores a company. It never fails: factors without
// usable input are skipped, and a category with no usable factor scores
// NeutralScore.
func CalculateInvestmentScore(overview models.CompanyOverview, quote models.StockQuote, series []models.TimeSeriesData) models.InvestmentScore {
	scores := models.SubScores{
		FinancialHealth: FinancialHealthScore(overview),
		Growth:          GrowthScore(overview),
		Valuation:       ValuationScore(overview),
		Risk:            RiskScore(overview, quote, series),
	}

	total := TotalScore(scores)

	return models.InvestmentScore{
		TotalScore:     total,
		Recommendation: Recommend(total),
		Scores:         scores,
		Details: models.ScoreDetails{
			Strengths:  Strengths(overview, scores),
			Weaknesses: Weaknesses(overview, scores),
			KeyMetrics: KeyMetrics(overview),
		},
	}
}

// TotalScore combines the category scores into a rounded 0-100 total
func TotalScore(s models.SubScores) int {
	total := s.FinancialHealth*WeightFinancialHealth +
		s.Growth*WeightGrowth +
		s.Valuation*WeightValuation +
		s.Risk*WeightRisk
	return int(math.Round(clamp(total, 0, 100)))
}

// Recommend maps a total score to its recommendation band
func Recommend(total int) models.Recommendation {
	switch {
	case total >= 80:
		return models.RecommendationStrongBuy
	case total >= 65:
		return models.RecommendationBuy
	case total >= 45:
		return models.RecommendationHold
	case total >= 30:
		return models.RecommendationSell
	default:
		return models.RecommendationStrongSell
	}
}

// factorSet accumulates the bucket scores of the factors that had input
type factorSet []float64

func (f *factorSet) add(score float64) {
	*f = append(*f, score)
}

// mean returns the unweighted average, or NeutralScore when empty
func (f factorSet) mean() float64 {
	if len(f) == 0 {
		return NeutralScore
	}
	var sum float64
	for _, s := range f {
		sum += s
	}
	return clamp(sum/float64(len(f)), 0, 100)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
