package analyzer

import (
	"fmt"

	"ebis/models"
)

// Placeholders used when a list would otherwise be empty
const (
	NoStrengths  = "No notable strengths identified"
	NoWeaknesses = "No notable weaknesses identified"
)

// Category thresholds for the strengths and weaknesses lists
const (
	strongCategory = 70.0
	weakCategory   = 40.0
)

// Strengths lists what speaks for the company. The metric rules below carry
// their own thresholds and are independent of the scoring buckets.
func Strengths(o models.CompanyOverview, s models.SubScores) []string {
	var out []string

	if s.FinancialHealth >= strongCategory {
		out = append(out, "Strong financial health")
	}
	if s.Growth >= strongCategory {
		out = append(out, "High growth potential")
	}
	if s.Valuation >= strongCategory {
		out = append(out, "Attractively priced relative to fundamentals")
	}
	if s.Risk >= strongCategory {
		out = append(out, "Low risk profile")
	}

	if o.ProfitMargin > 0.15 {
		out = append(out, fmt.Sprintf("High profit margin (%s)", percent(o.ProfitMargin)))
	}
	if o.ReturnOnEquity > 0.20 {
		out = append(out, fmt.Sprintf("Excellent return on equity (%s)", percent(o.ReturnOnEquity)))
	}
	if o.QuarterlyRevenueGrowth > 0.15 {
		out = append(out, fmt.Sprintf("Strong revenue growth (%s)", percent(o.QuarterlyRevenueGrowth)))
	}
	if o.PERatio > 0 && o.PERatio < 15 {
		out = append(out, fmt.Sprintf("Reasonable P/E ratio (%s)", number(o.PERatio)))
	}
	if o.DividendYield > 0.03 {
		out = append(out, fmt.Sprintf("Attractive dividend yield (%s)", percent(o.DividendYield)))
	}

	if len(out) == 0 {
		return []string{NoStrengths}
	}
	return out
}

// Weaknesses lists what speaks against the company
func Weaknesses(o models.CompanyOverview, s models.SubScores) []string {
	var out []string

	if s.FinancialHealth <= weakCategory {
		out = append(out, "Weak financial health")
	}
	if s.Growth <= weakCategory {
		out = append(out, "Limited growth potential")
	}
	if s.Valuation <= weakCategory {
		out = append(out, "Expensive relative to fundamentals")
	}
	if s.Risk <= weakCategory {
		out = append(out, "High risk profile")
	}

	if o.ProfitMargin != 0 && o.ProfitMargin < 0.05 {
		out = append(out, fmt.Sprintf("Low profit margin (%s)", percent(o.ProfitMargin)))
	}
	if o.ReturnOnEquity != 0 && o.ReturnOnEquity < 0.10 {
		out = append(out, fmt.Sprintf("Low return on equity (%s)", percent(o.ReturnOnEquity)))
	}
	if o.QuarterlyRevenueGrowth < 0 {
		out = append(out, fmt.Sprintf("Declining revenue (%s)", percent(o.QuarterlyRevenueGrowth)))
	}
	if o.PERatio > 30 {
		out = append(out, fmt.Sprintf("High P/E ratio (%s)", number(o.PERatio)))
	}
	if o.Beta > 1.5 {
		out = append(out, fmt.Sprintf("High volatility (beta %s)", number(o.Beta)))
	}

	if len(out) == 0 {
		return []string{NoWeaknesses}
	}
	return out
}
