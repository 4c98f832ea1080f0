package analyzer

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"ebis/models"
)

func closesSeries(closes ...float64) []models.TimeSeriesData {
	series := make([]models.TimeSeriesData, len(closes))
	for i, c := range closes {
		series[i] = models.TimeSeriesData{
			Date:  "2024-01-0" + string(rune('1'+i)),
			Close: decimal.NewFromFloat(c),
		}
	}
	return series
}

func testQuote() models.StockQuote {
	return models.StockQuote{
		Symbol: "TEST",
		Price:  decimal.NewFromFloat(100),
	}
}

func TestCalculateInvestmentScore_NeutralDefaults(t *testing.T) {
	score := CalculateInvestmentScore(models.CompanyOverview{}, testQuote(), nil)

	want := models.SubScores{FinancialHealth: 50, Growth: 50, Valuation: 50, Risk: 50}
	if score.Scores != want {
		t.Errorf("Scores = %+v, want %+v", score.Scores, want)
	}
	if score.TotalScore != 50 {
		t.Errorf("TotalScore = %d, want 50", score.TotalScore)
	}
	if score.Recommendation != models.RecommendationHold {
		t.Errorf("Recommendation = %q, want Hold", score.Recommendation)
	}
	if len(score.Details.Strengths) != 1 || score.Details.Strengths[0] != NoStrengths {
		t.Errorf("Strengths = %v, want placeholder only", score.Details.Strengths)
	}
	// unknown margin and ROE are not weaknesses
	if len(score.Details.Weaknesses) != 1 || score.Details.Weaknesses[0] != NoWeaknesses {
		t.Errorf("Weaknesses = %v, want placeholder only", score.Details.Weaknesses)
	}
}

func TestFinancialHealthScore(t *testing.T) {
	tests := []struct {
		name     string
		overview models.CompanyOverview
		want     float64
	}{
		{
			name: "all factors in top bucket",
			overview: models.CompanyOverview{
				ProfitMargin:    0.20,
				OperatingMargin: 0.25,
				ReturnOnEquity:  0.22,
				ReturnOnAssets:  0.12,
			},
			want: 25,
		},
		{
			name:     "no usable factor",
			overview: models.CompanyOverview{},
			want:     50,
		},
		{
			name:     "negative margin is skipped",
			overview: models.CompanyOverview{ProfitMargin: -0.1, ReturnOnEquity: 0.12},
			want:     15,
		},
		{
			name:     "mixed buckets",
			overview: models.CompanyOverview{ProfitMargin: 0.12, ReturnOnAssets: 0.02},
			want:     15, // (20 + 10) / 2
		},
		{
			name:     "bucket boundary is exclusive",
			overview: models.CompanyOverview{OperatingMargin: 0.20},
			want:     20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FinancialHealthScore(tt.overview); got != tt.want {
				t.Errorf("FinancialHealthScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrowthScore(t *testing.T) {
	tests := []struct {
		name     string
		overview models.CompanyOverview
		want     float64
	}{
		{"no usable factor", models.CompanyOverview{}, 50},
		{"negative revenue growth counts", models.CompanyOverview{QuarterlyRevenueGrowth: -0.10}, 5},
		{"strong growth", models.CompanyOverview{QuarterlyRevenueGrowth: 0.25, QuarterlyEarningsGrowth: 0.30}, 30},
		{"peg only", models.CompanyOverview{PEGRatio: 1.2}, 20},
		{"negative peg skipped", models.CompanyOverview{PEGRatio: -1, QuarterlyEarningsGrowth: 0.10}, 20},
		{"three factors", models.CompanyOverview{QuarterlyRevenueGrowth: 0.03, QuarterlyEarningsGrowth: 0.20, PEGRatio: 2.5}, (15.0 + 25 + 10) / 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GrowthScore(tt.overview); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("GrowthScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValuationScore(t *testing.T) {
	tests := []struct {
		name     string
		overview models.CompanyOverview
		want     float64
	}{
		{"pe only", models.CompanyOverview{PERatio: 8}, 25},
		{"no usable factor", models.CompanyOverview{}, 50},
		{"expensive", models.CompanyOverview{PERatio: 45, PriceToBook: 6, PriceToSales: 8}, 5},
		{"dividend only", models.CompanyOverview{DividendYield: 0.05}, 20},
		{"all four", models.CompanyOverview{PERatio: 18, PriceToBook: 1.2, PriceToSales: 4, DividendYield: 0.03}, (15.0 + 20 + 10 + 15) / 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValuationScore(tt.overview); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ValuationScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		name     string
		overview models.CompanyOverview
		series   []models.TimeSeriesData
		want     float64
	}{
		{
			name:   "volatile series only",
			series: closesSeries(100, 105, 95, 110, 90),
			want:   75,
		},
		{
			name:   "calm series",
			series: closesSeries(100, 100.5, 100.2, 100.4, 100.1, 100.3),
			want:   100,
		},
		{
			name:   "too short for volatility",
			series: closesSeries(100, 150, 50, 120),
			want:   50,
		},
		{
			name:     "moderate beta",
			overview: models.CompanyOverview{Beta: 1.3},
			want:     90,
		},
		{
			name:     "low beta still evaluated",
			overview: models.CompanyOverview{Beta: 0.8},
			want:     100,
		},
		{
			name: "deep drawdown",
			overview: models.CompanyOverview{
				Week52High: decimal.NewFromInt(200),
				Week52Low:  decimal.NewFromInt(50),
			},
			want: 85, // mid 125, drop 37.5%
		},
		{
			name: "missing low bound skips drawdown",
			overview: models.CompanyOverview{
				Week52High: decimal.NewFromInt(200),
			},
			want: 50,
		},
		{
			name: "all penalties",
			overview: models.CompanyOverview{
				Beta:       2.5,
				Week52High: decimal.NewFromInt(100),
				Week52Low:  decimal.NewFromFloat(0.5),
			},
			series: closesSeries(100, 105, 95, 110, 90),
			want:   30, // the midpoint drop never exceeds 50%
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RiskScore(tt.overview, testQuote(), tt.series); got != tt.want {
				t.Errorf("RiskScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVolatility(t *testing.T) {
	vol, ok := Volatility(closesSeries(100, 105, 95, 110, 90))
	if !ok {
		t.Fatal("expected volatility to be evaluated for 5 points")
	}
	if vol <= 0.05 {
		t.Errorf("Volatility() = %v, want > 0.05", vol)
	}

	if _, ok := Volatility(closesSeries(100, 101, 102, 103)); ok {
		t.Error("expected volatility to be skipped for 4 points")
	}

	if _, ok := Volatility(closesSeries(0, 0, 0, 0, 0)); ok {
		t.Error("expected volatility to be skipped when every close is zero")
	}
}

func TestTotalScore(t *testing.T) {
	got := TotalScore(models.SubScores{FinancialHealth: 25, Growth: 50, Valuation: 25, Risk: 75})
	if got != 41 {
		t.Errorf("TotalScore() = %d, want 41", got)
	}

	if got := TotalScore(models.SubScores{FinancialHealth: 100, Growth: 100, Valuation: 100, Risk: 100}); got != 100 {
		t.Errorf("TotalScore() = %d, want 100", got)
	}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		total int
		want  models.Recommendation
	}{
		{100, models.RecommendationStrongBuy},
		{80, models.RecommendationStrongBuy},
		{79, models.RecommendationBuy},
		{65, models.RecommendationBuy},
		{64, models.RecommendationHold},
		{45, models.RecommendationHold},
		{44, models.RecommendationSell},
		{30, models.RecommendationSell},
		{29, models.RecommendationStrongSell},
		{0, models.RecommendationStrongSell},
	}

	for _, tt := range tests {
		if got := Recommend(tt.total); got != tt.want {
			t.Errorf("Recommend(%d) = %q, want %q", tt.total, got, tt.want)
		}
	}
}

func TestRecommend_Monotonic(t *testing.T) {
	prev := Recommend(0).Rank()
	for total := 1; total <= 100; total++ {
		rank := Recommend(total).Rank()
		if rank > prev {
			t.Fatalf("Recommend(%d) ranks worse than Recommend(%d)", total, total-1)
		}
		prev = rank
	}
}

func TestCalculateInvestmentScore_Bounds(t *testing.T) {
	overviews := []models.CompanyOverview{
		{},
		{ProfitMargin: 0.5, OperatingMargin: 0.5, ReturnOnEquity: 0.5, ReturnOnAssets: 0.5, QuarterlyRevenueGrowth: 1, QuarterlyEarningsGrowth: 1, PEGRatio: 0.5, PERatio: 5, PriceToBook: 0.5, PriceToSales: 0.5, DividendYield: 0.08},
		{ProfitMargin: -1, QuarterlyRevenueGrowth: -1, QuarterlyEarningsGrowth: -1, PERatio: -3, Beta: 10, Week52High: decimal.NewFromInt(1000), Week52Low: decimal.NewFromInt(1)},
	}
	seriesSet := [][]models.TimeSeriesData{
		nil,
		closesSeries(10, 1, 10, 1, 10, 1),
		closesSeries(100, 100, 100, 100, 100),
	}

	for i, o := range overviews {
		for j, s := range seriesSet {
			score := CalculateInvestmentScore(o, testQuote(), s)
			if score.TotalScore < 0 || score.TotalScore > 100 {
				t.Errorf("case %d/%d: TotalScore = %d out of range", i, j, score.TotalScore)
			}
			for name, v := range map[string]float64{
				"financialHealth": score.Scores.FinancialHealth,
				"growth":          score.Scores.Growth,
				"valuation":       score.Scores.Valuation,
				"risk":            score.Scores.Risk,
			} {
				if math.IsNaN(v) || v < 0 || v > 100 {
					t.Errorf("case %d/%d: %s = %v out of range", i, j, name, v)
				}
			}
			if score.Recommendation != Recommend(score.TotalScore) {
				t.Errorf("case %d/%d: recommendation %q does not match total %d", i, j, score.Recommendation, score.TotalScore)
			}
		}
	}
}

func TestStrengthsAndWeaknesses(t *testing.T) {
	o := models.CompanyOverview{
		ProfitMargin:           0.20,
		ReturnOnEquity:         0.25,
		QuarterlyRevenueGrowth: 0.20,
		PERatio:                12,
		DividendYield:          0.035,
	}
	scores := models.SubScores{FinancialHealth: 25, Growth: 30, Valuation: 17.5, Risk: 80}

	strengths := Strengths(o, scores)
	wantStrengths := []string{
		"Low risk profile",
		"High profit margin (20.0%)",
		"Excellent return on equity (25.0%)",
		"Strong revenue growth (20.0%)",
		"Reasonable P/E ratio (12)",
		"Attractive dividend yield (3.5%)",
	}
	if strings.Join(strengths, "|") != strings.Join(wantStrengths, "|") {
		t.Errorf("Strengths() = %v, want %v", strengths, wantStrengths)
	}

	weaknesses := Weaknesses(o, scores)
	wantWeaknesses := []string{
		"Weak financial health",
		"Limited growth potential",
		"Expensive relative to fundamentals",
	}
	if strings.Join(weaknesses, "|") != strings.Join(wantWeaknesses, "|") {
		t.Errorf("Weaknesses() = %v, want %v", weaknesses, wantWeaknesses)
	}
}

func TestWeaknesses_MetricRules(t *testing.T) {
	o := models.CompanyOverview{
		ProfitMargin:           0.02,
		ReturnOnEquity:         0.05,
		QuarterlyRevenueGrowth: -0.08,
		PERatio:                42,
		Beta:                   1.8,
	}
	scores := models.SubScores{FinancialHealth: 50, Growth: 50, Valuation: 50, Risk: 50}

	got := Weaknesses(o, scores)
	want := []string{
		"Low profit margin (2.0%)",
		"Low return on equity (5.0%)",
		"Declining revenue (-8.0%)",
		"High P/E ratio (42)",
		"High volatility (beta 1.8)",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Weaknesses() = %v, want %v", got, want)
	}

	if s := Strengths(o, scores); len(s) != 1 || s[0] != NoStrengths {
		t.Errorf("Strengths() = %v, want placeholder", s)
	}
}

func TestWeaknesses_Placeholder(t *testing.T) {
	o := models.CompanyOverview{ProfitMargin: 0.08, ReturnOnEquity: 0.12}
	scores := models.SubScores{FinancialHealth: 50, Growth: 50, Valuation: 50, Risk: 50}

	got := Weaknesses(o, scores)
	if len(got) != 1 || got[0] != NoWeaknesses {
		t.Errorf("Weaknesses() = %v, want placeholder", got)
	}
}

func TestWeaknesses_UnknownRatios(t *testing.T) {
	scores := models.SubScores{FinancialHealth: 50, Growth: 50, Valuation: 50, Risk: 50}
	tests := []struct {
		name string
		o    models.CompanyOverview
		want []string
	}{
		{"both unknown", models.CompanyOverview{}, []string{NoWeaknesses}},
		{"margin unknown", models.CompanyOverview{ReturnOnEquity: 0.04}, []string{"Low return on equity (4.0%)"}},
		{"roe unknown", models.CompanyOverview{ProfitMargin: 0.03}, []string{"Low profit margin (3.0%)"}},
		{"negative values still fire", models.CompanyOverview{ProfitMargin: -0.42, ReturnOnEquity: -0.35},
			[]string{"Low profit margin (-42.0%)", "Low return on equity (-35.0%)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weaknesses(tt.o, scores)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Weaknesses() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeyMetrics(t *testing.T) {
	o := models.CompanyOverview{
		MarketCap:              decimal.NewFromInt(128_000_000_000),
		PERatio:                22.5,
		ProfitMargin:           0.089,
		ReturnOnEquity:         0.125,
		QuarterlyRevenueGrowth: -0.031,
		Beta:                   0.71,
	}

	km := KeyMetrics(o)

	wantOrder := []string{
		LabelMarketCap, LabelPERatio, LabelPriceToBook, LabelProfitMargin,
		LabelROE, LabelDividendYield, LabelRevenueGrowth, LabelBeta,
	}
	if len(km) != len(wantOrder) {
		t.Fatalf("len(KeyMetrics) = %d, want %d", len(km), len(wantOrder))
	}
	for i, label := range wantOrder {
		if km[i].Label != label {
			t.Errorf("KeyMetrics[%d].Label = %q, want %q", i, km[i].Label, label)
		}
	}

	wantValues := map[string]string{
		LabelMarketCap:     "$128.0B",
		LabelPERatio:       "22.5",
		LabelPriceToBook:   NotAvailable,
		LabelProfitMargin:  "8.9%",
		LabelROE:           "12.5%",
		LabelDividendYield: NotAvailable,
		LabelRevenueGrowth: "-3.1%",
		LabelBeta:          "0.71",
	}
	for label, want := range wantValues {
		if got, _ := km.Get(label); got != want {
			t.Errorf("%s = %q, want %q", label, got, want)
		}
	}
}

func TestMarketCap_RoundTrip(t *testing.T) {
	marketCap := decimal.NewFromInt(128_000_000_000)

	formatted, _ := KeyMetrics(models.CompanyOverview{MarketCap: marketCap}).Get(LabelMarketCap)
	if formatted != "$128.0B" {
		t.Fatalf("formatted market cap = %q, want $128.0B", formatted)
	}

	parsed, err := ParseMarketCap(formatted)
	if err != nil {
		t.Fatalf("ParseMarketCap() error: %v", err)
	}
	if !parsed.Equal(marketCap) {
		t.Errorf("ParseMarketCap() = %s, want %s", parsed, marketCap)
	}

	for _, bad := range []string{"128.0B", "$128.0", "$abcB", ""} {
		if _, err := ParseMarketCap(bad); err == nil {
			t.Errorf("ParseMarketCap(%q) expected error", bad)
		}
	}
}

func TestInvestmentScore_WireFormat(t *testing.T) {
	score := CalculateInvestmentScore(models.CompanyOverview{
		MarketCap: decimal.NewFromInt(2_500_000_000),
		PERatio:   8,
	}, testQuote(), nil)

	data, err := json.Marshal(score)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	for _, key := range []string{"totalScore", "recommendation", "scores", "details"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing top-level key %q", key)
		}
	}
	scores := decoded["scores"].(map[string]any)
	for _, key := range []string{"financialHealth", "growth", "valuation", "risk"} {
		if _, ok := scores[key]; !ok {
			t.Errorf("missing scores key %q", key)
		}
	}
	details := decoded["details"].(map[string]any)
	for _, key := range []string{"strengths", "weaknesses", "keyMetrics"} {
		if _, ok := details[key]; !ok {
			t.Errorf("missing details key %q", key)
		}
	}

	if !strings.Contains(string(data), `"keyMetrics":{"Market Cap":"$2.5B","P/E Ratio":"8"`) {
		t.Errorf("key metrics not serialised in order: %s", data)
	}

	var back models.InvestmentScore
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("json.Unmarshal() into InvestmentScore error: %v", err)
	}
	if back.TotalScore != score.TotalScore || len(back.Details.KeyMetrics) != len(score.Details.KeyMetrics) {
		t.Errorf("decoded score differs: %+v", back)
	}
}
