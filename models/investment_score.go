package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Recommendation is the categorical investment action derived from a total score
type Recommendation string

const (
	RecommendationStrongBuy  Recommendation = "Strong Buy"
	RecommendationBuy        Recommendation = "Buy"
	RecommendationHold       Recommendation = "Hold"
	RecommendationSell       Recommendation = "Sell"
	RecommendationStrongSell Recommendation = "Strong Sell"
)

// Recommendations lists every label from most to least favourable
var Recommendations = []Recommendation{
	RecommendationStrongBuy,
	RecommendationBuy,
	RecommendationHold,
	RecommendationSell,
	RecommendationStrongSell,
}

// Rank returns the position of r in Recommendations, 0 being the best.
// Unknown labels rank last.
func (r Recommendation) Rank() int {
	for i, rec := range Recommendations {
		if rec == r {
			return i
		}
	}
	return len(Recommendations)
}

// InvestmentScore is the result of scoring one company
type InvestmentScore struct {
	TotalScore     int            `json:"totalScore"`
	Recommendation Recommendation `json:"recommendation"`
	Scores         SubScores      `json:"scores"`
	Details        ScoreDetails   `json:"details"`
}

// SubScores holds the four category scores, each in [0, 100]
type SubScores struct {
	FinancialHealth float64 `json:"financialHealth"`
	Growth          float64 `json:"growth"`
	Valuation       float64 `json:"valuation"`
	Risk            float64 `json:"risk"`
}

// ScoreDetails carries the human-readable breakdown of a score
type ScoreDetails struct {
	Strengths  []string   `json:"strengths"`
	Weaknesses []string   `json:"weaknesses"`
	KeyMetrics KeyMetrics `json:"keyMetrics"`
}

// KeyMetric is one display label and its formatted value
type KeyMetric struct {
	Label string
	Value string
}

// KeyMetrics is an ordered label → value table. It serialises to a JSON
// object whose keys keep insertion order.
type KeyMetrics []KeyMetric

// Get returns the value for label
func (km KeyMetrics) Get(label string) (string, bool) {
	for _, m := range km {
		if m.Label == label {
			return m.Value, true
		}
	}
	return "", false
}

// MarshalJSON writes the table as an ordered JSON object
func (km KeyMetrics) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range km {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(m.Label)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(label)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of string values, keeping key order
func (km *KeyMetrics) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*km = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("key metrics: expected object, got %v", tok)
	}

	var out KeyMetrics
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("key metrics: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("key metrics: value for %q: %w", label, err)
		}
		out = append(out, KeyMetric{Label: label, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*km = out
	return nil
}
