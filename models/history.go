package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is one past analysis kept in the user's history
type HistoryRecord struct {
	ID         uuid.UUID       `json:"id"`
	UserID     string          `json:"userId,omitempty"`
	Symbol     string          `json:"symbol"`
	Name       string          `json:"name"`
	Industry   string          `json:"industry"`
	Sector     string          `json:"sector"`
	Score      InvestmentScore `json:"score"`
	Quote      StockQuote      `json:"quote"`
	DemoData   bool            `json:"demoData"`
	Favorite   bool            `json:"favorite"`
	AnalyzedAt time.Time       `json:"analyzedAt"`
}

// NewHistoryRecord creates a record for an analysis of overview taken now
func NewHistoryRecord(userID string, overview CompanyOverview, quote StockQuote, score InvestmentScore) *HistoryRecord {
	return &HistoryRecord{
		ID:         uuid.New(),
		UserID:     userID,
		Symbol:     overview.Symbol,
		Name:       overview.Name,
		Industry:   overview.Industry,
		Sector:     overview.Sector,
		Score:      score,
		Quote:      quote,
		AnalyzedAt: time.Now(),
	}
}
