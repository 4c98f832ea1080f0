package models

// AnalysisResult is everything the result view shows for one symbol
type AnalysisResult struct {
	Overview   CompanyOverview  `json:"overview"`
	Quote      StockQuote       `json:"quote"`
	TimeSeries []TimeSeriesData `json:"timeSeries"`
	Score      InvestmentScore  `json:"score"`
	HistoryID  string           `json:"historyId,omitempty"`
	// DemoData is set when the upstream source had no data and the
	// bundled demo dataset was scored instead.
	DemoData bool `json:"demoData"`
}
