package mocks

// Company is one symbol the mock Alpha Vantage server knows about.
// Numbers are kept as the strings the real API sends.
type Company struct {
	Symbol   string
	Name     string
	Sector   string
	Industry string

	Quote    Quote
	Bars     map[string]DailyBar // keyed by ISO date
	Overview map[string]string   // raw OVERVIEW fields beyond the identity ones
}

// Quote is the GLOBAL_QUOTE payload of a company.
type Quote struct {
	Price         string `json:"05. price"`
	Volume        string `json:"06. volume"`
	Change        string `json:"09. change"`
	ChangePercent string `json:"10. change percent"`
}

// DailyBar is one TIME_SERIES_DAILY entry.
type DailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// Failure selects how the mock answers instead of serving data.
type Failure int

const (
	FailNone Failure = iota
	// FailRateLimit answers 200 with the "Note" throttling message
	FailRateLimit
	// FailInvalidCall answers 200 with an "Error Message"
	FailInvalidCall
	// FailServerError answers with HTTP 500
	FailServerError
)
