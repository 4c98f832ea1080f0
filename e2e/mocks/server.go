// Package mocks provides an HTTP mock of the Alpha Vantage API for E2E tests.
package mocks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
)

// MockServer serves configurable Alpha Vantage responses.
type MockServer struct {
	mu     sync.RWMutex
	server *httptest.Server

	companies map[string]Company
	failures  map[string]Failure // keyed by function, "*" for all

	// Request tracking for assertions
	requestLog []RequestLog
}

// RequestLog records incoming requests for test assertions.
type RequestLog struct {
	Function string
	Symbol   string
	APIKey   string
}

// NewMockServer creates a new mock server with default companies.
func NewMockServer() *MockServer {
	m := &MockServer{
		companies:  make(map[string]Company),
		failures:   make(map[string]Failure),
		requestLog: make([]RequestLog, 0),
	}
	m.setDefaults()
	m.server = httptest.NewServer(m)
	return m
}

// URL returns the query endpoint of the mock server.
func (m *MockServer) URL() string {
	return m.server.URL + "/query"
}

// Close shuts down the mock server.
func (m *MockServer) Close() {
	m.server.Close()
}

// ServeHTTP routes on the function query parameter like the real API.
func (m *MockServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	function := q.Get("function")
	symbol := strings.ToUpper(q.Get("symbol"))

	m.mu.Lock()
	m.requestLog = append(m.requestLog, RequestLog{
		Function: function,
		Symbol:   symbol,
		APIKey:   q.Get("apikey"),
	})
	failure, ok := m.failures[function]
	if !ok {
		failure = m.failures["*"]
	}
	company, known := m.companies[symbol]
	m.mu.Unlock()

	switch failure {
	case FailRateLimit:
		writeJSON(w, map[string]string{
			"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute.",
		})
		return
	case FailInvalidCall:
		writeJSON(w, map[string]string{
			"Error Message": fmt.Sprintf("Invalid API call. Please retry or visit the documentation for %s.", function),
		})
		return
	case FailServerError:
		http.Error(w, "upstream failure", http.StatusInternalServerError)
		return
	}

	switch function {
	case "GLOBAL_QUOTE":
		m.handleQuote(w, company, known)
	case "TIME_SERIES_DAILY":
		m.handleDaily(w, company, known)
	case "OVERVIEW":
		m.handleOverview(w, company, known)
	case "SYMBOL_SEARCH":
		m.handleSearch(w, q.Get("keywords"))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GetRequestLog returns all logged requests for assertions.
func (m *MockServer) GetRequestLog() []RequestLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RequestLog{}, m.requestLog...)
}

// CountRequests returns how many calls were made for function.
func (m *MockServer) CountRequests(function string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.requestLog {
		if r.Function == function {
			n++
		}
	}
	return n
}

// ClearRequestLog clears the request log.
func (m *MockServer) ClearRequestLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestLog = make([]RequestLog, 0)
}

// SetCompany adds or replaces a company.
func (m *MockServer) SetCompany(c Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[strings.ToUpper(c.Symbol)] = c
}

// RemoveCompany makes every endpoint answer with empty data for symbol.
func (m *MockServer) RemoveCompany(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.companies, strings.ToUpper(symbol))
}

// SetFailure makes function fail; "*" applies to every function.
func (m *MockServer) SetFailure(function string, f Failure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f == FailNone {
		delete(m.failures, function)
		return
	}
	m.failures[function] = f
}

func (m *MockServer) setDefaults() {
	m.companies["IBM"] = Company{
		Symbol:   "IBM",
		Name:     "International Business Machines",
		Sector:   "TECHNOLOGY",
		Industry: "COMPUTER & OFFICE EQUIPMENT",
		Quote: Quote{
			Price:         "139.7000",
			Volume:        "3542000",
			Change:        "0.4200",
			ChangePercent: "0.3015%",
		},
		Bars: GenerateBars("2024-01", 20, 130, 0.5),
		Overview: map[string]string{
			"MarketCapitalization":       "128000000000",
			"PERatio":                    "22.5",
			"PEGRatio":                   "1.8",
			"PriceToBookRatio":           "5.9",
			"EPS":                        "6.2",
			"DividendYield":              "0.047",
			"ProfitMargin":               "0.089",
			"ReturnOnEquityTTM":          "0.125",
			"QuarterlyRevenueGrowthYOY":  "0.041",
			"QuarterlyEarningsGrowthYOY": "0.11",
			"Beta":                       "0.71",
			"52WeekHigh":                 "153.21",
			"52WeekLow":                  "115.55",
		},
	}

	m.companies["NOVA"] = Company{
		Symbol:   "NOVA",
		Name:     "Nova Speculative Holdings",
		Sector:   "ENERGY",
		Industry: "SOLAR",
		Quote: Quote{
			Price:         "4.1200",
			Volume:        "9100000",
			Change:        "-0.3100",
			ChangePercent: "-7.0000%",
		},
		Bars: GenerateBars("2024-01", 20, 6, -0.1),
		Overview: map[string]string{
			"MarketCapitalization":       "450000000",
			"PERatio":                    "80",
			"PEGRatio":                   "4",
			"PriceToBookRatio":           "9",
			"PriceToSalesRatioTTM":       "12",
			"EPS":                        "0.05",
			"ProfitMargin":               "0.01",
			"OperatingMarginTTM":         "0.02",
			"ReturnOnEquityTTM":          "0.02",
			"ReturnOnAssetsTTM":          "0.01",
			"QuarterlyRevenueGrowthYOY":  "-0.22",
			"QuarterlyEarningsGrowthYOY": "-",
			"Beta":                       "2.4",
			"52WeekHigh":                 "14",
			"52WeekLow":                  "3.9",
		},
	}
}

func (m *MockServer) handleQuote(w http.ResponseWriter, c Company, known bool) {
	if !known {
		writeJSON(w, map[string]any{"Global Quote": map[string]string{}})
		return
	}
	quote := map[string]string{
		"01. symbol":         c.Symbol,
		"05. price":          c.Quote.Price,
		"06. volume":         c.Quote.Volume,
		"09. change":         c.Quote.Change,
		"10. change percent": c.Quote.ChangePercent,
	}
	writeJSON(w, map[string]any{"Global Quote": quote})
}

func (m *MockServer) handleDaily(w http.ResponseWriter, c Company, known bool) {
	if !known || len(c.Bars) == 0 {
		writeJSON(w, map[string]string{
			"Error Message": "Invalid API call. Please retry or visit the documentation for TIME_SERIES_DAILY.",
		})
		return
	}
	writeJSON(w, map[string]any{
		"Meta Data":           map[string]string{"2. Symbol": c.Symbol},
		"Time Series (Daily)": c.Bars,
	})
}

func (m *MockServer) handleOverview(w http.ResponseWriter, c Company, known bool) {
	if !known {
		writeJSON(w, map[string]string{})
		return
	}
	body := map[string]string{
		"Symbol":   c.Symbol,
		"Name":     c.Name,
		"Sector":   c.Sector,
		"Industry": c.Industry,
	}
	for k, v := range c.Overview {
		body[k] = v
	}
	writeJSON(w, body)
}

func (m *MockServer) handleSearch(w http.ResponseWriter, keywords string) {
	keywords = strings.ToLower(keywords)

	m.mu.RLock()
	var symbols []string
	for sym, c := range m.companies {
		if strings.Contains(strings.ToLower(sym), keywords) || strings.Contains(strings.ToLower(c.Name), keywords) {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	matches := make([]map[string]string, 0, len(symbols))
	for _, sym := range symbols {
		matches = append(matches, map[string]string{
			"1. symbol":     sym,
			"2. name":       m.companies[sym].Name,
			"9. matchScore": "1.0000",
		})
	}
	m.mu.RUnlock()

	writeJSON(w, map[string]any{"bestMatches": matches})
}

// GenerateBars builds count consecutive daily bars in month (YYYY-MM)
// starting at start and moving by step per day.
func GenerateBars(month string, count int, start, step float64) map[string]DailyBar {
	bars := make(map[string]DailyBar, count)
	for i := 0; i < count; i++ {
		c := start + step*float64(i)
		bars[fmt.Sprintf("%s-%02d", month, i+1)] = DailyBar{
			Open:   fmt.Sprintf("%.4f", c-step/2),
			High:   fmt.Sprintf("%.4f", c*1.01),
			Low:    fmt.Sprintf("%.4f", c*0.99),
			Close:  fmt.Sprintf("%.4f", c),
			Volume: "1000000",
		}
	}
	return bars
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
