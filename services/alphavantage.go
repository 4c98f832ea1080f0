package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ebis/models"
	"ebis/observability"
)

const (
	defaultAlphaVantageURL = "https://www.alphavantage.co/query"

	// SeriesWindow is how many of the most recent daily bars are kept
	SeriesWindow = 30
	// MaxSearchResults caps symbol search matches
	MaxSearchResults = 10
)

var (
	// ErrNoData means the API answered but had nothing for the symbol
	ErrNoData = errors.New("no data for symbol")
	// ErrAPILimit means the API refused the call because of a rate or plan limit
	ErrAPILimit = errors.New("alpha vantage rate limit")
	// ErrAPIError means the API rejected the request itself
	ErrAPIError = errors.New("alpha vantage error")
)

// AlphaVantageService handles communication with Alpha Vantage API
type AlphaVantageService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	retry      RetryConfig
}

// NewAlphaVantageService creates a new AlphaVantageService instance
func NewAlphaVantageService(apiKey string) *AlphaVantageService {
	if apiKey == "" {
		apiKey = "demo"
	}
	return &AlphaVantageService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultAlphaVantageURL,
		retry:      DefaultRetryConfig,
	}
}

// WithBaseURL points the service at another endpoint
func (s *AlphaVantageService) WithBaseURL(baseURL string) *AlphaVantageService {
	if baseURL != "" {
		s.baseURL = baseURL
	}
	return s
}

// WithTimeout sets the per-request HTTP timeout
func (s *AlphaVantageService) WithTimeout(timeout time.Duration) *AlphaVantageService {
	if timeout > 0 {
		s.httpClient.Timeout = timeout
	}
	return s
}

// WithRetryConfig replaces the retry policy
func (s *AlphaVantageService) WithRetryConfig(cfg RetryConfig) *AlphaVantageService {
	s.retry = cfg
	return s
}

// apiMessage carries the error fields Alpha Vantage returns with HTTP 200
type apiMessage struct {
	ErrorMessage string `json:"Error Message"`
	Note         string `json:"Note"`
	Information  string `json:"Information"`
}

func (m apiMessage) err() error {
	switch {
	case m.ErrorMessage != "":
		return fmt.Errorf("%w: %s", ErrAPIError, m.ErrorMessage)
	case m.Note != "":
		return fmt.Errorf("%w: %s", ErrAPILimit, m.Note)
	case m.Information != "":
		return fmt.Errorf("%w: %s", ErrAPILimit, m.Information)
	}
	return nil
}

// query performs one API call with retry, circuit breaking and metrics,
// decoding the JSON body into out
func (s *AlphaVantageService) query(ctx context.Context, operation string, params url.Values, out any) error {
	params.Set("apikey", s.apiKey)

	metrics := observability.GetMetrics()
	metrics.RecordExternalAPIRequest(BreakerAlphaVantage, operation)
	timer := metrics.NewTimer()
	defer timer.ObserveExternalAPI(BreakerAlphaVantage, operation)

	_, err := WithCircuitBreaker(ctx, BreakerAlphaVantage, func() (struct{}, error) {
		return struct{}{}, WithRetry(ctx, s.retry, func() error {
			return s.fetch(ctx, params, out)
		})
	})
	if err != nil {
		metrics.RecordExternalAPIError(BreakerAlphaVantage, operation, errorType(err))
		return fmt.Errorf("alpha vantage %s: %w", operation, err)
	}
	return nil
}

func (s *AlphaVantageService) fetch(ctx context.Context, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Permanent(fmt.Errorf("failed to build request: %w", err))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return Permanent(err)
		}
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var msg apiMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if err := msg.err(); err != nil {
		return Permanent(err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrAPILimit):
		return "rate_limit"
	case errors.Is(err, ErrAPIError):
		return "api_error"
	case errors.Is(err, ErrServiceUnavailable):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "request"
	}
}

// QuoteResponse represents a quote from Alpha Vantage
type QuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		LatestDay     string `json:"07. latest trading day"`
		PrevClose     string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
}

// GetQuote returns the latest quote for a symbol
func (s *AlphaVantageService) GetQuote(ctx context.Context, symbol string) (*models.StockQuote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	var resp QuoteResponse
	if err := s.query(ctx, "quote", params, &resp); err != nil {
		return nil, err
	}

	q := resp.GlobalQuote
	if q.Symbol == "" {
		return nil, fmt.Errorf("quote %s: %w", symbol, ErrNoData)
	}

	return &models.StockQuote{
		Symbol:        q.Symbol,
		Price:         parseDecimal(q.Price),
		Change:        parseDecimal(q.Change),
		ChangePercent: parseFloat(strings.TrimSuffix(strings.TrimSpace(q.ChangePercent), "%")),
		Volume:        parseInt(q.Volume),
	}, nil
}

// DailyBar is one entry of the TIME_SERIES_DAILY payload
type DailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// TimeSeriesResponse represents the daily time series response
type TimeSeriesResponse struct {
	Series map[string]DailyBar `json:"Time Series (Daily)"`
}

// GetDailyTimeSeries returns up to SeriesWindow most recent daily bars,
// ascending by date
func (s *AlphaVantageService) GetDailyTimeSeries(ctx context.Context, symbol string) ([]models.TimeSeriesData, error) {
	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)

	var resp TimeSeriesResponse
	if err := s.query(ctx, "daily_series", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Series) == 0 {
		return nil, fmt.Errorf("daily series %s: %w", symbol, ErrNoData)
	}

	return buildSeries(resp.Series), nil
}

func buildSeries(raw map[string]DailyBar) []models.TimeSeriesData {
	dates := make([]string, 0, len(raw))
	for date := range raw {
		dates = append(dates, date)
	}
	// ISO dates order lexically
	sort.Strings(dates)
	if len(dates) > SeriesWindow {
		dates = dates[len(dates)-SeriesWindow:]
	}

	series := make([]models.TimeSeriesData, 0, len(dates))
	for _, date := range dates {
		bar := raw[date]
		series = append(series, models.TimeSeriesData{
			Date:   date,
			Open:   parseDecimal(bar.Open),
			High:   parseDecimal(bar.High),
			Low:    parseDecimal(bar.Low),
			Close:  parseDecimal(bar.Close),
			Volume: parseInt(bar.Volume),
		})
	}
	return series
}

// OverviewResponse represents the company overview response from Alpha Vantage
type OverviewResponse struct {
	Symbol                     string `json:"Symbol"`
	Name                       string `json:"Name"`
	Description                string `json:"Description"`
	Sector                     string `json:"Sector"`
	Industry                   string `json:"Industry"`
	MarketCap                  string `json:"MarketCapitalization"`
	PERatio                    string `json:"PERatio"`
	PEGRatio                   string `json:"PEGRatio"`
	BookValue                  string `json:"BookValue"`
	DividendYield              string `json:"DividendYield"`
	EPS                        string `json:"EPS"`
	RevenuePerShare            string `json:"RevenuePerShareTTM"`
	ProfitMargin               string `json:"ProfitMargin"`
	OperatingMargin            string `json:"OperatingMarginTTM"`
	ReturnOnAssets             string `json:"ReturnOnAssetsTTM"`
	ReturnOnEquity             string `json:"ReturnOnEquityTTM"`
	Revenue                    string `json:"RevenueTTM"`
	GrossProfit                string `json:"GrossProfitTTM"`
	DilutedEPS                 string `json:"DilutedEPSTTM"`
	QuarterlyEarningsGrowth    string `json:"QuarterlyEarningsGrowthYOY"`
	QuarterlyRevenueGrowth     string `json:"QuarterlyRevenueGrowthYOY"`
	AnalystTarget              string `json:"AnalystTargetPrice"`
	TrailingPE                 string `json:"TrailingPE"`
	ForwardPE                  string `json:"ForwardPE"`
	PriceToSales               string `json:"PriceToSalesRatioTTM"`
	PriceToBook                string `json:"PriceToBookRatio"`
	EVToRevenue                string `json:"EVToRevenue"`
	EVToEBITDA                 string `json:"EVToEBITDA"`
	Beta                       string `json:"Beta"`
	Week52High                 string `json:"52WeekHigh"`
	Week52Low                  string `json:"52WeekLow"`
	Day50MovingAverage         string `json:"50DayMovingAverage"`
	Day200MovingAverage        string `json:"200DayMovingAverage"`
	SharesOutstanding          string `json:"SharesOutstanding"`
	SharesFloat                string `json:"SharesFloat"`
	SharesShort                string `json:"SharesShort"`
	SharesShortPriorMonth      string `json:"SharesShortPriorMonth"`
	ShortRatio                 string `json:"ShortRatio"`
	ShortPercentOutstanding    string `json:"ShortPercentOutstanding"`
	ShortPercentFloat          string `json:"ShortPercentFloat"`
	PercentInsiders            string `json:"PercentInsiders"`
	PercentInstitutions        string `json:"PercentInstitutions"`
	ForwardAnnualDividendRate  string `json:"ForwardAnnualDividendRate"`
	ForwardAnnualDividendYield string `json:"ForwardAnnualDividendYield"`
	PayoutRatio                string `json:"PayoutRatio"`
	DividendDate               string `json:"DividendDate"`
	ExDividendDate             string `json:"ExDividendDate"`
	LastSplitFactor            string `json:"LastSplitFactor"`
	LastSplitDate              string `json:"LastSplitDate"`
}

// GetCompanyOverview returns descriptive and fundamental data for a symbol.
// Missing or unparsable numbers become zero.
func (s *AlphaVantageService) GetCompanyOverview(ctx context.Context, symbol string) (*models.CompanyOverview, error) {
	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)

	var resp OverviewResponse
	if err := s.query(ctx, "overview", params, &resp); err != nil {
		return nil, err
	}
	if resp.Symbol == "" {
		return nil, fmt.Errorf("overview %s: %w", symbol, ErrNoData)
	}

	return resp.toModel(), nil
}

func (o OverviewResponse) toModel() *models.CompanyOverview {
	return &models.CompanyOverview{
		Symbol:      o.Symbol,
		Name:        o.Name,
		Description: o.Description,
		Sector:      o.Sector,
		Industry:    o.Industry,

		MarketCap:   parseDecimal(o.MarketCap),
		Revenue:     parseDecimal(o.Revenue),
		GrossProfit: parseDecimal(o.GrossProfit),

		PERatio:         parseFloat(o.PERatio),
		PEGRatio:        parseFloat(o.PEGRatio),
		BookValue:       parseFloat(o.BookValue),
		DividendYield:   parseFloat(o.DividendYield),
		EPS:             parseFloat(o.EPS),
		RevenuePerShare: parseFloat(o.RevenuePerShare),
		DilutedEPS:      parseFloat(o.DilutedEPS),

		ProfitMargin:    parseFloat(o.ProfitMargin),
		OperatingMargin: parseFloat(o.OperatingMargin),
		ReturnOnAssets:  parseFloat(o.ReturnOnAssets),
		ReturnOnEquity:  parseFloat(o.ReturnOnEquity),

		QuarterlyEarningsGrowth: parseFloat(o.QuarterlyEarningsGrowth),
		QuarterlyRevenueGrowth:  parseFloat(o.QuarterlyRevenueGrowth),

		AnalystTargetPrice: parseFloat(o.AnalystTarget),
		TrailingPE:         parseFloat(o.TrailingPE),
		ForwardPE:          parseFloat(o.ForwardPE),
		PriceToSales:       parseFloat(o.PriceToSales),
		PriceToBook:        parseFloat(o.PriceToBook),
		EVToRevenue:        parseFloat(o.EVToRevenue),
		EVToEBITDA:         parseFloat(o.EVToEBITDA),

		Beta:                parseFloat(o.Beta),
		Week52High:          parseDecimal(o.Week52High),
		Week52Low:           parseDecimal(o.Week52Low),
		Day50MovingAverage:  parseFloat(o.Day50MovingAverage),
		Day200MovingAverage: parseFloat(o.Day200MovingAverage),

		SharesOutstanding:       parseInt(o.SharesOutstanding),
		SharesFloat:             parseInt(o.SharesFloat),
		SharesShort:             parseInt(o.SharesShort),
		SharesShortPriorMonth:   parseInt(o.SharesShortPriorMonth),
		ShortRatio:              parseFloat(o.ShortRatio),
		ShortPercentOutstanding: parseFloat(o.ShortPercentOutstanding),
		ShortPercentFloat:       parseFloat(o.ShortPercentFloat),
		PercentInsiders:         parseFloat(o.PercentInsiders),
		PercentInstitutions:     parseFloat(o.PercentInstitutions),

		ForwardAnnualDividendRate:  parseFloat(o.ForwardAnnualDividendRate),
		ForwardAnnualDividendYield: parseFloat(o.ForwardAnnualDividendYield),
		PayoutRatio:                parseFloat(o.PayoutRatio),
		DividendDate:               cleanString(o.DividendDate),
		ExDividendDate:             cleanString(o.ExDividendDate),
		LastSplitFactor:            cleanString(o.LastSplitFactor),
		LastSplitDate:              cleanString(o.LastSplitDate),
	}
}

// SearchResponse represents the SYMBOL_SEARCH response
type SearchResponse struct {
	BestMatches []struct {
		Symbol string `json:"1. symbol"`
		Name   string `json:"2. name"`
	} `json:"bestMatches"`
}

// SearchCompanies returns up to MaxSearchResults symbols matching keywords
func (s *AlphaVantageService) SearchCompanies(ctx context.Context, keywords string) ([]models.SearchResult, error) {
	keywords = strings.TrimSpace(keywords)
	if keywords == "" {
		return []models.SearchResult{}, nil
	}

	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", keywords)

	var resp SearchResponse
	if err := s.query(ctx, "search", params, &resp); err != nil {
		return nil, err
	}

	n := min(len(resp.BestMatches), MaxSearchResults)
	results := make([]models.SearchResult, 0, n)
	for _, m := range resp.BestMatches[:n] {
		results = append(results, models.SearchResult{Symbol: m.Symbol, Name: m.Name})
	}
	return results, nil
}

// unknown reports the placeholder strings Alpha Vantage uses for missing values
func unknown(s string) bool {
	switch s {
	case "", "None", "-", "N/A":
		return true
	}
	return false
}

func cleanString(s string) string {
	s = strings.TrimSpace(s)
	if unknown(s) {
		return ""
	}
	return s
}

func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if unknown(s) {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		observability.Debug("unparsable number from alpha vantage", "value", s)
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if unknown(s) {
		return 0
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return int64(parseFloat(s))
	}
	return v
}

func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if unknown(s) {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		observability.Debug("unparsable decimal from alpha vantage", "value", s)
		return decimal.Zero
	}
	return d
}
