package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ebis/analyzer"
	"ebis/models"
	"ebis/observability"
	"ebis/services"
)

// marketData is the outcome of the parallel upstream fetch
type marketData struct {
	overview *models.CompanyOverview
	quote    *models.StockQuote
	series   []models.TimeSeriesData

	overviewErr error
	quoteErr    error
	seriesErr   error
}

func (a *App) fetchMarketData(ctx context.Context, symbol string) marketData {
	var (
		wg   sync.WaitGroup
		data marketData
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		data.overview, data.overviewErr = a.market.GetCompanyOverview(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		data.quote, data.quoteErr = a.market.GetQuote(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		data.series, data.seriesErr = a.market.GetDailyTimeSeries(ctx, symbol)
	}()
	wg.Wait()

	return data
}

// Analyze fetches market data for symbol, scores it and, when userID is
// set, appends the result to that user's history.
//
// The overview is required. Without it the bundled demo dataset is scored
// instead if the config allows it. A missing quote or series only narrows
// what the risk category can evaluate.
func (a *App) Analyze(ctx context.Context, userID, symbol string) (*models.AnalysisResult, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	select {
	case a.analysisSem <- struct{}{}:
		defer func() { <-a.analysisSem }()
	default:
		return nil, ErrAnalysisBusy
	}

	metrics := observability.GetMetrics()
	metrics.RecordAnalysisRequest(symbol)
	timer := metrics.NewTimer()
	log := observability.WithSymbol(symbol)

	if a.cfg.Analysis.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.Analysis.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	data := a.fetchMarketData(ctx, symbol)

	result := &models.AnalysisResult{}
	switch {
	case data.overviewErr == nil && data.overview != nil:
		result.Overview = *data.overview
		if data.quoteErr != nil {
			log.Warn("quote unavailable, scoring without it", "error", data.quoteErr)
			result.Quote = models.StockQuote{Symbol: symbol}
		} else {
			result.Quote = *data.quote
		}
		if data.seriesErr != nil {
			log.Warn("daily series unavailable, scoring without it", "error", data.seriesErr)
		} else {
			result.TimeSeries = data.series
		}

	case ctx.Err() != nil:
		timer.ObserveAnalysis("error")
		metrics.RecordAnalysisError(categorizeError(ctx.Err()))
		return nil, fmt.Errorf("analysis of %s aborted: %w", symbol, ctx.Err())

	case a.cfg.Analysis.DemoFallback:
		log.Warn("overview unavailable, falling back to demo data", "error", data.overviewErr)
		metrics.RecordDemoFallback(symbol)
		demo := services.DemoData()
		result.Overview = demo.Overview
		result.Quote = demo.Quote
		result.TimeSeries = demo.TimeSeries
		result.DemoData = true

	default:
		timer.ObserveAnalysis("error")
		metrics.RecordAnalysisError(categorizeError(data.overviewErr))
		return nil, fmt.Errorf("%w for %s: %v", ErrNoMarketData, symbol, data.overviewErr)
	}

	result.Score = analyzer.CalculateInvestmentScore(result.Overview, result.Quote, result.TimeSeries)

	if userID != "" && a.history != nil {
		rec := models.NewHistoryRecord(userID, result.Overview, result.Quote, result.Score)
		rec.DemoData = result.DemoData
		rec.AnalyzedAt = a.now()
		if err := a.history.Add(ctx, rec); err != nil {
			timer.ObserveAnalysis("error")
			metrics.RecordAnalysisError("history_save_failed")
			return nil, fmt.Errorf("failed to save analysis history: %w", err)
		}
		result.HistoryID = rec.ID.String()
	}

	timer.ObserveAnalysis("success")
	metrics.RecordScore(string(result.Score.Recommendation), result.Score.TotalScore,
		result.Score.Scores.FinancialHealth,
		result.Score.Scores.Growth,
		result.Score.Scores.Valuation,
		result.Score.Scores.Risk)

	log.Info("analysis complete",
		"total_score", result.Score.TotalScore,
		"recommendation", result.Score.Recommendation,
		"demo_data", result.DemoData)

	return result, nil
}

// categorizeError labels an analysis failure for metrics
func categorizeError(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, services.ErrServiceUnavailable):
		return "circuit_breaker"
	case errors.Is(err, services.ErrAPILimit):
		return "rate_limit"
	case errors.Is(err, services.ErrNoData):
		return "no_data"
	case errors.Is(err, services.ErrAPIError):
		return "api_error"
	default:
		return "other"
	}
}
