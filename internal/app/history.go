package app

import (
	"context"
	"errors"

	"ebis/charts"
	"ebis/models"
	"ebis/services"
)

// ListHistory returns the user's most recent analyses, newest first
func (a *App) ListHistory(ctx context.Context, userID string, limit int) ([]models.HistoryRecord, error) {
	records, err := a.history.List(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.HistoryRecord{}
	}
	return records, nil
}

// GetHistory returns one of the user's analyses
func (a *App) GetHistory(ctx context.Context, userID, id string) (*models.HistoryRecord, error) {
	recordID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return a.history.Get(ctx, userID, recordID)
}

// DeleteHistory removes one of the user's analyses
func (a *App) DeleteHistory(ctx context.Context, userID, id string) error {
	recordID, err := ParseID(id)
	if err != nil {
		return err
	}
	return a.history.Delete(ctx, userID, recordID)
}

// SetFavorite flags or unflags one of the user's analyses
func (a *App) SetFavorite(ctx context.Context, userID, id string, favorite bool) (*models.HistoryRecord, error) {
	recordID, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	return a.history.SetFavorite(ctx, userID, recordID, favorite)
}

// ClearHistory removes all of the user's analyses
func (a *App) ClearHistory(ctx context.Context, userID string) (int, error) {
	return a.history.Clear(ctx, userID)
}

// RenderPriceChart draws the recent daily closes of symbol as a PNG.
// With demo fallback enabled, a symbol without data gets the demo series.
func (a *App) RenderPriceChart(ctx context.Context, symbol string, size charts.Size) ([]byte, error) {
	symbol, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	series, err := a.market.GetDailyTimeSeries(ctx, symbol)
	if err != nil || len(series) < 2 {
		if !a.cfg.Analysis.DemoFallback || ctx.Err() != nil {
			if err == nil {
				err = services.ErrNoData
			}
			return nil, errors.Join(ErrNoMarketData, err)
		}
		series = services.DemoData().TimeSeries
		symbol = services.DemoSymbol
	}

	return charts.RenderPriceChart(symbol, series, size)
}

// RenderScoreChart draws the category scores of a stored analysis as a PNG
func (a *App) RenderScoreChart(ctx context.Context, userID, id string, size charts.Size) ([]byte, error) {
	rec, err := a.GetHistory(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return charts.RenderScoreChart(rec.Symbol, rec.Score, size)
}
