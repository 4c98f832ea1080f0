// Package charts renders analysis results as PNG images.
package charts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	gocharts "github.com/vicanso/go-charts/v2"

	"ebis/models"
)

// Default image size in pixels
const (
	DefaultWidth  = 800
	DefaultHeight = 400
)

var (
	ErrNotEnoughData = errors.New("not enough data points")
)

// Size sets the rendered image dimensions. Zero values fall back to the
// defaults.
type Size struct {
	Width  int
	Height int
}

func (s Size) options() []gocharts.OptionFunc {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return []gocharts.OptionFunc{
		gocharts.WidthOptionFunc(w),
		gocharts.HeightOptionFunc(h),
	}
}

// ScoreLabels are the category names in SubScores order
var ScoreLabels = []string{"Financial Health", "Growth", "Valuation", "Risk"}

// PriceRange returns the y-axis bounds for closes: the min and max padded
// by 5% of the spread (at least 0.2% of the max), never below zero.
func PriceRange(closes []float64) (float64, float64) {
	if len(closes) == 0 {
		return 0, 0
	}
	lo, hi := closes[0], closes[0]
	for _, v := range closes[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	pad := (hi - lo) * 0.05
	if pad < hi*0.002 {
		pad = hi * 0.002
	}
	lo -= pad
	if lo < 0 {
		lo = 0
	}
	return lo, hi + pad
}

// RenderPriceChart draws the closing prices of series as a line chart
func RenderPriceChart(symbol string, series []models.TimeSeriesData, size Size) ([]byte, error) {
	if len(series) < 2 {
		return nil, ErrNotEnoughData
	}

	closes := models.Closes(series)
	dates := make([]string, len(series))
	for i, bar := range series {
		dates[i] = bar.Date
	}
	yMin, yMax := PriceRange(closes)

	split := len(dates) - 1
	if split > 10 {
		split = 10
	}

	opts := []gocharts.OptionFunc{
		gocharts.TitleTextOptionFunc(strings.ToUpper(symbol)+" • Daily Close", fmt.Sprintf("%s to %s", dates[0], dates[len(dates)-1])),
		gocharts.XAxisOptionFunc(gocharts.XAxisOption{Data: dates, BoundaryGap: gocharts.FalseFlag(), SplitNumber: split}),
		gocharts.YAxisOptionFunc(gocharts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		gocharts.ThemeOptionFunc(gocharts.ThemeLight),
	}
	opts = append(opts, size.options()...)

	painter, err := gocharts.LineRender([][]float64{closes}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to render price chart: %w", err)
	}
	return painter.Bytes()
}

// RenderScoreChart draws the four category scores as a bar chart on a
// fixed 0-100 axis
func RenderScoreChart(symbol string, score models.InvestmentScore, size Size) ([]byte, error) {
	values := []float64{
		score.Scores.FinancialHealth,
		score.Scores.Growth,
		score.Scores.Valuation,
		score.Scores.Risk,
	}
	yMin, yMax := 0.0, 100.0

	opts := []gocharts.OptionFunc{
		gocharts.TitleTextOptionFunc(
			strings.ToUpper(symbol)+" • Score "+fmt.Sprint(score.TotalScore),
			string(score.Recommendation),
		),
		gocharts.XAxisOptionFunc(gocharts.XAxisOption{Data: ScoreLabels}),
		gocharts.YAxisOptionFunc(gocharts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		gocharts.ThemeOptionFunc(gocharts.ThemeLight),
	}
	opts = append(opts, size.options()...)

	painter, err := gocharts.BarRender([][]float64{values}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to render score chart: %w", err)
	}
	return painter.Bytes()
}
