// Package stats computes trend, volatility, return and valuation statistics
// over price series. Every function is pure.
package stats

import (
	"errors"

	"ResearchDesk/internal/calculator"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrNoData           = errors.New("no data")
)

// Trend holds aligned moving-average series.
type Trend struct {
	Window    int
	Span      int
	SMA       []float64
	EMA       []float64
	LatestSMA float64
	LatestEMA float64
}

// Volatility holds dispersion and drawdown figures for a series.
type Volatility struct {
	Daily       float64
	Annualized  float64
	MaxDrawdown float64
}

// Returns holds performance figures for a series.
type Returns struct {
	Total        float64
	AverageDaily float64
	Annualized   float64
	Bars         int
}

// ComputeTrend builds the SMA and EMA series of closes.
func ComputeTrend(closes []float64, window, span int) (Trend, error) {
	sma, err := calculator.SMASeries(closes, window)
	if err != nil {
		return Trend{}, err
	}
	ema, err := calculator.EMASeries(closes, span)
	if err != nil {
		return Trend{}, err
	}
	return Trend{
		Window:    window,
		Span:      span,
		SMA:       sma,
		EMA:       ema,
		LatestSMA: calculator.Latest(sma),
		LatestEMA: calculator.Latest(ema),
	}, nil
}

// ComputeVolatility derives daily and annualized volatility and the maximum
// drawdown from closes. Undefined returns are dropped before any statistic.
func ComputeVolatility(closes []float64) (Volatility, error) {
	if len(closes) < 2 {
		return Volatility{}, ErrInsufficientData
	}
	returns := calculator.DropNaN(calculator.DailyReturns(closes))
	daily, err := calculator.SampleStdDev(returns)
	if err != nil {
		return Volatility{}, ErrInsufficientData
	}
	return Volatility{
		Daily:       daily,
		Annualized:  calculator.Annualize(daily),
		MaxDrawdown: calculator.MaxDrawdown(returns),
	}, nil
}

// ComputeReturns derives total, average daily and annualized returns.
// The annualization exponent uses the number of bars.
func ComputeReturns(closes []float64) (Returns, error) {
	if len(closes) == 0 {
		return Returns{}, ErrNoData
	}
	total, err := calculator.TotalReturn(closes)
	if err != nil {
		return Returns{}, err
	}
	return Returns{
		Total:        total,
		AverageDaily: calculator.Mean(calculator.DropNaN(calculator.DailyReturns(closes))),
		Annualized:   calculator.AnnualizedReturn(total, len(closes)),
		Bars:         len(closes),
	}, nil
}
