package stats

import (
	"fmt"
	"runtime/debug"

	"ResearchDesk/internal/metrics"
	"ResearchDesk/internal/model"

	"github.com/rs/zerolog/log"
)

// Operation names reported to the metrics sink.
const (
	OpTrend      = "compute_trend"
	OpVolatility = "compute_volatility"
	OpReturns    = "compute_returns"
	OpValuation  = "normalize_valuation"
)

// Engine exposes the statistics as MetricResult-returning operations.
// It holds no state besides the sink and is safe for concurrent use.
type Engine struct {
	sink metrics.Sink
}

// NewEngine creates an Engine reporting to sink. A nil sink discards metrics.
func NewEngine(sink metrics.Sink) *Engine {
	if sink == nil {
		sink = metrics.Noop{}
	}
	return &Engine{sink: sink}
}

// guard times op and converts any panic into a failure result.
func (e *Engine) guard(op string, fn func() model.MetricResult) (res model.MetricResult) {
	t := metrics.Start(e.sink, op)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("op", op).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			res = model.Failure(fmt.Sprintf("%s failed: %v", op, r))
		}
		if !res.OK() {
			t.Fail()
		}
		t.Stop()
	}()
	return fn()
}

// ComputeTrend returns the SMA and EMA series of the closes in series.
func (e *Engine) ComputeTrend(series model.PriceSeries, window, span int) model.MetricResult {
	return e.guard(OpTrend, func() model.MetricResult {
		tr, err := ComputeTrend(series.Closes(), window, span)
		if err != nil {
			return model.Failure(err.Error())
		}
		return model.Success(map[string]any{
			"ticker":     series.Ticker,
			"window":     tr.Window,
			"span":       tr.Span,
			"sma":        model.Series(tr.SMA),
			"ema":        model.Series(tr.EMA),
			"latest_sma": nullable(tr.LatestSMA),
			"latest_ema": nullable(tr.LatestEMA),
		})
	})
}

// ComputeVolatility returns daily and annualized volatility plus max drawdown.
func (e *Engine) ComputeVolatility(series model.PriceSeries) model.MetricResult {
	return e.guard(OpVolatility, func() model.MetricResult {
		v, err := ComputeVolatility(series.Closes())
		if err != nil {
			return failure(series.Ticker, err)
		}
		return model.Success(map[string]any{
			"ticker":                series.Ticker,
			"daily_volatility":      v.Daily,
			"annualized_volatility": v.Annualized,
			"max_drawdown":          v.MaxDrawdown,
			"volatility_percentage": v.Annualized * 100,
		})
	})
}

// ComputeReturns returns total, average daily and annualized returns.
func (e *Engine) ComputeReturns(series model.PriceSeries) model.MetricResult {
	return e.guard(OpReturns, func() model.MetricResult {
		r, err := ComputeReturns(series.Closes())
		if err != nil {
			return failure(series.Ticker, err)
		}
		return model.Success(map[string]any{
			"ticker":                       series.Ticker,
			"total_return":                 r.Total,
			"total_return_percentage":      r.Total * 100,
			"average_daily_return":         r.AverageDaily,
			"annualized_return":            r.Annualized,
			"annualized_return_percentage": r.Annualized * 100,
			"data_points":                  r.Bars,
		})
	})
}

// NormalizeValuation maps a raw company-info record onto the valuation
// vocabulary.
func (e *Engine) NormalizeValuation(ticker string, raw map[string]any) model.MetricResult {
	return e.guard(OpValuation, func() model.MetricResult {
		rec, err := NormalizeValuation(ticker, raw)
		if err != nil {
			return failure(ticker, err)
		}
		return model.Success(map[string]any{
			"ticker":       rec.Ticker,
			"company_name": rec.CompanyName,
			"sector":       rec.Sector,
			"industry":     rec.Industry,
			"metrics":      rec.Metrics,
		})
	})
}

func failure(ticker string, err error) model.MetricResult {
	if ticker == "" {
		return model.Failure(err.Error())
	}
	return model.Failure(fmt.Sprintf("%s: %s", ticker, err))
}
