// Package toolkit exposes market statistics to agents as function tools.
package toolkit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"ResearchDesk/internal/assessment"
	"ResearchDesk/internal/calculator"
	"ResearchDesk/internal/collector"
	"ResearchDesk/internal/metrics"
	"ResearchDesk/internal/model"
	"ResearchDesk/internal/saver"
	"ResearchDesk/internal/sentiment"
	"ResearchDesk/internal/stats"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/rs/zerolog/log"
)

// Tool names as seen by the model.
const (
	ToolFetchPriceHistory = "fetch_price_history"
	ToolComputeVolatility = "compute_volatility"
	ToolComputeReturns    = "compute_returns"
	ToolValuationMetrics  = "calculate_valuation_metrics"
	ToolExportSeries      = "export_price_series"
	ToolNewsSentiment     = "analyze_news_sentiment"
)

const (
	historyTail = 10
	smaWindow   = 20
	emaSpan     = 12
	rsiPeriod   = 14
)

// TickerArgs identifies one ticker.
type TickerArgs struct {
	Ticker string `json:"ticker" jsonschema_description:"Stock ticker symbol, e.g. AAPL."`
}

// SeriesArgs selects a price series.
type SeriesArgs struct {
	Ticker   string `json:"ticker" jsonschema_description:"Stock ticker symbol, e.g. AAPL."`
	Period   string `json:"period" jsonschema_description:"One of 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max. Empty means 1mo."`
	Interval string `json:"interval" jsonschema_description:"One of 1m, 2m, 5m, 15m, 30m, 60m, 90m, 1h, 1d, 5d, 1wk, 1mo, 3mo. Empty means 1d."`
}

// SentimentArgs carries news articles to score.
type SentimentArgs struct {
	Articles []model.Article `json:"articles" jsonschema_description:"News articles with title and snippet, at most 10 are analyzed."`
}

// Toolkit binds the collector and the statistics engine to agent tools.
type Toolkit struct {
	collector *collector.Collector
	engine    *stats.Engine
	sink      metrics.Sink
	saver     *saver.ParquetSaver
	analyzer  sentiment.Analyzer
}

// Option configures a Toolkit.
type Option func(*Toolkit)

// WithSink reports tool timings to sink.
func WithSink(sink metrics.Sink) Option {
	return func(k *Toolkit) { k.sink = sink }
}

// WithSnapshotDir enables export_price_series, writing under dir.
func WithSnapshotDir(dir string) Option {
	return func(k *Toolkit) {
		if dir != "" {
			k.saver = &saver.ParquetSaver{Dir: dir}
		}
	}
}

// WithAnalyzer enables analyze_news_sentiment.
func WithAnalyzer(a sentiment.Analyzer) Option {
	return func(k *Toolkit) { k.analyzer = a }
}

// New creates a Toolkit.
func New(col *collector.Collector, engine *stats.Engine, opts ...Option) *Toolkit {
	k := &Toolkit{collector: col, engine: engine, sink: metrics.Noop{}}
	for _, opt := range opts {
		opt(k)
	}
	if k.engine == nil {
		k.engine = stats.NewEngine(k.sink)
	}
	return k
}

// run times a tool call and converts panics into failure results. Tool
// handlers never return a Go error so the model always sees a result.
func (k *Toolkit) run(name string, fn func() model.MetricResult) (res model.MetricResult, _ error) {
	t := metrics.Start(k.sink, "tool."+name)
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", name).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("tool panicked")
			res = model.Failure(fmt.Sprintf("%s failed: %v", name, r))
		}
		if !res.OK() {
			t.Fail()
			log.Warn().Str("tool", name).Str("error", res.ErrorMessage).Msg("tool returned error")
		}
		t.Stop()
	}()
	return fn(), nil
}

func (k *Toolkit) series(ctx context.Context, args SeriesArgs) (model.PriceSeries, error) {
	return k.collector.Series(ctx, args.Ticker, model.Period(args.Period), model.Interval(args.Interval))
}

func fetchFailure(ticker string, err error) model.MetricResult {
	if errors.Is(err, collector.ErrNotFound) {
		return model.Failure(fmt.Sprintf("No data found for ticker %s", collector.NormalizeTicker(ticker)))
	}
	return model.Failure(err.Error())
}

// FetchPriceHistory returns the latest price, moving averages, range and the
// most recent bars.
func (k *Toolkit) FetchPriceHistory(ctx context.Context, args SeriesArgs) (model.MetricResult, error) {
	return k.run(ToolFetchPriceHistory, func() model.MetricResult {
		series, err := k.series(ctx, args)
		if err != nil {
			return fetchFailure(args.Ticker, err)
		}
		trend := k.engine.ComputeTrend(series, smaWindow, emaSpan)
		if !trend.OK() {
			return trend
		}
		high, low, err := calculator.PriceRange(series.Bars, 0)
		if err != nil {
			return model.Failure(err.Error())
		}
		last, _ := series.Last()

		tail := series.Bars
		if len(tail) > historyTail {
			tail = tail[len(tail)-historyTail:]
		}
		return model.Success(map[string]any{
			"ticker":        series.Ticker,
			"period":        string(series.Period),
			"interval":      string(series.Interval),
			"latest_price":  last.Close,
			"latest_volume": last.Volume,
			"sma_20":        trend.Data["latest_sma"],
			"ema_12":        trend.Data["latest_ema"],
			"high":          high,
			"low":           low,
			"data_points":   len(series.Bars),
			"price_history": tail,
		})
	})
}

// ComputeVolatility fetches a series and returns its volatility statistics.
func (k *Toolkit) ComputeVolatility(ctx context.Context, args SeriesArgs) (model.MetricResult, error) {
	return k.run(ToolComputeVolatility, func() model.MetricResult {
		series, err := k.series(ctx, args)
		if err != nil {
			return fetchFailure(args.Ticker, err)
		}
		return k.engine.ComputeVolatility(series)
	})
}

// ComputeReturns fetches a series and returns its return statistics.
func (k *Toolkit) ComputeReturns(ctx context.Context, args SeriesArgs) (model.MetricResult, error) {
	return k.run(ToolComputeReturns, func() model.MetricResult {
		series, err := k.series(ctx, args)
		if err != nil {
			return fetchFailure(args.Ticker, err)
		}
		return k.engine.ComputeReturns(series)
	})
}

// CalculateValuationMetrics fetches company info and normalizes it.
func (k *Toolkit) CalculateValuationMetrics(ctx context.Context, args TickerArgs) (model.MetricResult, error) {
	return k.run(ToolValuationMetrics, func() model.MetricResult {
		ticker := collector.NormalizeTicker(args.Ticker)
		info, err := k.collector.CompanyInfo(ctx, ticker)
		if err != nil {
			return fetchFailure(ticker, err)
		}
		return k.engine.NormalizeValuation(ticker, info)
	})
}

// ExportPriceSeries writes the series with its SMA20 column to a Parquet file.
func (k *Toolkit) ExportPriceSeries(ctx context.Context, args SeriesArgs) (model.MetricResult, error) {
	return k.run(ToolExportSeries, func() model.MetricResult {
		if k.saver == nil {
			return model.Failure("series export is not configured")
		}
		series, err := k.series(ctx, args)
		if err != nil {
			return fetchFailure(args.Ticker, err)
		}
		var sma []float64
		if len(series.Bars) >= smaWindow {
			sma, _ = calculator.SMASeries(series.Closes(), smaWindow)
		}
		path, err := k.saver.Save(series, sma)
		if err != nil {
			return model.Failure(err.Error())
		}
		high, low, _ := calculator.PriceRange(series.Bars, 0)
		last, _ := series.Last()
		return model.Success(map[string]any{
			"ticker":      series.Ticker,
			"period":      string(series.Period),
			"file_path":   path,
			"data_points": len(series.Bars),
			"price_range": map[string]any{
				"high":    high,
				"low":     low,
				"current": last.Close,
			},
		})
	})
}

// AnalyzeNewsSentiment scores news articles.
func (k *Toolkit) AnalyzeNewsSentiment(ctx context.Context, args SentimentArgs) (model.MetricResult, error) {
	return k.run(ToolNewsSentiment, func() model.MetricResult {
		if len(args.Articles) == 0 {
			return model.Failure("No news articles provided")
		}
		if k.analyzer == nil {
			return model.Failure("sentiment analysis is not configured")
		}
		s, err := k.analyzer.Analyze(ctx, args.Articles)
		if err != nil {
			return model.Failure(fmt.Sprintf("Error analyzing sentiment: %v", err))
		}
		return model.Success(map[string]any{
			"total_articles":     len(args.Articles),
			"analyzed_articles":  min(len(args.Articles), sentiment.MaxArticles),
			"sentiment_analysis": s,
		})
	})
}

// MarketTools returns the tools used by the market analyst.
func (k *Toolkit) MarketTools() []agents.Tool {
	tools := []agents.Tool{
		agents.NewFunctionTool(ToolFetchPriceHistory, "Fetch historical prices with SMA(20), EMA(12), high/low and the last 10 bars.", k.FetchPriceHistory),
		agents.NewFunctionTool(ToolComputeVolatility, "Compute daily and annualized volatility and max drawdown.", k.ComputeVolatility),
		agents.NewFunctionTool(ToolComputeReturns, "Compute total, average daily and annualized returns.", k.ComputeReturns),
	}
	if k.saver != nil {
		tools = append(tools, agents.NewFunctionTool(ToolExportSeries, "Save the price series to a Parquet file for charting.", k.ExportPriceSeries))
	}
	return tools
}

// ValuationTools returns the tools used by the valuation analyst.
func (k *Toolkit) ValuationTools() []agents.Tool {
	return []agents.Tool{
		agents.NewFunctionTool(ToolValuationMetrics, "Get normalized valuation, profitability, growth, cash-flow and leverage ratios.", k.CalculateValuationMetrics),
	}
}

// NewsTools returns the function tools used by the news analyst.
func (k *Toolkit) NewsTools() []agents.Tool {
	if k.analyzer == nil {
		return nil
	}
	return []agents.Tool{
		agents.NewFunctionTool(ToolNewsSentiment, "Score the sentiment of news articles found by web search.", k.AnalyzeNewsSentiment),
	}
}

// Snapshot computes the deterministic metrics of ticker over period.
// Valuation data is attached when available.
func (k *Toolkit) Snapshot(ctx context.Context, ticker string, period model.Period) (model.MetricsSnapshot, error) {
	series, err := k.collector.Series(ctx, ticker, period, model.Interval1d)
	if err != nil {
		return model.MetricsSnapshot{}, err
	}
	closes := series.Closes()
	last, _ := series.Last()

	snap := model.MetricsSnapshot{
		Ticker:      series.Ticker,
		Period:      series.Period,
		LatestPrice: last.Close,
		DataPoints:  len(series.Bars),
		SMA20:       math.NaN(),
		TakenAt:     time.Now(),
	}
	if trend, err := stats.ComputeTrend(closes, smaWindow, emaSpan); err == nil {
		snap.SMA20 = trend.LatestSMA
		snap.EMA12 = trend.LatestEMA
	}
	if rsi, err := calculator.CalculateRSI(closes, rsiPeriod); err == nil {
		snap.RSI14 = rsi
	}
	snap.High, snap.Low, _ = calculator.PriceRange(series.Bars, 0)
	if v, err := stats.ComputeVolatility(closes); err == nil {
		snap.DailyVolatility = v.Daily
		snap.AnnualizedVolatility = v.Annualized
		snap.MaxDrawdown = v.MaxDrawdown
	}
	if r, err := stats.ComputeReturns(closes); err == nil {
		snap.TotalReturn = r.Total
		snap.AnnualizedReturn = r.Annualized
	}

	if info, err := k.collector.CompanyInfo(ctx, series.Ticker); err != nil {
		log.Warn().Err(err).Str("ticker", series.Ticker).Msg("valuation unavailable for snapshot")
	} else if rec, err := stats.NormalizeValuation(series.Ticker, info); err == nil {
		snap.Valuation = rec
	}

	snap.Risk = assessment.Evaluate(&snap)
	return snap, nil
}
