package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ResearchDesk/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price    float64
	Bars     []model.Bar
	Info     map[string]any
	NotFound bool
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(_ context.Context, ticker string, period model.Period, interval model.Interval) (model.PriceSeries, error) {
	if m.NotFound {
		return model.PriceSeries{}, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	bars := m.Bars
	if bars == nil {
		bars = generateMockBars(m.Price, 30)
	}
	return model.PriceSeries{
		Ticker:    ticker,
		Period:    period,
		Interval:  interval,
		Bars:      bars,
		FetchedAt: time.Now(),
	}, nil
}

func (m *MockFetcher) FetchCompanyInfo(_ context.Context, ticker string) (map[string]any, error) {
	if m.NotFound {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotFound)
	}
	if m.Info != nil {
		return m.Info, nil
	}
	return map[string]any{
		"longName":   ticker + " Inc.",
		"sector":     "Technology",
		"industry":   "Software",
		"trailingPE": 25.0,
		"marketCap":  1.0e12,
	}, nil
}

func generateMockBars(basePrice float64, count int) []model.Bar {
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector validates requests and delegates to a Fetcher.
type Collector struct {
	Fetcher Fetcher
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher) *Collector {
	return &Collector{Fetcher: fetcher}
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// Series fetches a price series. An empty period means model.DefaultPeriod,
// an empty interval means daily bars.
func (c *Collector) Series(ctx context.Context, ticker string, period model.Period, interval model.Interval) (model.PriceSeries, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return model.PriceSeries{}, fmt.Errorf("ticker is required")
	}
	if period == "" {
		period = model.DefaultPeriod
	}
	if interval == "" {
		interval = model.Interval1d
	}
	if !period.Valid() {
		return model.PriceSeries{}, fmt.Errorf("invalid period %q", period)
	}
	if !interval.Valid() {
		return model.PriceSeries{}, fmt.Errorf("invalid interval %q", interval)
	}

	series, err := c.Fetcher.FetchSeries(ctx, ticker, period, interval)
	if err != nil {
		return model.PriceSeries{}, fmt.Errorf("fetch %s series: %w", ticker, err)
	}
	if len(series.Bars) == 0 {
		return model.PriceSeries{}, fmt.Errorf("fetch %s series: %w", ticker, ErrNotFound)
	}
	return series, nil
}

// CompanyInfo fetches the raw company-info record for ticker.
func (c *Collector) CompanyInfo(ctx context.Context, ticker string) (map[string]any, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	info, err := c.Fetcher.FetchCompanyInfo(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch %s info: %w", ticker, err)
	}
	return info, nil
}
