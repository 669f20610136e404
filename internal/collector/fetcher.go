package collector

import (
	"context"
	"errors"

	"ResearchDesk/internal/model"
)

// ErrNotFound is returned when the data source knows nothing about a ticker.
var ErrNotFound = errors.New("ticker not found")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	// FetchSeries returns ascending bars for ticker over period at interval.
	FetchSeries(ctx context.Context, ticker string, period model.Period, interval model.Interval) (model.PriceSeries, error)
	// FetchCompanyInfo returns a flat company-info record keyed by upstream field names.
	FetchCompanyInfo(ctx context.Context, ticker string) (map[string]any, error)
	Name() string
}
