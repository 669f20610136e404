package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"ResearchDesk/internal/model"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultYahooBaseURL = "https://query1.finance.yahoo.com"
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// quoteSummaryModules are merged, in order, into one flat company-info record.
var quoteSummaryModules = []string{"price", "summaryDetail", "defaultKeyStatistics", "financialData", "assetProfile"}

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	client    *resty.Client
	limiter   *rate.Limiter
	cache     *cache.Cache
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// YahooOption configures a YahooFetcher.
type YahooOption func(*YahooFetcher)

// WithBaseURL points the fetcher at a different host.
func WithBaseURL(baseURL string) YahooOption {
	return func(f *YahooFetcher) { f.client.SetBaseURL(baseURL) }
}

// WithProxy routes requests through proxyURL.
func WithProxy(proxyURL string) YahooOption {
	return func(f *YahooFetcher) {
		if proxyURL == "" {
			return
		}
		if _, err := url.Parse(proxyURL); err == nil {
			f.client.SetProxy(proxyURL)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) YahooOption {
	return func(f *YahooFetcher) { f.client.SetTimeout(d) }
}

// WithRetry retries requests failing with one of statuses, waiting between
// initial and maxWait with exponential backoff.
func WithRetry(attempts int, initial, maxWait time.Duration, statuses []int) YahooOption {
	return func(f *YahooFetcher) {
		retryOn := make(map[int]bool, len(statuses))
		for _, s := range statuses {
			retryOn[s] = true
		}
		f.client.
			SetRetryCount(attempts).
			SetRetryWaitTime(initial).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return r != nil && retryOn[r.StatusCode()]
			})
	}
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(requestsPerSecond int) YahooOption {
	return func(f *YahooFetcher) {
		if requestsPerSecond > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithCacheTTL keeps successful responses for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) YahooOption {
	return func(f *YahooFetcher) {
		if ttl <= 0 {
			f.cache = nil
			return
		}
		f.cache = cache.New(ttl, 2*ttl)
	}
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts ...YahooOption) *YahooFetcher {
	f := &YahooFetcher{
		client: resty.New().
			SetBaseURL(DefaultYahooBaseURL).
			SetTimeout(30 * time.Second).
			SetHeaders(map[string]string{
				"Accept":     "application/json",
				"User-Agent": defaultUserAgent,
			}),
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		cache:   cache.New(5*time.Minute, 10*time.Minute),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"NDX":    "^NDX",
			"DJI":    "^DJI",
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

type yahooQuoteSummary struct {
	QuoteSummary struct {
		Result []map[string]map[string]any `json:"result"`
		Error  *yahooError                 `json:"error"`
	} `json:"quoteSummary"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *yahooError) err(symbol string) error {
	if strings.EqualFold(e.Code, "Not Found") {
		return fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
	}
	return fmt.Errorf("yahoo api error: %s", e.Description)
}

func valueAt(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

func (f *YahooFetcher) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return resp.Body(), ErrNotFound
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	return resp.Body(), nil
}

// FetchSeries downloads bars from the v8 chart endpoint. Bars without a
// close (holidays, halts, partial rows) are skipped.
func (f *YahooFetcher) FetchSeries(ctx context.Context, ticker string, period model.Period, interval model.Interval) (model.PriceSeries, error) {
	symbol := f.yahooSymbol(ticker)
	key := fmt.Sprintf("chart:%s:%s:%s", symbol, period, interval)
	if f.cache != nil {
		if cached, ok := f.cache.Get(key); ok {
			return cached.(model.PriceSeries), nil
		}
	}

	body, err := f.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), map[string]string{
		"range":    string(period),
		"interval": string(interval),
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return model.PriceSeries{}, err
	}

	var chart yahooChart
	if jerr := json.Unmarshal(body, &chart); jerr != nil {
		if errors.Is(err, ErrNotFound) {
			return model.PriceSeries{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
		}
		return model.PriceSeries{}, fmt.Errorf("yahoo decode: %w", jerr)
	}
	if chart.Chart.Error != nil {
		return model.PriceSeries{}, chart.Chart.Error.err(symbol)
	}
	if errors.Is(err, ErrNotFound) || len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return model.PriceSeries{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   valueAt(quote.Open, i),
			High:   valueAt(quote.High, i),
			Low:    valueAt(quote.Low, i),
			Close:  *quote.Close[i],
			Volume: int64(valueAt(quote.Volume, i)),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	series := model.PriceSeries{
		Ticker:    ticker,
		Period:    period,
		Interval:  interval,
		Bars:      bars,
		FetchedAt: time.Now(),
	}
	if f.cache != nil && len(bars) > 0 {
		f.cache.Set(key, series, cache.DefaultExpiration)
	}
	log.Debug().Str("ticker", ticker).Str("period", string(period)).Int("bars", len(bars)).Msg("fetched price series")
	return series, nil
}

// FetchCompanyInfo downloads quoteSummary modules and flattens them into one
// record. {"raw": x} wrappers are unwrapped and empty objects become nil.
func (f *YahooFetcher) FetchCompanyInfo(ctx context.Context, ticker string) (map[string]any, error) {
	symbol := f.yahooSymbol(ticker)
	key := "info:" + symbol
	if f.cache != nil {
		if cached, ok := f.cache.Get(key); ok {
			return cached.(map[string]any), nil
		}
	}

	body, err := f.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), map[string]string{
		"modules": strings.Join(quoteSummaryModules, ","),
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	var summary yahooQuoteSummary
	if jerr := json.Unmarshal(body, &summary); jerr != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
		}
		return nil, fmt.Errorf("yahoo decode: %w", jerr)
	}
	if summary.QuoteSummary.Error != nil {
		return nil, summary.QuoteSummary.Error.err(symbol)
	}
	if errors.Is(err, ErrNotFound) || len(summary.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNotFound)
	}

	info := flattenSummary(summary.QuoteSummary.Result[0])
	if f.cache != nil {
		f.cache.Set(key, info, cache.DefaultExpiration)
	}
	return info, nil
}

func flattenSummary(modules map[string]map[string]any) map[string]any {
	info := make(map[string]any)
	for _, name := range quoteSummaryModules {
		for k, v := range modules[name] {
			v = unwrapRaw(v)
			if existing, ok := info[k]; ok && existing != nil {
				continue
			}
			info[k] = v
		}
	}
	return info
}

func unwrapRaw(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if raw, ok := m["raw"]; ok {
		return raw
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
