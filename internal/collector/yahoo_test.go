package collector

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ResearchDesk/internal/model"
	"ResearchDesk/internal/stats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{"timestamp":[1700179200,1700092800,1700265600],
"indicators":{"quote":[{"open":[101,100,null],"high":[103,102,null],"low":[99,98,null],
"close":[102,101,null],"volume":[2000,1500,null]}]}}],"error":null}}`

const summaryBody = `{"quoteSummary":{"result":[{
"price":{"longName":"Acme Corp","marketCap":{"raw":2500000000,"fmt":"2.5B"}},
"summaryDetail":{"trailingPE":{"raw":21.4,"fmt":"21.40"},"forwardPE":{}},
"defaultKeyStatistics":{"forwardPE":{"raw":18.2},"pegRatio":{"raw":1.3}},
"financialData":{"returnOnEquity":{"raw":0.22},"debtToEquity":{"raw":45.1}},
"assetProfile":{"sector":"Industrials","industry":"Tools"}}],"error":null}}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *YahooFetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewYahooFetcher(WithBaseURL(srv.URL), WithRateLimit(100), WithTimeout(5*time.Second))
}

func TestYahooFetcher_FetchSeries(t *testing.T) {
	var hits atomic.Int32
	f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v8/finance/chart/ACME"))
		assert.Equal(t, "1mo", r.URL.Query().Get("range"))
		assert.Equal(t, "1d", r.URL.Query().Get("interval"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	})

	series, err := f.FetchSeries(t.Context(), "ACME", model.Period1mo, model.Interval1d)
	require.NoError(t, err)
	require.Len(t, series.Bars, 2)
	assert.True(t, series.Bars[0].Time.Before(series.Bars[1].Time))
	assert.Equal(t, 101.0, series.Bars[0].Close)
	assert.Equal(t, int64(2000), series.Bars[1].Volume)

	_, err = f.FetchSeries(t.Context(), "ACME", model.Period1mo, model.Interval1d)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second call should hit the cache")
}

const partialCloseBody = `{"chart":{"result":[{"timestamp":[1700000000,1700086400,1700172800,1700259200],
"indicators":{"quote":[{"open":[100,101,102,103],"high":[101,102,103,104],"low":[99,100,101,102],
"close":[100,101,null,103],"volume":[1000,1000,1000,1000]}]}}],"error":null}}`

func TestYahooFetcher_SkipsBarsWithoutClose(t *testing.T) {
	f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(partialCloseBody))
	})

	series, err := NewCollector(f).Series(t.Context(), "ACME", model.Period1mo, model.Interval1d)
	require.NoError(t, err)
	assert.Equal(t, []float64{100, 101, 103}, series.Closes())

	engine := stats.NewEngine(nil)
	vol := engine.ComputeVolatility(series)
	require.True(t, vol.OK(), vol.ErrorMessage)
	dd, _ := vol.Float("max_drawdown")
	assert.Zero(t, dd)
	pctVol, _ := vol.Float("volatility_percentage")
	assert.Less(t, pctVol, 50.0)

	ret := engine.ComputeReturns(series)
	require.True(t, ret.OK(), ret.ErrorMessage)
	avg, _ := ret.Float("average_daily_return")
	assert.Positive(t, avg)
	total, _ := ret.Float("total_return")
	assert.InDelta(t, 0.03, total, 1e-12)
}

func TestYahooFetcher_NotFound(t *testing.T) {
	f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})

	_, err := f.FetchSeries(t.Context(), "ZZZZ", model.Period1mo, model.Interval1d)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestYahooFetcher_UpstreamFailure(t *testing.T) {
	f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := f.FetchSeries(t.Context(), "ACME", model.Period1mo, model.Interval1d)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestYahooFetcher_RetriesOnConfiguredStatus(t *testing.T) {
	var hits atomic.Int32
	f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	})
	WithRetry(2, time.Millisecond, 5*time.Millisecond, []int{503})(f)

	series, err := f.FetchSeries(t.Context(), "ACME", model.Period1mo, model.Interval1d)
	require.NoError(t, err)
	assert.Len(t, series.Bars, 2)
	assert.Equal(t, int32(2), hits.Load())
}

func TestYahooFetcher_FetchCompanyInfo(t *testing.T) {
	f := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v10/finance/quoteSummary/ACME"))
		assert.Contains(t, r.URL.Query().Get("modules"), "financialData")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(summaryBody))
	})

	info, err := f.FetchCompanyInfo(t.Context(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", info["longName"])
	assert.Equal(t, 21.4, info["trailingPE"])
	assert.Equal(t, 18.2, info["forwardPE"])
	assert.Equal(t, 1.3, info["pegRatio"])
	assert.Equal(t, 0.22, info["returnOnEquity"])
	assert.Equal(t, 2.5e9, info["marketCap"])
	assert.Equal(t, "Industrials", info["sector"])
}

func TestYahooFetcher_SymbolMap(t *testing.T) {
	f := NewYahooFetcher()
	assert.Equal(t, "^GSPC", f.yahooSymbol("SPX500"))
	assert.Equal(t, "AAPL", f.yahooSymbol("AAPL"))
}

func TestCollector_Series(t *testing.T) {
	c := NewCollector(&MockFetcher{Price: 100})

	series, err := c.Series(t.Context(), " aapl ", "", "")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", series.Ticker)
	assert.Equal(t, model.Period1mo, series.Period)
	assert.Equal(t, model.Interval1d, series.Interval)
	assert.Len(t, series.Bars, 30)

	_, err = c.Series(t.Context(), "AAPL", "7w", "")
	assert.Error(t, err)
	_, err = c.Series(t.Context(), "AAPL", model.Period1y, "3h")
	assert.Error(t, err)
	_, err = c.Series(t.Context(), "", "", "")
	assert.Error(t, err)

	missing := NewCollector(&MockFetcher{NotFound: true})
	_, err = missing.Series(t.Context(), "NOPE", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = missing.CompanyInfo(t.Context(), "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}
