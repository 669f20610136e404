package model

import (
	"encoding/json"
	"math"
	"time"
)

// Bar represents a single OHLCV observation.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Period is a lookback range accepted by the market data source.
type Period string

const (
	Period1d  Period = "1d"
	Period5d  Period = "5d"
	Period1mo Period = "1mo"
	Period3mo Period = "3mo"
	Period6mo Period = "6mo"
	Period1y  Period = "1y"
	Period2y  Period = "2y"
	Period5y  Period = "5y"
	Period10y Period = "10y"
	PeriodYTD Period = "ytd"
	PeriodMax Period = "max"
)

// DefaultPeriod is used when a caller does not name one.
const DefaultPeriod = Period1mo

var validPeriods = map[Period]bool{
	Period1d: true, Period5d: true, Period1mo: true, Period3mo: true, Period6mo: true,
	Period1y: true, Period2y: true, Period5y: true, Period10y: true, PeriodYTD: true, PeriodMax: true,
}

func (p Period) Valid() bool { return validPeriods[p] }

// Interval is the bar width.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval2m  Interval = "2m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval60m Interval = "60m"
	Interval90m Interval = "90m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval5d  Interval = "5d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
	Interval3mo Interval = "3mo"
)

var validIntervals = map[Interval]bool{
	Interval1m: true, Interval2m: true, Interval5m: true, Interval15m: true, Interval30m: true,
	Interval60m: true, Interval90m: true, Interval1h: true, Interval1d: true, Interval5d: true,
	Interval1wk: true, Interval1mo: true, Interval3mo: true,
}

func (i Interval) Valid() bool { return validIntervals[i] }

// PriceSeries is an ascending run of bars for one ticker.
type PriceSeries struct {
	Ticker    string
	Period    Period
	Interval  Interval
	Bars      []Bar
	FetchedAt time.Time
}

// Closes returns the close prices in bar order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar. ok is false for an empty series.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Series is a numeric series whose undefined entries (NaN) encode as JSON null.
type Series []float64

func (s Series) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(s))
	for i, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return json.Marshal(out)
}
