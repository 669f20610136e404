package calculator

import (
	"errors"
	"math"
)

// TradingDaysPerYear is the annualization constant.
const TradingDaysPerYear = 252

// DailyReturns returns r[i-1] = closes[i]/closes[i-1] - 1 for i >= 1,
// evaluated as (closes[i]-closes[i-1])/closes[i-1]. Entries are NaN where
// the ratio is undefined.
func DailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		r := (closes[i] - closes[i-1]) / closes[i-1]
		if math.IsInf(r, 0) {
			r = math.NaN()
		}
		out[i-1] = r
	}
	return out
}

// DropNaN returns the finite entries of values.
func DropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SampleStdDev computes the standard deviation with Bessel's correction.
func SampleStdDev(values []float64) (float64, error) {
	if len(values) < 2 {
		return 0, errors.New("need at least two values for sample standard deviation")
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)-1)), nil
}

// Annualize scales a daily volatility by sqrt(252).
func Annualize(daily float64) float64 {
	return daily * math.Sqrt(TradingDaysPerYear)
}

// WealthIndex compounds returns starting from 1.
func WealthIndex(returns []float64) []float64 {
	out := make([]float64, len(returns)+1)
	out[0] = 1
	for i, r := range returns {
		out[i+1] = out[i] * (1 + r)
	}
	return out
}

// MaxDrawdown returns the deepest peak-to-trough decline of the wealth
// index built from returns. The result is <= 0.
func MaxDrawdown(returns []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, c := range WealthIndex(returns) {
		if c > peak {
			peak = c
		}
		if dd := (c - peak) / peak; dd < worst {
			worst = dd
		}
	}
	return worst
}

// TotalReturn returns last/first - 1, evaluated as (last-first)/first so
// that round inputs such as 100 -> 110 give exactly 0.1.
func TotalReturn(closes []float64) (float64, error) {
	if len(closes) == 0 {
		return 0, errors.New("no prices")
	}
	if closes[0] <= 0 {
		return 0, errors.New("starting price must be positive")
	}
	return (closes[len(closes)-1] - closes[0]) / closes[0], nil
}

// AnnualizedReturn converts a total return over n bars to a yearly rate:
// (1+total)^(252/n) - 1. n <= 0 yields 0.
func AnnualizedReturn(total float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	return math.Pow(1+total, float64(TradingDaysPerYear)/float64(n)) - 1
}
