package calculator

import (
	"errors"
	"math"
)

// SMASeries returns a rolling simple moving average aligned with prices.
// The first window-1 entries are NaN.
func SMASeries(prices []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	out := make([]float64, len(prices))
	for i := range prices {
		if i < window-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for _, p := range prices[i-window+1 : i+1] {
			sum += p
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// EMASeries returns the recursive exponential moving average with
// alpha = 2/(span+1), seeded with the first price.
func EMASeries(prices []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	out := make([]float64, len(prices))
	if len(prices) == 0 {
		return out, nil
	}
	alpha := 2.0 / float64(span+1)
	out[0] = prices[0]
	for i := 1; i < len(prices); i++ {
		out[i] = alpha*prices[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}

// Latest returns the last defined value of a series, or NaN.
func Latest(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return series[i]
		}
	}
	return math.NaN()
}
