package assessment

import (
	"fmt"
	"math"

	"ResearchDesk/internal/calculator"
	"ResearchDesk/internal/model"
)

// scoreSMADeviation scores how far the latest price strays from SMA20.
// Weight: 0.20
func scoreSMADeviation(s *model.MetricsSnapshot) model.FactorScore {
	const weight = 0.20
	if s.SMA20 == 0 || math.IsNaN(s.SMA20) {
		return model.FactorScore{Name: "SMA20 deviation", Weight: weight, Commentary: "SMA20 unavailable"}
	}
	deviation := (s.LatestPrice - s.SMA20) / s.SMA20 * 100

	var score float64
	switch abs := math.Abs(deviation); {
	case abs <= 2:
		score = -1.0
	case abs <= 5:
		score = 0
	case abs <= 10:
		score = 1.0
	case abs <= 20:
		score = 1.5
	default:
		score = 2.0
	}

	return model.FactorScore{
		Name:       "SMA20 deviation",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("deviation %+.1f%%", deviation),
	}
}

// scoreRSI penalizes both overbought and oversold readings.
// Weight: 0.20
func scoreRSI(s *model.MetricsSnapshot) model.FactorScore {
	const weight = 0.20
	rsi := s.RSI14

	var score float64
	switch {
	case rsi >= 80 || rsi <= 20:
		score = 2.0
	case rsi >= 70 || rsi <= 30:
		score = 1.0
	case rsi >= 60 || rsi <= 40:
		score = 0
	default:
		score = -0.5
	}

	return model.FactorScore{
		Name:       "RSI(14)",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("RSI=%.0f", rsi),
	}
}

// scoreVolatility scores annualized volatility.
// Weight: 0.30
func scoreVolatility(s *model.MetricsSnapshot) model.FactorScore {
	const weight = 0.30
	pct := s.AnnualizedVolatility * 100

	var score float64
	switch {
	case pct <= 15:
		score = -1.0
	case pct <= 25:
		score = 0
	case pct <= 40:
		score = 1.0
	case pct <= 60:
		score = 1.5
	default:
		score = 2.0
	}

	return model.FactorScore{
		Name:       "Annualized volatility",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("%.1f%%", pct),
	}
}

// scoreDrawdown scores the deepest peak-to-trough decline.
// Weight: 0.15
func scoreDrawdown(s *model.MetricsSnapshot) model.FactorScore {
	const weight = 0.15
	pct := s.MaxDrawdown * 100

	var score float64
	switch {
	case pct >= -5:
		score = -1.0
	case pct >= -10:
		score = 0
	case pct >= -20:
		score = 1.0
	case pct >= -35:
		score = 1.5
	default:
		score = 2.0
	}

	return model.FactorScore{
		Name:       "Max drawdown",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("%.1f%%", pct),
	}
}

// scoreTrendAlignment scores the ordering of price, EMA12 and SMA20.
// Weight: 0.05
// Uptrend: price > EMA12 > SMA20
// Downtrend: price < EMA12 < SMA20
func scoreTrendAlignment(s *model.MetricsSnapshot) model.FactorScore {
	const weight = 0.05
	if math.IsNaN(s.SMA20) || s.SMA20 == 0 {
		return model.FactorScore{Name: "Trend alignment", Weight: weight, Commentary: "SMA20 unavailable"}
	}
	up := s.LatestPrice > s.EMA12 && s.EMA12 > s.SMA20
	down := s.LatestPrice < s.EMA12 && s.EMA12 < s.SMA20

	var score float64
	var commentary string
	switch {
	case up:
		score = -0.5
		commentary = "uptrend"
	case down:
		score = 1.0
		commentary = "downtrend"
	default:
		commentary = "range-bound"
	}

	return model.FactorScore{
		Name:       "Trend alignment",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: commentary,
	}
}

// scoreRangePosition scores where the latest price sits within the period's
// high/low range. Prices pinned to the low score worst.
// Weight: 0.10
func scoreRangePosition(s *model.MetricsSnapshot) model.FactorScore {
	const weight = 0.10
	if s.High <= 0 || s.Low <= 0 {
		return model.FactorScore{Name: "Range position", Weight: weight, Commentary: "range unavailable"}
	}
	pos, err := calculator.RangePosition(s.LatestPrice, s.High, s.Low)
	if err != nil {
		return model.FactorScore{Name: "Range position", Weight: weight, Commentary: err.Error()}
	}

	var score float64
	switch {
	case pos <= 0.10:
		score = 1.5
	case pos <= 0.25:
		score = 1.0
	case pos >= 0.90:
		score = 0.5
	default:
		score = -0.5
	}

	return model.FactorScore{
		Name:       "Range position",
		RawScore:   score,
		Weight:     weight,
		Weighted:   score * weight,
		Commentary: fmt.Sprintf("%.0f%% of range", pos*100),
	}
}
