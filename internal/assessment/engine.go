package assessment

import "ResearchDesk/internal/model"

// Levels maps a total score to a risk label, highest threshold first.
var Levels = []struct {
	MinScore float64
	Label    string
}{
	{1.2, "High"},
	{0.5, "Elevated"},
	{-0.2, "Moderate"},
}

// DefaultLevel is the label for scores below every threshold.
const DefaultLevel = "Low"

func mapLevel(totalScore float64) string {
	for _, l := range Levels {
		if totalScore >= l.MinScore {
			return l.Label
		}
	}
	return DefaultLevel
}

// Evaluate scores the risk factors of a snapshot.
func Evaluate(s *model.MetricsSnapshot) *model.RiskAssessment {
	factors := []model.FactorScore{
		scoreSMADeviation(s),
		scoreRSI(s),
		scoreVolatility(s),
		scoreDrawdown(s),
		scoreTrendAlignment(s),
		scoreRangePosition(s),
	}

	total := 0.0
	for _, f := range factors {
		total += f.Weighted
	}

	ra := &model.RiskAssessment{
		Factors:    factors,
		TotalScore: total,
		Level:      mapLevel(total),
	}

	switch {
	case s.RSI14 > 85:
		ra.WarningMsg = "⚠️ RSI > 85: momentum is stretched, pullback risk"
	case s.RSI14 < 15:
		ra.WarningMsg = "⚠️ RSI < 15: capitulation-level selling"
	}
	return ra
}
