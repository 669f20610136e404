package report

import (
	"fmt"
	"math"
	"strings"

	"ResearchDesk/internal/model"
)

// Disclaimer closes every generated report.
const Disclaimer = "This is not investment advice. Do your own research."

// AppendixHeading opens the metrics appendix.
const AppendixHeading = "## Appendix: Computed Metrics"

// MetricsAppendix renders the deterministic snapshot table appended to a report.
func MetricsAppendix(snaps []model.MetricsSnapshot) string {
	if len(snaps) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(AppendixHeading + "\n\n")
	b.WriteString("| Ticker | Price | SMA 20 | EMA 12 | RSI 14 | Ann. Volatility | Max Drawdown | Total Return | Ann. Return | P/E | Risk |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|---|\n")
	for _, s := range snaps {
		risk := "n/a"
		if s.Risk != nil {
			risk = fmt.Sprintf("%s (%+.2f)", s.Risk.Level, s.Risk.TotalScore)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			s.Ticker,
			num(s.LatestPrice, 2),
			num(s.SMA20, 2),
			num(s.EMA12, 2),
			num(s.RSI14, 1),
			pct(s.AnnualizedVolatility),
			pct(s.MaxDrawdown),
			pct(s.TotalReturn),
			pct(s.AnnualizedReturn),
			valuationNum(s.Valuation, "pe_ratio"),
			risk,
		)
	}

	var warnings []string
	for _, s := range snaps {
		if s.Risk != nil && s.Risk.WarningMsg != "" {
			warnings = append(warnings, fmt.Sprintf("- **%s**: %s", s.Ticker, s.Risk.WarningMsg))
		}
	}
	if len(warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(strings.Join(warnings, "\n"))
		b.WriteString("\n")
	}
	if p := snaps[0].Period; p != "" {
		fmt.Fprintf(&b, "\n_Period: %s, %d data points for %s._\n", p, snaps[0].DataPoints, snaps[0].Ticker)
	}
	return b.String()
}

func num(v float64, prec int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", prec, v)
}

func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func valuationNum(v *model.ValuationRecord, key string) string {
	if v == nil {
		return "n/a"
	}
	if f, ok := v.Metrics[key].(float64); ok {
		return num(f, 2)
	}
	return "n/a"
}

// StripAppendix removes any metrics appendix section the model copied into
// markdown. The section ends at the next heading or horizontal rule.
func StripAppendix(markdown string) string {
	lines := strings.Split(markdown, "\n")
	out := lines[:0]
	skipping := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(trimmed, AppendixHeading):
			skipping = true
			continue
		case skipping && (strings.HasPrefix(trimmed, "#") || trimmed == "---"):
			skipping = false
		}
		if !skipping {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// EnsureDisclaimer appends the disclaimer when the model left it out.
func EnsureDisclaimer(markdown string) string {
	if strings.Contains(markdown, Disclaimer) {
		return markdown
	}
	return strings.TrimRight(markdown, "\n") + "\n\n---\n\n*" + Disclaimer + "*\n"
}
