package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"ResearchDesk/internal/model"
	"ResearchDesk/internal/recorder"
)

const summaryExcerptLen = 1200

// FormatReportDigest formats a finished research run into a Telegram message.
func FormatReportDigest(rep *model.ResearchReport, paths []string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Research Report</b> | %s\n", time.Now().Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Tickers: <b>%s</b>\n", html.EscapeString(strings.Join(rep.Tickers, ", "))))
	b.WriteString(fmt.Sprintf("Duration: %s\n\n", rep.Duration.Round(time.Second)))

	if summary := executiveSummary(rep.Markdown); summary != "" {
		b.WriteString("📝 <b>Executive Summary</b>\n")
		b.WriteString(html.EscapeString(summary))
		b.WriteString("\n\n")
	}

	for _, s := range rep.Snapshots {
		b.WriteString(formatSnapshotLine(&s))
	}

	for _, a := range rep.Analyses {
		if a.Err != nil {
			b.WriteString(fmt.Sprintf("\n⚠️ %s: %s\n", html.EscapeString(a.Ticker), html.EscapeString(a.Err.Error())))
		}
	}

	if len(paths) > 0 {
		b.WriteString("\n📁 <b>Files:</b>\n")
		for _, p := range paths {
			b.WriteString(fmt.Sprintf("  <code>%s</code>\n", html.EscapeString(p)))
		}
	}
	return b.String()
}

// FormatSnapshot formats the deterministic metrics of one ticker.
func FormatSnapshot(s *model.MetricsSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>%s</b> | %s (%d bars)\n\n", html.EscapeString(s.Ticker), s.Period, s.DataPoints))
	b.WriteString(fmt.Sprintf("Price: %s\n", num(s.LatestPrice)))
	b.WriteString(fmt.Sprintf("SMA20: %s | EMA12: %s\n", num(s.SMA20), num(s.EMA12)))
	b.WriteString(fmt.Sprintf("RSI14: %s\n", num(s.RSI14)))
	b.WriteString(fmt.Sprintf("Range: %s - %s\n", num(s.Low), num(s.High)))
	b.WriteString(fmt.Sprintf("Volatility (ann.): %s | Max drawdown: %s\n", pct(s.AnnualizedVolatility), pct(s.MaxDrawdown)))
	b.WriteString(fmt.Sprintf("Return: %s (ann. %s)\n", pct(s.TotalReturn), pct(s.AnnualizedReturn)))

	if s.Risk != nil {
		b.WriteString("\n🧮 <b>Risk factors:</b>\n")
		for _, f := range s.Risk.Factors {
			b.WriteString(fmt.Sprintf("  %s(%s): %+.0f (×%.2f) = %+.3f\n",
				f.Name, html.EscapeString(f.Commentary), f.RawScore, f.Weight, f.Weighted))
		}
		b.WriteString("  ─────────────────\n")
		b.WriteString(fmt.Sprintf("  Risk: <b>%s</b> (%+.3f)\n", s.Risk.Level, s.Risk.TotalScore))
		if s.Risk.WarningMsg != "" {
			b.WriteString(fmt.Sprintf("\n%s\n", s.Risk.WarningMsg))
		}
	}
	return b.String()
}

// FormatHistory lists recent research runs.
func FormatHistory(runs []recorder.RunSummary) string {
	if len(runs) == 0 {
		return "No research runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("🗂 <b>Recent research</b>\n\n")
	for _, r := range runs {
		icon := "✅"
		if r.Status != recorder.StatusCompleted {
			icon = "❌"
		}
		b.WriteString(fmt.Sprintf("%s %s | %s | %.1fs\n   %s\n",
			icon, r.Timestamp.Format("01-02 15:04"), html.EscapeString(r.Tickers),
			float64(r.DurationMs)/1000, html.EscapeString(r.Query)))
	}
	return b.String()
}

func formatSnapshotLine(s *model.MetricsSnapshot) string {
	risk := ""
	if s.Risk != nil {
		risk = " | risk " + s.Risk.Level
	}
	return fmt.Sprintf("• <b>%s</b> %s | %s | vol %s%s\n",
		html.EscapeString(s.Ticker), num(s.LatestPrice), pct(s.TotalReturn), pct(s.AnnualizedVolatility), risk)
}

// executiveSummary extracts the body of the "Executive Summary" section.
func executiveSummary(markdown string) string {
	lines := strings.Split(markdown, "\n")
	var out []string
	in := false
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "#") {
			if in {
				break
			}
			in = strings.Contains(strings.ToLower(trimmed), "executive summary")
			continue
		}
		if in {
			out = append(out, l)
		}
	}
	s := strings.TrimSpace(strings.Join(out, "\n"))
	if r := []rune(s); len(r) > summaryExcerptLen {
		s = string(r[:summaryExcerptLen]) + "…"
	}
	return s
}

// Split breaks text into chunks of at most limit bytes, preferring line boundaries.
func Split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				chunks = append(chunks, cur.String())
				cur.Reset()
			}
			cut := runeBoundary(line, limit)
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// runeBoundary returns the largest index <= limit that does not split a UTF-8 sequence.
func runeBoundary(s string, limit int) int {
	for limit > 0 && limit < len(s) && s[limit]&0xC0 == 0x80 {
		limit--
	}
	return limit
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", v*100)
}
