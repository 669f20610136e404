package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ResearchDesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleReport = `# Financial Research Report: AAPL

## Executive Summary

Apple shows **strong** momentum with *moderate* risk.

## Valuation Metrics Table

| Metric | AAPL |
|---|---|
| P/E | 29.10 |
| ROE | 1.47 |

- Revenue growth is steady
- Margins are high

` + "`code`" + `

---

*This is not investment advice. Do your own research.*
`

func TestParseFormats(t *testing.T) {
	fs, err := ParseFormats(" md, HTML,pdf,md ")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatMarkdown, FormatHTML, FormatPDF}, fs)

	fs, err = ParseFormats("")
	require.NoError(t, err)
	assert.Empty(t, fs)

	_, err = ParseFormats("docx")
	assert.Error(t, err)
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML(sampleReport, "AAPL <report>")
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "<table>")
	assert.Contains(t, s, "<strong>strong</strong>")
	assert.Contains(t, s, "<title>AAPL &lt;report&gt;</title>")
}

func TestRenderPDF(t *testing.T) {
	out, err := RenderPDF(sampleReport+"\nCafé – naïve\n", "AAPL")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestExporter_Export(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{Dir: filepath.Join(dir, "reports"), Now: func() time.Time {
		return time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	}}
	rep := &model.ResearchReport{Tickers: []string{"AAPL", "MSFT"}, Markdown: sampleReport}

	paths, err := e.Export(rep, []Format{FormatMarkdown, FormatHTML, FormatPDF})
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "reports", "report_AAPL_MSFT_20250304_093000.md"), paths[0])

	md, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, sampleReport, string(md))

	for _, p := range paths[1:] {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestMetricsAppendix(t *testing.T) {
	assert.Empty(t, MetricsAppendix(nil))

	out := MetricsAppendix([]model.MetricsSnapshot{{
		Ticker:               "AAPL",
		Period:               model.Period1mo,
		LatestPrice:          190.123,
		SMA20:                math.NaN(),
		EMA12:                188.5,
		RSI14:                55.44,
		AnnualizedVolatility: 0.25,
		MaxDrawdown:          -0.1,
		TotalReturn:          0.05,
		AnnualizedReturn:     0.8,
		DataPoints:           21,
		Valuation:            &model.ValuationRecord{Metrics: map[string]any{"pe_ratio": 29.1}},
		Risk:                 &model.RiskAssessment{Level: "Moderate", TotalScore: 0.1, WarningMsg: "watch"},
	}})
	assert.Contains(t, out, "## Appendix: Computed Metrics")
	assert.Contains(t, out, "| AAPL | 190.12 | n/a | 188.50 | 55.4 | 25.00% | -10.00% | 5.00% | 80.00% | 29.10 | Moderate (+0.10) |")
	assert.Contains(t, out, "- **AAPL**: watch")
	assert.Contains(t, out, "21 data points")
}

func TestStripAppendix(t *testing.T) {
	in := "# Report\n\n" + AppendixHeading + "\n\n| Ticker | Price |\n|---|---|\n| AAPL | 190 |\n\n## Conclusion\n\nHold steady.\n"
	out := StripAppendix(in)
	assert.NotContains(t, out, AppendixHeading)
	assert.NotContains(t, out, "| AAPL | 190 |")
	assert.Contains(t, out, "## Conclusion\n\nHold steady.")

	assert.Equal(t, sampleReport, StripAppendix(sampleReport))
}

func TestEnsureDisclaimer(t *testing.T) {
	assert.Equal(t, sampleReport, EnsureDisclaimer(sampleReport))
	out := EnsureDisclaimer("# Report\n")
	assert.True(t, strings.HasSuffix(out, "*"+Disclaimer+"*\n"))
}
