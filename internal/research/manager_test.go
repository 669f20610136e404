package research

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ResearchDesk/internal/collector"
	"ResearchDesk/internal/metrics"
	"ResearchDesk/internal/report"
	"ResearchDesk/internal/stats"
	"ResearchDesk/internal/toolkit"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/agentstesting"
	"github.com/nlpodyssey/openai-agents-go/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeModels hands out a fresh FakeModel per agent, scripted by role.
type fakeModels struct {
	mu      sync.Mutex
	calls   map[Role]int
	scripts map[Role][]agentstesting.FakeModelTurnOutput
}

func newFakeModels() *fakeModels {
	return &fakeModels{
		calls:   map[Role]int{},
		scripts: map[Role][]agentstesting.FakeModelTurnOutput{},
	}
}

func (f *fakeModels) text(role Role, s string) {
	f.script(role, agentstesting.FakeModelTurnOutput{
		Value: []agents.TResponseOutputItem{agentstesting.GetTextMessage(s)},
	})
}

func (f *fakeModels) script(role Role, turns ...agentstesting.FakeModelTurnOutput) {
	f.scripts[role] = turns
}

func (f *fakeModels) model(role Role) agents.Model {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[role]++
	m := agentstesting.NewFakeModel(false, nil)
	m.AddMultipleTurnOutputs(f.scripts[role])
	return m
}

func (f *fakeModels) count(role Role) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[role]
}

func planOutput(js string) agentstesting.FakeModelTurnOutput {
	return agentstesting.FakeModelTurnOutput{
		Value: []agents.TResponseOutputItem{agentstesting.GetFinalOutputMessage(js)},
	}
}

func newTestManager(t *testing.T, models *fakeModels, opts ...Option) (*Manager, *metrics.Collector) {
	t.Helper()
	sink := metrics.NewCollector()
	col := collector.NewCollector(&collector.MockFetcher{Price: 100})
	tk := toolkit.New(col, stats.NewEngine(sink), toolkit.WithSink(sink))
	base := []Option{
		WithModels(models.model),
		WithSink(sink),
		WithTracingDisabled(true),
		WithWebSearch(false),
	}
	return NewManager(tk, append(base, opts...)...), sink
}

func scriptSpecialists(models *fakeModels) {
	models.text(RoleNews, "News: positive earnings coverage.")
	models.text(RoleMarket, "Market: uptrend with low volatility.")
	models.text(RoleValuation, "Valuation: fairly valued.")
	models.text(RoleComparison, "| Ticker | P/E |\n|---|---|")
	models.text(RoleReport, "# Financial Research Report\n\n## Executive Summary\n\nSolid.")
}

func TestManager_SingleTicker(t *testing.T) {
	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":["aapl"," AAPL "],"period":"bogus","focus":"overview"}`))
	scriptSpecialists(models)
	m, sink := newTestManager(t, models)

	rep, err := m.Run(t.Context(), "Research Apple")
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL"}, rep.Tickers)
	require.Len(t, rep.Analyses, 1)
	assert.NoError(t, rep.Analyses[0].Err)
	assert.Equal(t, "News: positive earnings coverage.", rep.Analyses[0].News)
	assert.Equal(t, "Market: uptrend with low volatility.", rep.Analyses[0].Market)
	assert.Equal(t, "Valuation: fairly valued.", rep.Analyses[0].Valuation)

	assert.Empty(t, rep.Comparison)
	assert.Zero(t, models.count(RoleComparison))

	require.Len(t, rep.Snapshots, 1)
	assert.Equal(t, "1mo", string(rep.Snapshots[0].Period))
	assert.Contains(t, rep.Markdown, "# Financial Research Report")
	assert.Contains(t, rep.Markdown, "## Appendix: Computed Metrics")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(rep.Markdown), "*"+report.Disclaimer+"*"))
	assert.Positive(t, rep.Duration)

	summary := sink.Summary()
	assert.Equal(t, 1, summary.Counts["agent."+string(RolePlanner)])
	assert.Equal(t, 1, summary.Counts["agent."+string(RoleReport)])
}

func TestManager_MultiTickerRunsComparison(t *testing.T) {
	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":["TSLA","F"],"period":"3mo","focus":"compare automakers"}`))
	scriptSpecialists(models)
	m, _ := newTestManager(t, models)

	rep, err := m.Run(t.Context(), "Compare Tesla and Ford")
	require.NoError(t, err)

	assert.Equal(t, []string{"TSLA", "F"}, rep.Tickers)
	assert.Len(t, rep.Analyses, 2)
	assert.Equal(t, 2, models.count(RoleNews))
	assert.Equal(t, 2, models.count(RoleMarket))
	assert.Equal(t, 1, models.count(RoleComparison))
	assert.Equal(t, "| Ticker | P/E |\n|---|---|", rep.Comparison)
	require.Len(t, rep.Snapshots, 2)
	assert.Equal(t, "3mo", string(rep.Snapshots[1].Period))
}

func TestManager_MarketAgentCallsTools(t *testing.T) {
	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":["MSFT"],"period":"1mo","focus":""}`))
	scriptSpecialists(models)
	models.script(RoleMarket,
		agentstesting.FakeModelTurnOutput{Value: []agents.TResponseOutputItem{
			agentstesting.GetFunctionToolCall(toolkit.ToolFetchPriceHistory, `{"ticker":"MSFT","period":"1mo","interval":"1d"}`),
		}},
		agentstesting.FakeModelTurnOutput{Value: []agents.TResponseOutputItem{
			agentstesting.GetTextMessage("Market: MSFT trades near its 20-day average."),
		}},
	)
	m, sink := newTestManager(t, models)

	rep, err := m.Run(t.Context(), "How is Microsoft doing?")
	require.NoError(t, err)
	assert.Equal(t, "Market: MSFT trades near its 20-day average.", rep.Analyses[0].Market)
	assert.Equal(t, 1, sink.Summary().Counts["tool."+toolkit.ToolFetchPriceHistory])
}

func TestManager_SpecialistFailureIsRecorded(t *testing.T) {
	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":["AAPL"],"period":"1mo","focus":""}`))
	scriptSpecialists(models)
	models.script(RoleValuation, agentstesting.FakeModelTurnOutput{Error: errors.New("rate limited")})
	m, sink := newTestManager(t, models)

	rep, err := m.Run(t.Context(), "Research AAPL")
	require.NoError(t, err)
	require.Len(t, rep.Analyses, 1)
	assert.ErrorContains(t, rep.Analyses[0].Err, "rate limited")
	assert.Empty(t, rep.Analyses[0].Valuation)
	assert.NotEmpty(t, rep.Analyses[0].News)
	assert.Equal(t, 1, sink.Summary().Errors["agent."+string(RoleValuation)])
}

func TestManager_AppendixAppearsOnce(t *testing.T) {
	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":["AAPL"],"period":"1mo","focus":""}`))
	scriptSpecialists(models)
	models.text(RoleReport, "# Financial Research Report\n\n"+report.AppendixHeading+
		"\n\n| Ticker | Price |\n|---|---|\n| AAPL | 999.99 |\n\n## Conclusion\n\nSteady.")
	m, _ := newTestManager(t, models)

	rep, err := m.Run(t.Context(), "Research AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(rep.Markdown, report.AppendixHeading))
	assert.NotContains(t, rep.Markdown, "| AAPL | 999.99 |")
	assert.Contains(t, rep.Markdown, "## Conclusion\n\nSteady.")
}

func TestManager_AllSpecialistsFail(t *testing.T) {
	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":["AAPL"],"period":"1mo","focus":""}`))
	boom := agentstesting.FakeModelTurnOutput{Error: errors.New("boom")}
	models.script(RoleNews, boom)
	models.script(RoleMarket, boom)
	models.script(RoleValuation, boom)
	m, _ := newTestManager(t, models)

	_, err := m.Run(t.Context(), "Research AAPL")
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.Zero(t, models.count(RoleReport))
}

func TestManager_NoTickers(t *testing.T) {
	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":[],"period":"1mo","focus":""}`))
	m, _ := newTestManager(t, models)

	_, err := m.Run(t.Context(), "hello")
	assert.ErrorIs(t, err, ErrNoTickers)
	assert.Zero(t, models.count(RoleNews))
}

func TestManager_PlannerUsesSession(t *testing.T) {
	session, err := memory.NewSQLiteSession(t.Context(), memory.SQLiteSessionParams{
		SessionID:        "session_test0001",
		DBDataSourceName: filepath.Join(t.TempDir(), "sessions.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, session.Close()) })

	models := newFakeModels()
	models.script(RolePlanner, planOutput(`{"tickers":["NVDA"],"period":"1mo","focus":""}`))
	scriptSpecialists(models)
	m, _ := newTestManager(t, models, WithSession(session, "session_test0001", 14))

	rep, err := m.Run(t.Context(), "Research NVDA")
	require.NoError(t, err)
	assert.Equal(t, "session_test0001", rep.SessionID)

	items, err := session.GetItems(t.Context(), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, items)
}

func TestNormalizePlan(t *testing.T) {
	plan, err := normalizePlan(TickerPlan{Tickers: []string{"msft", "", "MSFT", "goog"}, Period: "1y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT", "GOOG"}, plan.Tickers)
	assert.Equal(t, "1y", plan.Period)

	_, err = normalizePlan(TickerPlan{Tickers: []string{" "}})
	assert.ErrorIs(t, err, ErrNoTickers)
}
