// Package research runs the multi-agent research workflow: plan, per-ticker
// specialist analysis, comparison and report writing.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ResearchDesk/internal/collector"
	"ResearchDesk/internal/metrics"
	"ResearchDesk/internal/model"
	"ResearchDesk/internal/report"
	"ResearchDesk/internal/toolkit"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/nlpodyssey/openai-agents-go/memory"
	"github.com/nlpodyssey/openai-agents-go/tracing"
	"github.com/rs/zerolog/log"
)

// DefaultWorkflowName groups research traces.
const DefaultWorkflowName = "financial_research_agent"

var (
	ErrNoTickers     = errors.New("no tickers found in query")
	ErrAllFailed     = errors.New("every ticker analysis failed")
	ErrUnexpectedOut = errors.New("unexpected planner output")
)

// Manager orchestrates one research run per query.
type Manager struct {
	toolkit         *toolkit.Toolkit
	models          ModelFunc
	modelName       string
	sink            metrics.Sink
	workflowName    string
	tracingDisabled bool
	webSearch       bool
	maxTurns        uint64

	mu           sync.Mutex
	session      memory.Session
	sessionID    string
	historyLimit int
}

// Option configures a Manager.
type Option func(*Manager)

// WithModels sets the per-agent model factory.
func WithModels(fn ModelFunc) Option {
	return func(m *Manager) { m.models = fn }
}

// WithModelName sets the model name used when no model instance is supplied.
func WithModelName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.modelName = name
		}
	}
}

// WithSink records per-agent timings.
func WithSink(sink metrics.Sink) Option {
	return func(m *Manager) { m.sink = sink }
}

// WithTracingDisabled turns off agent workflow tracing.
func WithTracingDisabled(disabled bool) Option {
	return func(m *Manager) { m.tracingDisabled = disabled }
}

// WithWebSearch toggles the hosted web search tool of the news agent.
func WithWebSearch(enabled bool) Option {
	return func(m *Manager) { m.webSearch = enabled }
}

// WithMaxTurns caps the turns of each agent run.
func WithMaxTurns(n uint64) Option {
	return func(m *Manager) { m.maxTurns = n }
}

// WithWorkflowName names the trace of each run.
func WithWorkflowName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.workflowName = name
		}
	}
}

// WithSession attaches conversation memory to the planner.
// historyLimit bounds the items replayed per run; zero replays everything.
func WithSession(s memory.Session, id string, historyLimit int) Option {
	return func(m *Manager) {
		m.session, m.sessionID, m.historyLimit = s, id, historyLimit
	}
}

func NewManager(tk *toolkit.Toolkit, opts ...Option) *Manager {
	m := &Manager{
		toolkit:      tk,
		modelName:    "gpt-4o",
		sink:         metrics.Noop{},
		workflowName: DefaultWorkflowName,
		webSearch:    true,
		maxTurns:     10,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSession swaps the conversation memory, e.g. after the user starts a new conversation.
func (m *Manager) SetSession(s memory.Session, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session, m.sessionID = s, id
}

func (m *Manager) currentSession() (memory.Session, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session, m.sessionID
}

func (m *Manager) runner(session memory.Session, groupID string) agents.Runner {
	cfg := agents.RunConfig{
		TracingDisabled: m.tracingDisabled,
		WorkflowName:    m.workflowName,
		GroupID:         groupID,
		MaxTurns:        m.maxTurns,
	}
	if session != nil {
		cfg.Session = session
		cfg.LimitMemory = m.historyLimit
	}
	return agents.Runner{Config: cfg}
}

// Run executes the full workflow for query.
func (m *Manager) Run(ctx context.Context, query string) (*model.ResearchReport, error) {
	session, sessionID := m.currentSession()
	rep := &model.ResearchReport{
		SessionID: sessionID,
		Query:     query,
		StartedAt: time.Now(),
	}

	err := tracing.RunTrace(
		ctx,
		tracing.TraceParams{
			WorkflowName: m.workflowName,
			GroupID:      sessionID,
			Disabled:     m.tracingDisabled,
		},
		func(ctx context.Context, _ tracing.Trace) error {
			return m.run(ctx, query, session, sessionID, rep)
		},
	)
	rep.Duration = time.Since(rep.StartedAt)
	if err != nil {
		return rep, err
	}
	log.Info().
		Str("session", sessionID).
		Strs("tickers", rep.Tickers).
		Dur("duration", rep.Duration).
		Msg("research run completed")
	return rep, nil
}

func (m *Manager) run(ctx context.Context, query string, session memory.Session, sessionID string, rep *model.ResearchReport) error {
	plan, err := m.plan(ctx, query, session, sessionID)
	if err != nil {
		return err
	}
	rep.Tickers = plan.Tickers
	period := model.Period(plan.Period)

	rep.Analyses, err = m.analyzeAll(ctx, plan, sessionID)
	if err != nil {
		return err
	}

	if len(rep.Tickers) > 1 {
		rep.Comparison, err = m.compare(ctx, query, rep.Analyses, sessionID)
		if err != nil {
			return err
		}
	}

	rep.Snapshots = m.snapshots(ctx, rep.Tickers, period)

	markdown, err := m.writeReport(ctx, query, rep, sessionID)
	if err != nil {
		return err
	}
	if appendix := report.MetricsAppendix(rep.Snapshots); appendix != "" {
		markdown = strings.TrimRight(report.StripAppendix(markdown), "\n") + "\n\n" + appendix
	}
	rep.Markdown = report.EnsureDisclaimer(markdown)
	return nil
}

// runAgent runs agent once and records its timing under "agent.<name>".
func (m *Manager) runAgent(ctx context.Context, r agents.Runner, agent *agents.Agent, input string) (result *agents.RunResult, err error) {
	t := metrics.Start(m.sink, "agent."+agent.Name)
	defer func() {
		if err != nil {
			t.Fail()
		}
		t.Stop()
	}()
	return r.Run(ctx, agent, input)
}

func (m *Manager) plan(ctx context.Context, query string, session memory.Session, sessionID string) (TickerPlan, error) {
	result, err := m.runAgent(ctx, m.runner(session, sessionID), m.plannerAgent(), query)
	if err != nil {
		return TickerPlan{}, fmt.Errorf("plan: %w", err)
	}
	plan, ok := result.FinalOutput.(TickerPlan)
	if !ok {
		return TickerPlan{}, fmt.Errorf("%w: %T", ErrUnexpectedOut, result.FinalOutput)
	}
	return normalizePlan(plan)
}

func normalizePlan(plan TickerPlan) (TickerPlan, error) {
	seen := make(map[string]bool, len(plan.Tickers))
	tickers := make([]string, 0, len(plan.Tickers))
	for _, t := range plan.Tickers {
		t = collector.NormalizeTicker(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	if len(tickers) == 0 {
		return plan, ErrNoTickers
	}
	plan.Tickers = tickers
	if !model.Period(plan.Period).Valid() {
		plan.Period = string(model.DefaultPeriod)
	}
	return plan, nil
}

// analyzeAll runs the news, market and valuation agents for every ticker in
// parallel. A failing specialist is recorded on its ticker; the run fails
// only when the context is cancelled or nothing succeeded.
func (m *Manager) analyzeAll(ctx context.Context, plan TickerPlan, groupID string) ([]model.TickerAnalysis, error) {
	analyses := make([]model.TickerAnalysis, len(plan.Tickers))

	var wg sync.WaitGroup
	wg.Add(len(plan.Tickers))
	for i, ticker := range plan.Tickers {
		go func() {
			defer wg.Done()
			analyses[i] = m.analyzeTicker(ctx, ticker, plan, groupID)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return analyses, err
	}

	var errs []error
	for _, a := range analyses {
		if a.Err == nil || a.News != "" || a.Market != "" || a.Valuation != "" {
			return analyses, nil
		}
		errs = append(errs, a.Err)
	}
	return analyses, fmt.Errorf("%w: %w", ErrAllFailed, errors.Join(errs...))
}

func (m *Manager) analyzeTicker(ctx context.Context, ticker string, plan TickerPlan, groupID string) model.TickerAnalysis {
	input := fmt.Sprintf("Ticker: %s\nPeriod: %s\nFocus: %s", ticker, plan.Period, plan.Focus)
	specialists := []struct {
		agent *agents.Agent
		out   *string
	}{
		{m.newsAgent(), new(string)},
		{m.marketAgent(), new(string)},
		{m.valuationAgent(), new(string)},
	}

	r := m.runner(nil, groupID)
	errs := make([]error, len(specialists))

	var wg sync.WaitGroup
	wg.Add(len(specialists))
	for i, s := range specialists {
		go func() {
			defer wg.Done()
			result, err := m.runAgent(ctx, r, s.agent, input)
			if err != nil {
				errs[i] = fmt.Errorf("%s %s: %w", s.agent.Name, ticker, err)
				log.Warn().Err(err).Str("agent", s.agent.Name).Str("ticker", ticker).Msg("specialist failed")
				return
			}
			*s.out = fmt.Sprint(result.FinalOutput)
		}()
	}
	wg.Wait()

	return model.TickerAnalysis{
		Ticker:    ticker,
		News:      *specialists[0].out,
		Market:    *specialists[1].out,
		Valuation: *specialists[2].out,
		Err:       errors.Join(errs...),
	}
}

func (m *Manager) compare(ctx context.Context, query string, analyses []model.TickerAnalysis, groupID string) (string, error) {
	input := "Original query: " + query + "\n\n" + formatAnalyses(analyses)
	result, err := m.runAgent(ctx, m.runner(nil, groupID), m.comparisonAgent(), input)
	if err != nil {
		return "", fmt.Errorf("compare: %w", err)
	}
	return fmt.Sprint(result.FinalOutput), nil
}

func (m *Manager) snapshots(ctx context.Context, tickers []string, period model.Period) []model.MetricsSnapshot {
	var out []model.MetricsSnapshot
	for _, t := range tickers {
		snap, err := m.toolkit.Snapshot(ctx, t, period)
		if err != nil {
			log.Warn().Err(err).Str("ticker", t).Msg("metrics snapshot skipped")
			continue
		}
		out = append(out, snap)
	}
	return out
}

func (m *Manager) writeReport(ctx context.Context, query string, rep *model.ResearchReport, groupID string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Original query: %s\nTickers: %s\n\n", query, strings.Join(rep.Tickers, ", "))
	b.WriteString(formatAnalyses(rep.Analyses))
	if rep.Comparison != "" {
		b.WriteString("## Comparison analysis\n\n")
		b.WriteString(rep.Comparison)
		b.WriteString("\n\n")
	}
	if appendix := report.MetricsAppendix(rep.Snapshots); appendix != "" {
		b.WriteString("## Computed metrics (cite these numbers, the table is appended for you)\n\n")
		b.WriteString(appendix)
	}

	result, err := m.runAgent(ctx, m.runner(nil, groupID), m.reportAgent(), b.String())
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return fmt.Sprint(result.FinalOutput), nil
}

func formatAnalyses(analyses []model.TickerAnalysis) string {
	var b strings.Builder
	for _, a := range analyses {
		fmt.Fprintf(&b, "## %s\n\n", a.Ticker)
		section(&b, "News analysis", a.News)
		section(&b, "Market analysis", a.Market)
		section(&b, "Valuation analysis", a.Valuation)
		if a.Err != nil {
			fmt.Fprintf(&b, "Errors: %v\n\n", a.Err)
		}
	}
	return b.String()
}

func section(b *strings.Builder, title, body string) {
	if body == "" {
		body = "(unavailable)"
	}
	fmt.Fprintf(b, "### %s\n\n%s\n\n", title, body)
}
