package main

import (
	"context"
	"fmt"
	"sync"

	"ResearchDesk/internal/collector"
	"ResearchDesk/internal/config"
	"ResearchDesk/internal/desk"
	"ResearchDesk/internal/metrics"
	"ResearchDesk/internal/recorder"
	"ResearchDesk/internal/report"
	"ResearchDesk/internal/research"
	"ResearchDesk/internal/sentiment"
	"ResearchDesk/internal/session"
	"ResearchDesk/internal/stats"
	"ResearchDesk/internal/toolkit"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/rs/zerolog/log"
)

// app holds the long-lived components of one process.
type app struct {
	sink     *metrics.Collector
	toolkit  *toolkit.Toolkit
	manager  *research.Manager
	desk     *desk.Desk
	recorder recorder.Recorder
	sessions *session.Store
	session  *session.Session

	closeOnce sync.Once
}

func newApp(ctx context.Context, cfg *config.Config, sessionID string, formats []report.Format, offline bool) (*app, error) {
	agents.SetDefaultOpenaiKey(cfg.LLM.OpenAIKey, !cfg.LLM.TracingDisabled)

	a := &app{sink: metrics.NewCollector()}

	var fetcher collector.Fetcher
	if offline {
		fetcher = &collector.MockFetcher{Price: 100}
	} else {
		opts := []collector.YahooOption{
			collector.WithProxy(cfg.Proxy),
			collector.WithTimeout(cfg.DataSource.Timeout),
			collector.WithRetry(cfg.Retry.Attempts, cfg.Retry.InitialDelay, cfg.MaxRetryDelay(), cfg.Retry.HTTPStatuses),
			collector.WithRateLimit(cfg.DataSource.RequestsPerSecond),
			collector.WithCacheTTL(cfg.DataSource.CacheTTL),
		}
		if cfg.DataSource.BaseURL != "" {
			opts = append(opts, collector.WithBaseURL(cfg.DataSource.BaseURL))
		}
		fetcher = collector.NewYahooFetcher(opts...)
	}
	log.Info().Str("source", fetcher.Name()).Msg("market data source")

	tkOpts := []toolkit.Option{
		toolkit.WithSink(a.sink),
		toolkit.WithSnapshotDir(cfg.Output.SnapshotDir),
	}
	if cfg.Gemini.APIKey != "" {
		analyzer, err := sentiment.NewGeminiAnalyzer(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Warn().Err(err).Msg("sentiment analyzer disabled")
		} else {
			tkOpts = append(tkOpts, toolkit.WithAnalyzer(analyzer))
		}
	}
	a.toolkit = toolkit.New(collector.NewCollector(fetcher), stats.NewEngine(a.sink), tkOpts...)

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			a.recorder = sr
		}
	}

	store, err := session.NewStore(cfg.Session.DBPath, cfg.App.DefaultUserID)
	if err != nil {
		return nil, err
	}
	a.sessions = store
	if a.session, err = store.Open(ctx, sessionID); err != nil {
		return nil, err
	}

	a.manager = research.NewManager(a.toolkit,
		research.WithModelName(cfg.LLM.Model),
		research.WithSink(a.sink),
		research.WithTracingDisabled(cfg.LLM.TracingDisabled),
		research.WithWorkflowName(cfg.App.Name),
		research.WithSession(a.session, a.session.ID, cfg.HistoryLimit()),
	)
	a.desk = &desk.Desk{
		Researcher: a.manager,
		Exporter:   report.NewExporter(cfg.Output.ReportDir),
		Formats:    formats,
		Recorder:   a.recorder,
	}
	return a, nil
}

func (a *app) sessionID() string { return a.session.ID }

func (a *app) newSession(ctx context.Context) error {
	next, err := a.sessions.Rotate(ctx, a.session)
	if err != nil {
		return err
	}
	a.session = next
	a.manager.SetSession(next, next.ID)
	return nil
}

func (a *app) research(ctx context.Context, query string) error {
	fmt.Println("Researching, this can take a minute...")
	rep, paths, err := a.desk.Research(ctx, query)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(rep.Markdown)
	for _, p := range paths {
		fmt.Printf("Saved: %s\n", p)
	}
	return nil
}

func (a *app) printMetrics() {
	s := a.sink.Summary()
	if len(s.Operations) == 0 {
		return
	}
	fmt.Println("\nPerformance metrics:")
	for _, op := range s.OperationNames() {
		o := s.Operations[op]
		fmt.Printf("  %-40s count=%-4d avg=%-10s max=%-10s errors=%d\n", op, o.Count, o.Avg, o.Max, s.Errors[op])
	}
}

func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.session != nil {
			if err := a.session.Close(); err != nil {
				log.Warn().Err(err).Msg("close session")
			}
		}
		if a.recorder != nil {
			if err := a.recorder.Close(); err != nil {
				log.Warn().Err(err).Msg("close recorder")
			}
		}
	})
}
