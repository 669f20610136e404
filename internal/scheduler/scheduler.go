package scheduler

import (
	"context"
	"fmt"
	"strings"

	"ResearchDesk/internal/desk"
	"ResearchDesk/internal/model"
	"ResearchDesk/internal/notifier"
	"ResearchDesk/internal/recorder"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Sender delivers messages to the user.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Snapshotter computes deterministic metrics for one ticker.
type Snapshotter interface {
	Snapshot(ctx context.Context, ticker string, period model.Period) (model.MetricsSnapshot, error)
}

const helpText = "Available commands:\n" +
	"• /research &lt;query&gt; - run a full research report, e.g. /research Compare TSLA and F\n" +
	"• /snapshot &lt;TICKER&gt; [period] - computed metrics and risk factors\n" +
	"• /watchlist - research the configured watchlist now\n" +
	"• /history - recent research runs\n" +
	"• /help - this message"

// Scheduler manages cron tasks and bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Desk      *desk.Desk
	Snapshots Snapshotter
	Notifier  Sender
	Recorder  recorder.Recorder
	Watchlist []string
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, d *desk.Desk, snaps Snapshotter, n Sender, rec recorder.Recorder, watchlist []string) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Desk:      d,
		Snapshots: snaps,
		Notifier:  n,
		Recorder:  rec,
		Watchlist: watchlist,
		Ctx:       ctx,
	}
}

// RegisterAll registers the watchlist research task.
func (s *Scheduler) RegisterAll(watchlistCron string) error {
	if len(s.Watchlist) == 0 {
		log.Info().Msg("watchlist empty, no scheduled research")
		return nil
	}
	if _, err := s.Cron.AddFunc(watchlistCron, s.watchlistTask); err != nil {
		return fmt.Errorf("register watchlist task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunWatchlistNow executes the watchlist task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunWatchlistNow() {
	s.watchlistTask()
}

// WatchlistQuery is the research query issued for the watchlist.
func WatchlistQuery(tickers []string) string {
	if len(tickers) == 1 {
		return "Research " + tickers[0]
	}
	return "Research and compare " + strings.Join(tickers, ", ")
}

func (s *Scheduler) watchlistTask() {
	if len(s.Watchlist) == 0 {
		s.trySend("Watchlist is empty.")
		return
	}
	log.Info().Strs("tickers", s.Watchlist).Msg("running watchlist research")
	s.trySend(s.research(s.Ctx, WatchlistQuery(s.Watchlist)))
}

func (s *Scheduler) research(ctx context.Context, query string) string {
	rep, paths, err := s.Desk.Research(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("research failed")
		return fmt.Sprintf("❌ Research failed: %s", err)
	}
	return notifier.FormatReportDigest(rep, paths)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	name, arg, _ := strings.Cut(strings.TrimSpace(command), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/research":
		if arg == "" {
			return "Usage: /research &lt;query&gt;"
		}
		s.trySend(fmt.Sprintf("🔎 Researching: %s", arg))
		return s.research(ctx, arg)
	case "/snapshot":
		return s.snapshot(ctx, arg)
	case "/watchlist":
		s.watchlistTask()
		return ""
	case "/history":
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			return fmt.Sprintf("❌ History unavailable: %s", err)
		}
		return notifier.FormatHistory(runs)
	default:
		return helpText
	}
}

func (s *Scheduler) snapshot(ctx context.Context, arg string) string {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		return "Usage: /snapshot &lt;TICKER&gt; [period]"
	}
	period := model.DefaultPeriod
	if len(fields) > 1 {
		period = model.Period(fields[1])
		if !period.Valid() {
			return fmt.Sprintf("❌ Unknown period %q", fields[1])
		}
	}
	snap, err := s.Snapshots.Snapshot(ctx, fields[0], period)
	if err != nil {
		return fmt.Sprintf("❌ Snapshot failed: %s", err)
	}
	if err := s.Recorder.RecordSnapshot(0, &snap); err != nil {
		log.Error().Err(err).Msg("record snapshot")
	}
	return notifier.FormatSnapshot(&snap)
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
