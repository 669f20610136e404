package recorder

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ResearchDesk/internal/model"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists research history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL keeps readers (dashboards, ad-hoc queries) off the writer's lock.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS research_runs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			session_id  TEXT,
			query       TEXT,
			tickers     TEXT,
			duration_ms INTEGER,
			status      TEXT,
			report_path TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON research_runs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_session ON research_runs(session_id)`,

		`CREATE TABLE IF NOT EXISTS metric_snapshots (
			id                    INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id                INTEGER,
			timestamp             INTEGER NOT NULL,
			ticker                TEXT NOT NULL,
			period                TEXT,
			latest_price          REAL,
			sma20                 REAL,
			ema12                 REAL,
			rsi14                 REAL,
			high                  REAL,
			low                   REAL,
			daily_volatility      REAL,
			annualized_volatility REAL,
			max_drawdown          REAL,
			total_return          REAL,
			annualized_return     REAL,
			data_points           INTEGER,
			pe_ratio              REAL,
			market_cap            REAL,
			risk_score            REAL,
			risk_level            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snap_ticker_ts ON metric_snapshots(ticker, timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(run *ResearchRun) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`INSERT INTO research_runs
		(timestamp, session_id, query, tickers, duration_ms, status, report_path, error)
		VALUES (?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), run.SessionID, run.Query, strings.Join(run.Tickers, ","),
		run.Duration.Milliseconds(), run.Status, run.ReportPath, run.Error,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (r *SQLiteRecorder) RecordSnapshot(runID int64, snap *model.MetricsSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pe, mcap any
	if snap.Valuation != nil {
		pe = snap.Valuation.Metrics["pe_ratio"]
		mcap = snap.Valuation.Metrics["market_cap"]
	}
	var score any
	var level string
	if snap.Risk != nil {
		score, level = snap.Risk.TotalScore, snap.Risk.Level
	}

	ts := snap.TakenAt
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.Exec(`INSERT INTO metric_snapshots
		(run_id, timestamp, ticker, period, latest_price, sma20, ema12, rsi14,
		 high, low, daily_volatility, annualized_volatility, max_drawdown,
		 total_return, annualized_return, data_points,
		 pe_ratio, market_cap, risk_score, risk_level)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		runID, ts.Unix(), snap.Ticker, string(snap.Period),
		nullFloat(snap.LatestPrice), nullFloat(snap.SMA20), nullFloat(snap.EMA12), nullFloat(snap.RSI14),
		nullFloat(snap.High), nullFloat(snap.Low),
		nullFloat(snap.DailyVolatility), nullFloat(snap.AnnualizedVolatility), nullFloat(snap.MaxDrawdown),
		nullFloat(snap.TotalReturn), nullFloat(snap.AnnualizedReturn), snap.DataPoints,
		numeric(pe), numeric(mcap), score, level,
	)
	return err
}

func (r *SQLiteRecorder) RecentRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(`SELECT id, timestamp, session_id, query, tickers, duration_ms, status, report_path
		FROM research_runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		var ts int64
		if err := rows.Scan(&s.ID, &ts, &s.SessionID, &s.Query, &s.Tickers, &s.DurationMs, &s.Status, &s.ReportPath); err != nil {
			return nil, err
		}
		s.Timestamp = time.Unix(ts, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

// nullFloat stores NaN as NULL.
func nullFloat(v float64) any {
	if v != v {
		return nil
	}
	return v
}

func numeric(v any) any {
	if f, ok := v.(float64); ok {
		return nullFloat(f)
	}
	return nil
}
