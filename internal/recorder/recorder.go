package recorder

import (
	"time"

	"ResearchDesk/internal/model"
)

// Run statuses.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// ResearchRun holds the outcome of one research request.
type ResearchRun struct {
	SessionID  string
	Query      string
	Tickers    []string
	Duration   time.Duration
	Status     string // "COMPLETED" or "FAILED"
	ReportPath string
	Error      string
}

// RunSummary is a row read back from the runs table.
type RunSummary struct {
	ID         int64
	Timestamp  time.Time
	SessionID  string
	Query      string
	Tickers    string
	DurationMs int64
	Status     string
	ReportPath string
}

// Recorder persists research history for later analysis.
type Recorder interface {
	RecordRun(run *ResearchRun) (int64, error)
	RecordSnapshot(runID int64, snap *model.MetricsSnapshot) error
	RecentRuns(limit int) ([]RunSummary, error)
	Close() error
}
