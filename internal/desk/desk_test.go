package desk

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ResearchDesk/internal/model"
	"ResearchDesk/internal/recorder"
	"ResearchDesk/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResearcher struct {
	rep *model.ResearchReport
	err error
}

func (s stubResearcher) Run(_ context.Context, query string) (*model.ResearchReport, error) {
	if s.rep != nil {
		s.rep.Query = query
	}
	return s.rep, s.err
}

func TestDesk_Research(t *testing.T) {
	dir := t.TempDir()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "research.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	d := &Desk{
		Researcher: stubResearcher{rep: &model.ResearchReport{
			SessionID: "session_1234abcd",
			Tickers:   []string{"AAPL"},
			Markdown:  "# Report\n",
			Duration:  2 * time.Second,
			Snapshots: []model.MetricsSnapshot{{Ticker: "AAPL", LatestPrice: 1}},
		}},
		Exporter: report.NewExporter(filepath.Join(dir, "reports")),
		Formats:  []report.Format{report.FormatMarkdown},
		Recorder: rec,
	}

	rep, paths, err := d.Research(context.Background(), "  Research AAPL ")
	require.NoError(t, err)
	assert.Equal(t, "Research AAPL", rep.Query)
	require.Len(t, paths, 1)
	assert.FileExists(t, paths[0])

	runs, err := rec.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.StatusCompleted, runs[0].Status)
	assert.Equal(t, paths[0], runs[0].ReportPath)
	assert.Equal(t, "session_1234abcd", runs[0].SessionID)
}

func TestDesk_ResearchFailure(t *testing.T) {
	dir := t.TempDir()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(dir, "research.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rec.Close() })

	d := &Desk{
		Researcher: stubResearcher{err: errors.New("planner down")},
		Exporter:   report.NewExporter(filepath.Join(dir, "reports")),
		Formats:    []report.Format{report.FormatMarkdown},
		Recorder:   rec,
	}
	_, paths, err := d.Research(context.Background(), "Research AAPL")
	assert.EqualError(t, err, "planner down")
	assert.Empty(t, paths)

	runs, err := rec.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.StatusFailed, runs[0].Status)
}
