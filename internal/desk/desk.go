// Package desk runs a research request end to end: agents, export and history.
package desk

import (
	"context"
	"strings"

	"ResearchDesk/internal/model"
	"ResearchDesk/internal/recorder"
	"ResearchDesk/internal/report"

	"github.com/rs/zerolog/log"
)

// Researcher produces a report for a free-form query.
type Researcher interface {
	Run(ctx context.Context, query string) (*model.ResearchReport, error)
}

// Desk wires a Researcher to report export and run history.
type Desk struct {
	Researcher Researcher
	Exporter   *report.Exporter
	Formats    []report.Format
	Recorder   recorder.Recorder
}

// Research runs query, exports the report and records the outcome.
// The returned paths are the exported files.
func (d *Desk) Research(ctx context.Context, query string) (*model.ResearchReport, []string, error) {
	query = strings.TrimSpace(query)
	rep, err := d.Researcher.Run(ctx, query)

	run := &recorder.ResearchRun{Query: query, Status: recorder.StatusCompleted}
	if rep != nil {
		run.SessionID = rep.SessionID
		run.Tickers = rep.Tickers
		run.Duration = rep.Duration
	}

	var paths []string
	if err == nil && d.Exporter != nil {
		var exportErr error
		paths, exportErr = d.Exporter.Export(rep, d.Formats)
		if exportErr != nil {
			log.Error().Err(exportErr).Msg("export report")
		}
		if len(paths) > 0 {
			run.ReportPath = paths[0]
		}
	}
	if err != nil {
		run.Status = recorder.StatusFailed
		run.Error = err.Error()
	}

	if d.Recorder != nil {
		runID, recErr := d.Recorder.RecordRun(run)
		if recErr != nil {
			log.Error().Err(recErr).Msg("record research run")
		}
		if rep != nil && recErr == nil {
			for i := range rep.Snapshots {
				if err := d.Recorder.RecordSnapshot(runID, &rep.Snapshots[i]); err != nil {
					log.Error().Err(err).Str("ticker", rep.Snapshots[i].Ticker).Msg("record snapshot")
				}
			}
		}
	}
	return rep, paths, err
}
