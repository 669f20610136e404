package recorder

import "ResearchDesk/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *ResearchRun) (int64, error)                { return 0, nil }
func (n *NoopRecorder) RecordSnapshot(_ int64, _ *model.MetricsSnapshot) error { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunSummary, error)                 { return nil, nil }
func (n *NoopRecorder) Close() error                                           { return nil }
