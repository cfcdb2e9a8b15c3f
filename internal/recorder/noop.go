package recorder

// NoopRecorder is a no-op implementation used when run recording is disabled.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *Run) error                       { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]Run, error)              { return nil, nil }
func (n *NoopRecorder) RunsForTicker(_ string, _ int) ([]Run, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                 { return nil }
