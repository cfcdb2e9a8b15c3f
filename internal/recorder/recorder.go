// Package recorder persists generation runs for diagnostics: every synthesis
// attempt is one row, whether it produced a series or failed validation.
package recorder

import "time"

// Run is one generation attempt.
type Run struct {
	ID         int64     `json:"id"`
	Ticker     string    `json:"ticker"`
	Seed       int64     `json:"seed"`
	Tier       string    `json:"tier"`
	Anchor     string    `json:"anchor"`
	RawCount   int       `json:"raw_count"`
	ValidCount int       `json:"valid_count"`
	Dropped    int       `json:"dropped"`
	Violations string    `json:"violations,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationUS int64     `json:"duration_us"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recorder persists runs. Implementations must be safe for concurrent use.
type Recorder interface {
	RecordRun(run *Run) error
	RecentRuns(limit int) ([]Run, error)
	RunsForTicker(ticker string, limit int) ([]Run, error)
	Close() error
}
