package recorder

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestRecorder(t *testing.T) *SQLiteRecorder {
	t.Helper()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRecorder error: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func testRun(ticker string, valid int) *Run {
	return &Run{
		Ticker:     ticker,
		Seed:       739,
		Tier:       "blue-chip",
		Anchor:     "2026-06-15",
		RawCount:   40,
		ValidCount: valid,
		Dropped:    40 - valid,
		DurationUS: 1200,
		CreatedAt:  time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

// ── RecordRun / RecentRuns ──

func TestRecordRunAssignsID(t *testing.T) {
	r := openTestRecorder(t)
	run := testRun("AAPL", 40)
	if err := r.RecordRun(run); err != nil {
		t.Fatalf("RecordRun error: %v", err)
	}
	if run.ID == 0 {
		t.Error("RecordRun did not assign an ID")
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	r := openTestRecorder(t)
	for _, ticker := range []string{"AAPL", "MSFT", "TSLA"} {
		if err := r.RecordRun(testRun(ticker, 40)); err != nil {
			t.Fatalf("RecordRun(%s) error: %v", ticker, err)
		}
	}

	runs, err := r.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	want := []string{"TSLA", "MSFT", "AAPL"}
	for i, run := range runs {
		if run.Ticker != want[i] {
			t.Errorf("runs[%d].Ticker: got %q, want %q", i, run.Ticker, want[i])
		}
	}
}

func TestRecordRunRoundtripFields(t *testing.T) {
	r := openTestRecorder(t)
	in := testRun("NLMN", 38)
	in.Violations = "low_not_positive"
	in.Error = ""
	if err := r.RecordRun(in); err != nil {
		t.Fatalf("RecordRun error: %v", err)
	}

	runs, err := r.RecentRuns(1)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.Ticker != "NLMN" || got.Seed != 739 || got.Tier != "blue-chip" {
		t.Errorf("identity fields: %+v", got)
	}
	if got.Anchor != "2026-06-15" {
		t.Errorf("Anchor: got %q", got.Anchor)
	}
	if got.RawCount != 40 || got.ValidCount != 38 || got.Dropped != 2 {
		t.Errorf("counts: %+v", got)
	}
	if got.Violations != "low_not_positive" {
		t.Errorf("Violations: got %q", got.Violations)
	}
	if got.DurationUS != 1200 {
		t.Errorf("DurationUS: got %d", got.DurationUS)
	}
	if got.CreatedAt.Unix() != in.CreatedAt.Unix() {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, in.CreatedAt)
	}
}

func TestRecentRunsLimit(t *testing.T) {
	r := openTestRecorder(t)
	for i := 0; i < 5; i++ {
		if err := r.RecordRun(testRun("AAPL", 40)); err != nil {
			t.Fatalf("RecordRun error: %v", err)
		}
	}
	runs, err := r.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs, want 2", len(runs))
	}
}

func TestRecentRunsEmpty(t *testing.T) {
	r := openTestRecorder(t)
	runs, err := r.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs from empty db", len(runs))
	}
}

// ── RunsForTicker ──

func TestRunsForTickerFilters(t *testing.T) {
	r := openTestRecorder(t)
	for _, ticker := range []string{"AAPL", "MSFT", "AAPL", "TSLA", "AAPL"} {
		if err := r.RecordRun(testRun(ticker, 40)); err != nil {
			t.Fatalf("RecordRun error: %v", err)
		}
	}

	runs, err := r.RunsForTicker("AAPL", 10)
	if err != nil {
		t.Fatalf("RunsForTicker error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	for _, run := range runs {
		if run.Ticker != "AAPL" {
			t.Errorf("foreign ticker in results: %q", run.Ticker)
		}
	}
}

func TestRunsForTickerUnknown(t *testing.T) {
	r := openTestRecorder(t)
	if err := r.RecordRun(testRun("AAPL", 40)); err != nil {
		t.Fatalf("RecordRun error: %v", err)
	}
	runs, err := r.RunsForTicker("NOSUCH", 10)
	if err != nil {
		t.Fatalf("RunsForTicker error: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs for unknown ticker", len(runs))
	}
}

// ── Reopen / persistence ──

func TestRunsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	r, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder error: %v", err)
	}
	if err := r.RecordRun(testRun("AAPL", 40)); err != nil {
		t.Fatalf("RecordRun error: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	reopened, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns error: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs after reopen, want 1", len(runs))
	}
}

func TestNewSQLiteRecorderCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "runs.db")
	r, err := NewSQLiteRecorder(path)
	if err != nil {
		t.Fatalf("NewSQLiteRecorder error: %v", err)
	}
	r.Close()
}

// ── clampLimit ──

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, defaultRunLimit},
		{-3, defaultRunLimit},
		{10, 10},
		{maxRunLimit, maxRunLimit},
		{maxRunLimit + 1, maxRunLimit},
	}
	for _, tc := range tests {
		if got := clampLimit(tc.in); got != tc.want {
			t.Errorf("clampLimit(%d): got %d, want %d", tc.in, got, tc.want)
		}
	}
}

// ── NoopRecorder ──

func TestNoopRecorder(t *testing.T) {
	var rec Recorder = NewNoopRecorder()
	if err := rec.RecordRun(testRun("AAPL", 40)); err != nil {
		t.Errorf("RecordRun: %v", err)
	}
	runs, err := rec.RecentRuns(10)
	if err != nil || runs != nil {
		t.Errorf("RecentRuns: got (%v, %v)", runs, err)
	}
	runs, err = rec.RunsForTicker("AAPL", 10)
	if err != nil || runs != nil {
		t.Errorf("RunsForTicker: got (%v, %v)", runs, err)
	}
	if err := rec.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
