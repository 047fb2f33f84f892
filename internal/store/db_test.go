package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		t.Fatalf("CreateSchema() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertRun(t *testing.T, s *Store, id string, started time.Time) {
	t.Helper()
	run := Run{
		ID:              id,
		StartedAt:       started,
		Dir:             "/tmp/watched",
		Ext:             ".txt",
		Magic:           "magic",
		IntervalSeconds: 1,
	}
	if err := s.BeginRun(run); err != nil {
		t.Fatalf("BeginRun(%s): %v", id, err)
	}
}

func TestNew_EmptyPath(t *testing.T) {
	if _, err := New("  "); err == nil {
		t.Fatal("New(\"  \") should return an error")
	}
}

func TestNew_CreatesParentDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New(%s) failed: %v", dbPath, err)
	}
	defer s.Close()

	if err := s.CreateSchema(); err != nil {
		t.Fatalf("CreateSchema() failed: %v", err)
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	s := setupTestStore(t)
	if err := s.CreateSchema(); err != nil {
		t.Fatalf("second CreateSchema() failed: %v", err)
	}
}

// ── uninitialized database ───────────────────────────────────────────────────

func TestListMatches_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	// No CreateSchema: the tables are missing.
	_, err = s.ListMatches(MatchFilter{})
	if err == nil {
		t.Fatal("ListMatches() should return an error on uninitialized DB")
	}
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ListMatches() error = %v; want errors.Is(err, ErrNotInitialized)", err)
	}
}

func TestGetLatestRun_NoSchema_ReturnsErrNotInitialized(t *testing.T) {
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer s.Close()

	_, err = s.GetLatestRun()
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("GetLatestRun() error = %v; want errors.Is(err, ErrNotInitialized)", err)
	}
}

// ── runs ─────────────────────────────────────────────────────────────────────

func TestBeginEndRun(t *testing.T) {
	s := setupTestStore(t)
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertRun(t, s, "run-1", started)

	run, err := s.GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun() failed: %v", err)
	}
	if run == nil {
		t.Fatal("GetLatestRun() returned nil")
	}
	if run.ID != "run-1" {
		t.Errorf("run.ID = %q, want run-1", run.ID)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("run.StartedAt = %v, want %v", run.StartedAt, started)
	}
	if run.StoppedAt != nil {
		t.Errorf("run.StoppedAt = %v, want nil before EndRun", run.StoppedAt)
	}
	if run.Magic != "magic" || run.Ext != ".txt" || run.IntervalSeconds != 1 {
		t.Errorf("unexpected run fields: %+v", run)
	}

	stopped := started.Add(90 * time.Second)
	if err := s.EndRun("run-1", stopped); err != nil {
		t.Fatalf("EndRun() failed: %v", err)
	}

	run, err = s.GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun() failed: %v", err)
	}
	if run.StoppedAt == nil || !run.StoppedAt.Equal(stopped) {
		t.Errorf("run.StoppedAt = %v, want %v", run.StoppedAt, stopped)
	}
}

func TestEndRun_UnknownID(t *testing.T) {
	s := setupTestStore(t)
	if err := s.EndRun("missing", time.Now()); err == nil {
		t.Fatal("EndRun() on unknown run should return an error")
	}
}

func TestGetLatestRun_Empty(t *testing.T) {
	s := setupTestStore(t)
	run, err := s.GetLatestRun()
	if err != nil {
		t.Fatalf("GetLatestRun() failed: %v", err)
	}
	if run != nil {
		t.Errorf("GetLatestRun() = %+v, want nil", run)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertRun(t, s, "old", base)
	insertRun(t, s, "new", base.Add(time.Hour))
	insertRun(t, s, "mid", base.Add(30*time.Minute))

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	want := []string{"new", "mid", "old"}
	if len(runs) != len(want) {
		t.Fatalf("ListRuns() returned %d runs, want %d", len(runs), len(want))
	}
	for i, id := range want {
		if runs[i].ID != id {
			t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
		}
	}

	limited, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns(2) failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ListRuns(2) returned %d runs, want 2", len(limited))
	}
}

// ── matches ──────────────────────────────────────────────────────────────────

func TestRecordMatches_AndList(t *testing.T) {
	s := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertRun(t, s, "run-1", base)

	matches := []Match{
		{RunID: "run-1", File: "a.txt", Line: 2, Text: "magic here", FoundAt: base.Add(time.Second)},
		{RunID: "run-1", File: "b.txt", Line: 7, Text: "more magic", FoundAt: base.Add(2 * time.Second)},
		{RunID: "run-1", File: "a.txt", Line: 9, Text: "magic again", FoundAt: base.Add(3 * time.Second)},
	}
	if err := s.RecordMatches(matches); err != nil {
		t.Fatalf("RecordMatches() failed: %v", err)
	}

	all, err := s.ListMatches(MatchFilter{})
	if err != nil {
		t.Fatalf("ListMatches() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListMatches() returned %d matches, want 3", len(all))
	}
	if all[0].Line != 9 || all[0].File != "a.txt" {
		t.Errorf("newest match = %s:%d, want a.txt:9", all[0].File, all[0].Line)
	}
	if all[0].Text != "magic again" {
		t.Errorf("all[0].Text = %q, want %q", all[0].Text, "magic again")
	}

	onlyA, err := s.ListMatches(MatchFilter{File: "a.txt"})
	if err != nil {
		t.Fatalf("ListMatches(file) failed: %v", err)
	}
	if len(onlyA) != 2 {
		t.Errorf("ListMatches(file=a.txt) returned %d, want 2", len(onlyA))
	}

	limited, err := s.ListMatches(MatchFilter{Limit: 1})
	if err != nil {
		t.Fatalf("ListMatches(limit) failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("ListMatches(limit=1) returned %d, want 1", len(limited))
	}
}

func TestRecordMatches_Empty(t *testing.T) {
	s := setupTestStore(t)
	if err := s.RecordMatches(nil); err != nil {
		t.Fatalf("RecordMatches(nil) failed: %v", err)
	}
}

func TestRecordMatches_UnknownRunRollsBack(t *testing.T) {
	s := setupTestStore(t)
	insertRun(t, s, "run-1", time.Now())

	matches := []Match{
		{RunID: "run-1", File: "a.txt", Line: 1, FoundAt: time.Now()},
		{RunID: "no-such-run", File: "a.txt", Line: 2, FoundAt: time.Now()},
	}
	if err := s.RecordMatches(matches); err == nil {
		t.Fatal("RecordMatches() should fail on a foreign key violation")
	}

	count, err := s.CountMatches("")
	if err != nil {
		t.Fatalf("CountMatches() failed: %v", err)
	}
	if count != 0 {
		t.Errorf("CountMatches() = %d after rollback, want 0", count)
	}
}

func TestCountMatches_PerRun(t *testing.T) {
	s := setupTestStore(t)
	now := time.Now()
	insertRun(t, s, "run-1", now)
	insertRun(t, s, "run-2", now.Add(time.Minute))

	if err := s.RecordMatches([]Match{
		{RunID: "run-1", File: "a.txt", Line: 1, FoundAt: now},
		{RunID: "run-2", File: "a.txt", Line: 1, FoundAt: now},
		{RunID: "run-2", File: "a.txt", Line: 4, FoundAt: now},
	}); err != nil {
		t.Fatalf("RecordMatches() failed: %v", err)
	}

	tests := []struct {
		runID string
		want  int
	}{
		{"run-1", 1},
		{"run-2", 2},
		{"", 3},
		{"run-3", 0},
	}
	for _, tt := range tests {
		got, err := s.CountMatches(tt.runID)
		if err != nil {
			t.Fatalf("CountMatches(%q) failed: %v", tt.runID, err)
		}
		if got != tt.want {
			t.Errorf("CountMatches(%q) = %d, want %d", tt.runID, got, tt.want)
		}
	}
}

func TestListMatches_OrdersWithinSecond(t *testing.T) {
	s := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertRun(t, s, "run-1", base)

	if err := s.RecordMatches([]Match{
		{RunID: "run-1", File: "a.txt", Line: 2, FoundAt: base.Add(150 * time.Millisecond)},
		{RunID: "run-1", File: "a.txt", Line: 1, FoundAt: base.Add(100 * time.Millisecond)},
		{RunID: "run-1", File: "a.txt", Line: 3, FoundAt: base.Add(time.Second)},
	}); err != nil {
		t.Fatalf("RecordMatches() failed: %v", err)
	}

	matches, err := s.ListMatches(MatchFilter{})
	if err != nil {
		t.Fatalf("ListMatches() failed: %v", err)
	}
	want := []int{3, 2, 1}
	if len(matches) != len(want) {
		t.Fatalf("ListMatches() returned %d matches, want %d", len(matches), len(want))
	}
	for i, line := range want {
		if matches[i].Line != line {
			t.Errorf("matches[%d].Line = %d, want %d", i, matches[i].Line, line)
		}
	}
	if !matches[1].FoundAt.Equal(base.Add(150 * time.Millisecond)) {
		t.Errorf("FoundAt = %v, want %v", matches[1].FoundAt, base.Add(150*time.Millisecond))
	}
}

func TestListRuns_OrdersWithinSecond(t *testing.T) {
	s := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	insertRun(t, s, "first", base.Add(100*time.Millisecond))
	insertRun(t, s, "second", base.Add(150*time.Millisecond))

	runs, err := s.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "second" {
		t.Errorf("ListRuns() order = %v, want second first", runIDs(runs))
	}
}

func runIDs(runs []*Run) []string {
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	return ids
}
