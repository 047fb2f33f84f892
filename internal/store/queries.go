package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Timestamps are stored as fixed-width UTC strings so they sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// Run operations

// BeginRun inserts a new run row.
func (s *Store) BeginRun(run Run) error {
	query := `
		INSERT INTO runs (id, started_at, dir, ext, magic, interval_seconds)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		run.ID,
		formatTime(run.StartedAt),
		run.Dir,
		run.Ext,
		run.Magic,
		run.IntervalSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, wrapNotInitialized(err))
	}
	return nil
}

// EndRun stamps a run with its stop time.
func (s *Store) EndRun(id string, stoppedAt time.Time) error {
	res, err := s.db.Exec(`UPDATE runs SET stopped_at = ? WHERE id = ?`, formatTime(stoppedAt), id)
	if err != nil {
		return fmt.Errorf("failed to end run %s: %w", id, wrapNotInitialized(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetLatestRun returns the most recently started run, or nil when there is none.
func (s *Store) GetLatestRun() (*Run, error) {
	runs, err := s.ListRuns(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return runs[0], nil
}

// ListRuns returns runs newest first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := `
		SELECT id, started_at, stopped_at, dir, ext, magic, interval_seconds
		FROM runs
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", wrapNotInitialized(err))
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt string
		var stoppedAt sql.NullString
		if err := rows.Scan(&run.ID, &startedAt, &stoppedAt, &run.Dir, &run.Ext, &run.Magic, &run.IntervalSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt, err = parseTime(startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at for run %s: %w", run.ID, err)
		}
		if stoppedAt.Valid {
			t, err := parseTime(stoppedAt.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse stopped_at for run %s: %w", run.ID, err)
			}
			run.StoppedAt = &t
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Match operations

// RecordMatches inserts matches in a single transaction. Either all rows are
// written or none are.
func (s *Store) RecordMatches(matches []Match) error {
	if len(matches) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO matches (run_id, file, line, text, found_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("prepare statement: %w", wrapNotInitialized(err))
	}
	defer stmt.Close()

	for _, m := range matches {
		if _, err := stmt.Exec(m.RunID, m.File, m.Line, m.Text, formatTime(m.FoundAt)); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert match %s:%d: %w", m.File, m.Line, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListMatches returns recorded matches newest first.
func (s *Store) ListMatches(filter MatchFilter) ([]*Match, error) {
	var where []string
	var args []any
	if filter.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, filter.RunID)
	}
	if filter.File != "" {
		where = append(where, "file = ?")
		args = append(args, filter.File)
	}

	query := `SELECT id, run_id, file, line, text, found_at FROM matches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY found_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", wrapNotInitialized(err))
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		var m Match
		var text sql.NullString
		var foundAt string
		if err := rows.Scan(&m.ID, &m.RunID, &m.File, &m.Line, &text, &foundAt); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.Text = text.String
		m.FoundAt, err = parseTime(foundAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse found_at for match %d: %w", m.ID, err)
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}
	return matches, nil
}

// CountMatches returns the number of matches recorded for a run. An empty
// runID counts every match.
func (s *Store) CountMatches(runID string) (int, error) {
	query := `SELECT COUNT(*) FROM matches`
	var args []any
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}

	var count int
	if err := s.db.QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", wrapNotInitialized(err))
	}
	return count, nil
}
