package store

import "time"

// Run is one watcher process lifetime.
type Run struct {
	ID              string
	StartedAt       time.Time
	StoppedAt       *time.Time // nil while running or after a crash
	Dir             string
	Ext             string
	Magic           string
	IntervalSeconds int
}

// Match records a line that contained the magic word.
type Match struct {
	ID      int64
	RunID   string
	File    string
	Line    int // 1-based
	Text    string
	FoundAt time.Time
}

// MatchFilter narrows ListMatches. Zero values mean "no filter".
type MatchFilter struct {
	RunID string
	File  string
	Limit int
}
