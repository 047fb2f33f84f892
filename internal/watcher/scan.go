package watcher

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxLineBytes caps how much of a line is kept as match text. Longer lines
// are still counted and searched in full.
const maxLineBytes = 64 << 10

// ShrinkPolicy decides what happens when a file has fewer lines than its
// stored offset, which usually means it was truncated or replaced.
type ShrinkPolicy string

const (
	// ShrinkClamp scans nothing and lowers the offset to the new line count.
	ShrinkClamp ShrinkPolicy = "clamp"
	// ShrinkRescan scans the whole file again from line 0.
	ShrinkRescan ShrinkPolicy = "rescan"
)

// ParseShrinkPolicy validates a policy name. The empty string selects ShrinkClamp.
func ParseShrinkPolicy(value string) (ShrinkPolicy, error) {
	switch ShrinkPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", ShrinkClamp:
		return ShrinkClamp, nil
	case ShrinkRescan:
		return ShrinkRescan, nil
	default:
		return "", fmt.Errorf("invalid shrink policy %q (want %q or %q)", value, ShrinkClamp, ShrinkRescan)
	}
}

// Match is a single line containing the search term.
type Match struct {
	File  string
	Term  string
	Line  int // 1-based
	Text  string
	Found time.Time
}

// ScanResult is the outcome of scanning one file.
type ScanResult struct {
	// Lines is the total number of lines in the file and the offset to resume from.
	Lines int
	// Matches lists matching lines at or beyond the starting offset, in file order.
	Matches []Match
	// Shrunk reports that the file had fewer lines than the starting offset.
	Shrunk bool
}

// ScanFile reads path from the beginning and collects every line whose 0-based
// index is at least offset and whose text contains term. The file is re-read in
// full on every call so no handles or seek positions survive between cycles.
func ScanFile(path string, offset int, term string, policy ShrinkPolicy) (ScanResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)
	now := time.Now()

	// Matches below offset are only kept when a shrink could force a rescan.
	keepEarly := policy == ShrinkRescan && offset > 0

	var matches, early []Match
	reader := bufio.NewReaderSize(f, 64*1024)

	lines := 0
	for {
		idx := lines
		skip := idx < offset && !keepEarly
		text, found, err := readLine(reader, term, skip)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ScanResult{}, fmt.Errorf("read %s: %w", path, err)
		}
		lines++
		if skip || !found {
			continue
		}

		m := Match{File: name, Term: term, Line: idx + 1, Text: strings.TrimSuffix(text, "\r"), Found: now}
		if idx < offset {
			early = append(early, m)
		} else {
			matches = append(matches, m)
		}
	}

	res := ScanResult{Lines: lines, Matches: matches}
	if lines < offset {
		res.Shrunk = true
		if policy == ShrinkRescan {
			res.Matches = early
		}
	}
	return res, nil
}

// readLine consumes one line from r and reports whether it contains term.
// At most maxLineBytes of the line are returned as text. When skip is set the
// line is only consumed. io.EOF is returned only when no bytes remain.
func readLine(r *bufio.Reader, term string, skip bool) (string, bool, error) {
	var (
		head  []byte
		carry []byte
		found bool
		read  bool
	)
	needle := []byte(term)
	for {
		frag, more, err := r.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && read {
				return string(head), found, nil
			}
			return "", false, err
		}
		read = true
		if skip {
			if !more {
				return "", false, nil
			}
			continue
		}

		if !found {
			// carry holds the tail of the previous fragment so a term split
			// across fragments still matches.
			window := make([]byte, 0, len(carry)+len(frag))
			window = append(append(window, carry...), frag...)
			found = bytes.Contains(window, needle)
			keep := min(max(len(needle)-1, 0), len(window))
			carry = append(carry[:0], window[len(window)-keep:]...)
		}
		if room := maxLineBytes - len(head); room > 0 {
			head = append(head, frag[:min(room, len(frag))]...)
		}
		if !more {
			return string(head), found, nil
		}
	}
}
