package watcher

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrDirNotFound is returned when the watched directory cannot be listed,
// either because it does not exist or because it is not readable.
var ErrDirNotFound = errors.New("watched directory not found")

// Table records scan progress for each tracked file: the file name maps to the
// number of lines already scanned, which doubles as the next line index to scan.
//
// A Table is owned by a single poll loop and is not safe for concurrent use.
type Table struct {
	offsets map[string]int
}

// NewTable returns an empty tracking table.
func NewTable() *Table {
	return &Table{offsets: make(map[string]int)}
}

// Reconcile brings the table in line with a fresh directory listing.
// Names not yet tracked are added at offset 0 and tracked names missing from
// the listing are dropped. Existing offsets are left untouched. Both returned
// slices are sorted.
func (t *Table) Reconcile(names []string) (added, removed []string) {
	present := make(map[string]struct{}, len(names))
	for _, name := range names {
		present[name] = struct{}{}
		if _, ok := t.offsets[name]; !ok {
			t.offsets[name] = 0
			added = append(added, name)
		}
	}

	for name := range t.offsets {
		if _, ok := present[name]; !ok {
			delete(t.offsets, name)
			removed = append(removed, name)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}

// Offset returns the stored offset for name and whether it is tracked.
func (t *Table) Offset(name string) (int, bool) {
	off, ok := t.offsets[name]
	return off, ok
}

// SetOffset updates the offset of a tracked file. Untracked names are ignored
// so a scan result can never resurrect a removed entry.
func (t *Table) SetOffset(name string, offset int) {
	if _, ok := t.offsets[name]; !ok {
		return
	}
	if offset < 0 {
		offset = 0
	}
	t.offsets[name] = offset
}

// Names returns the tracked file names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.offsets))
	for name := range t.offsets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of tracked files.
func (t *Table) Len() int {
	return len(t.offsets)
}

// Snapshot returns a copy of the name → offset mapping.
func (t *Table) Snapshot() map[string]int {
	cp := make(map[string]int, len(t.offsets))
	for name, off := range t.offsets {
		cp[name] = off
	}
	return cp
}

// listMatching returns the names of non-directory entries in dir whose names
// end with ext. Any listing failure is reported as ErrDirNotFound.
func listMatching(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDirNotFound, dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ext) {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
