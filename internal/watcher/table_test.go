package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReconcile_AddsAtZeroAndRemoves(t *testing.T) {
	tbl := NewTable()

	added, removed := tbl.Reconcile([]string{"b.txt", "a.txt"})
	if !reflect.DeepEqual(added, []string{"a.txt", "b.txt"}) {
		t.Errorf("added = %v, want [a.txt b.txt]", added)
	}
	if len(removed) != 0 {
		t.Errorf("removed = %v, want none", removed)
	}
	for _, name := range []string{"a.txt", "b.txt"} {
		off, ok := tbl.Offset(name)
		if !ok || off != 0 {
			t.Errorf("Offset(%s) = %d, %v; want 0, true", name, off, ok)
		}
	}

	tbl.SetOffset("a.txt", 7)
	added, removed = tbl.Reconcile([]string{"a.txt", "c.txt"})
	if !reflect.DeepEqual(added, []string{"c.txt"}) {
		t.Errorf("added = %v, want [c.txt]", added)
	}
	if !reflect.DeepEqual(removed, []string{"b.txt"}) {
		t.Errorf("removed = %v, want [b.txt]", removed)
	}
	if off, _ := tbl.Offset("a.txt"); off != 7 {
		t.Errorf("Offset(a.txt) = %d, want 7 preserved", off)
	}

	// A removal is reported once only.
	_, removed = tbl.Reconcile([]string{"a.txt", "c.txt"})
	if len(removed) != 0 {
		t.Errorf("second reconcile removed = %v, want none", removed)
	}
}

func TestReconcile_KeysMatchListing(t *testing.T) {
	tbl := NewTable()
	listings := [][]string{
		{"a.txt"},
		{"a.txt", "b.txt", "c.txt"},
		{},
		{"c.txt", "d.txt"},
		{"d.txt", "d.txt"},
	}
	for i, listing := range listings {
		tbl.Reconcile(listing)

		want := map[string]bool{}
		for _, name := range listing {
			want[name] = true
		}
		if tbl.Len() != len(want) {
			t.Fatalf("step %d: Len() = %d, want %d", i, tbl.Len(), len(want))
		}
		for _, name := range tbl.Names() {
			if !want[name] {
				t.Fatalf("step %d: unexpected tracked name %q", i, name)
			}
		}
	}
}

func TestReconcile_ReappearingFileStartsOver(t *testing.T) {
	tbl := NewTable()
	tbl.Reconcile([]string{"a.txt"})
	tbl.SetOffset("a.txt", 12)

	tbl.Reconcile(nil)
	added, _ := tbl.Reconcile([]string{"a.txt"})
	if !reflect.DeepEqual(added, []string{"a.txt"}) {
		t.Fatalf("added = %v, want [a.txt]", added)
	}
	if off, _ := tbl.Offset("a.txt"); off != 0 {
		t.Errorf("Offset(a.txt) = %d, want 0 after re-add", off)
	}
}

func TestSetOffset_IgnoresUntrackedAndNegative(t *testing.T) {
	tbl := NewTable()
	tbl.SetOffset("ghost.txt", 3)
	if _, ok := tbl.Offset("ghost.txt"); ok {
		t.Error("SetOffset() tracked an unknown name")
	}

	tbl.Reconcile([]string{"a.txt"})
	tbl.SetOffset("a.txt", -4)
	if off, _ := tbl.Offset("a.txt"); off != 0 {
		t.Errorf("Offset(a.txt) = %d, want 0 for negative input", off)
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	tbl := NewTable()
	tbl.Reconcile([]string{"a.txt"})
	snap := tbl.Snapshot()
	snap["a.txt"] = 99
	snap["b.txt"] = 1

	if off, _ := tbl.Offset("a.txt"); off != 0 {
		t.Errorf("Offset(a.txt) = %d after mutating snapshot", off)
	}
	if tbl.Len() != 1 {
		t.Errorf("Len() = %d after mutating snapshot", tbl.Len())
	}
}

func TestListMatching(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "a.txt", "x")
	writeLines(t, dir, "b.log", "x")
	writeLines(t, dir, "c.TXT", "x")
	if err := os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	names, err := listMatching(dir, ".txt")
	if err != nil {
		t.Fatalf("listMatching() error = %v", err)
	}
	if !reflect.DeepEqual(names, []string{"a.txt"}) {
		t.Errorf("listMatching() = %v, want [a.txt]", names)
	}
}

func TestListMatching_MissingDir(t *testing.T) {
	_, err := listMatching(filepath.Join(t.TempDir(), "gone"), ".txt")
	if !errors.Is(err, ErrDirNotFound) {
		t.Fatalf("listMatching() error = %v, want ErrDirNotFound", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("listMatching() error = %v, want wrapped os.ErrNotExist", err)
	}
}
