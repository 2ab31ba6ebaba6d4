package scanner

import (
	"path/filepath"
	"testing"
)

func TestEntrySequenceSeedsFromStartingEntryNo(t *testing.T) {
	dir := t.TempDir()
	seq, err := NewEntrySequence(filepath.Join(dir, "state.json"), 7)
	if err != nil {
		t.Fatal(err)
	}

	n, err := seq.Next()
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Fatalf("got %d, want 7", n)
	}
}

func TestEntrySequenceMonotonicAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	seq, err := NewEntrySequence(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := seq.Next(); err != nil {
			t.Fatal(err)
		}
	}

	// Simulate a process restart: reload from the persisted state file.
	restarted, err := NewEntrySequence(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	n, err := restarted.Next()
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Fatalf("got %d, want 4 (monotonic across restart)", n)
	}
}

func TestEntrySequenceMissingStateFileDefaultsToStartingEntryNo(t *testing.T) {
	dir := t.TempDir()
	seq, err := NewEntrySequence(filepath.Join(dir, "does-not-exist.json"), 42)
	if err != nil {
		t.Fatal(err)
	}
	n, err := seq.Next()
	if err != nil {
		t.Fatal(err)
	}
	if n != 42 {
		t.Fatalf("got %d, want 42", n)
	}
}
