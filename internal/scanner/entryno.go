package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// entryNoState is the on-disk shape of the state file: JSON
// {"last_entry_no": <int>}, per spec.md §6.
type entryNoState struct {
	LastEntryNo int32 `json:"last_entry_no"`
}

// EntrySequence hands out monotonically increasing EntryNo values for one
// device, persisting the high-water mark to path via temp-file-and-rename
// so a crash never loses or rewinds it. It is only ever touched by the
// Scanner task (spec.md §5), so it needs no internal locking beyond
// guarding against accidental concurrent use from tests.
type EntrySequence struct {
	mu   sync.Mutex
	path string
	next int32
}

// NewEntrySequence loads path if present, otherwise seeds the sequence at
// startingEntryNo (spec.md §6 `Starting_entry_no`).
func NewEntrySequence(path string, startingEntryNo int32) (*EntrySequence, error) {
	seq := &EntrySequence{path: path, next: startingEntryNo}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seq, nil
		}
		return nil, fmt.Errorf("read entry-no state file: %w", err)
	}

	var state entryNoState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("parse entry-no state file %s: %w", path, err)
	}
	seq.next = state.LastEntryNo + 1
	return seq, nil
}

// Next returns the next EntryNo and persists it before returning, so a
// crash immediately after Next never reuses an EntryNo that may already
// have reached the spool. See DESIGN.md for why persistence happens
// before the spool append rather than after (spec.md §9 open question).
func (s *EntrySequence) Next() (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next
	if err := s.persist(n); err != nil {
		return 0, err
	}
	s.next = n + 1
	return n, nil
}

func (s *EntrySequence) persist(lastEntryNo int32) error {
	raw, err := json.Marshal(entryNoState{LastEntryNo: lastEntryNo})
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".entryno-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp entry-no file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp entry-no file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp entry-no file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp entry-no file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename entry-no file: %w", err)
	}

	if dirFile, err := os.Open(dir); err == nil {
		dirFile.Sync()
		dirFile.Close()
	}

	return nil
}
