package spool

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// OffsetStore persists the byte offset the Flush Worker has committed, as
// plain ASCII decimal in a sibling file, rewritten atomically via
// temp-file-and-rename. Missing file reads as offset 0, per spec.md §4.4.
// Only the Flush task ever writes this file (spec.md §5).
type OffsetStore struct {
	path string
}

func NewOffsetStore(path string) *OffsetStore {
	return &OffsetStore{path: path}
}

// Load returns the last committed offset, or 0 if the file is absent.
func (o *OffsetStore) Load() (int64, error) {
	raw, err := os.ReadFile(o.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read offset file %s: %w", o.path, err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return 0, nil
	}

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse offset file %s: %w", o.path, err)
	}
	return n, nil
}

// Save persists offset atomically. Callers (the Flush Worker) are
// responsible for never calling Save with a value smaller than the
// previous one — offset monotonicity is a property of the call sequence,
// not enforced here, since the worker always computes new_offset forward
// from the previous Load.
func (o *OffsetStore) Save(offset int64) error {
	tmp := o.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(strconv.FormatInt(offset, 10)), 0o644); err != nil {
		return fmt.Errorf("write temp offset file: %w", err)
	}
	if err := os.Rename(tmp, o.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename offset file: %w", err)
	}
	if err := dirFsync(o.path); err != nil {
		return fmt.Errorf("fsync offset directory: %w", err)
	}
	return nil
}
