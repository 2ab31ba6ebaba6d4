// Package spool implements the crash-safe, append-only durability buffer
// between the Scanner task and the Flush Worker described in spec.md
// §4.4: a line-delimited, fsync'd JSON log plus a sibling byte-offset
// file advanced only by the reader side.
package spool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ClusterCockpit/scanhub-edge/internal/model"
)

// Writer appends ScanRecords to a single spool file. It is not safe for
// concurrent use — spec.md assumes a single producer thread (the Scanner
// task).
type Writer struct {
	path string
	f    *os.File
}

// OpenWriter opens (creating if necessary) the spool file in append mode.
func OpenWriter(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open spool file %s: %w", path, err)
	}
	return &Writer{path: path, f: f}, nil
}

// Append serializes rec as one JSON line, writes it, flushes and fsyncs
// before returning — the line is durable on disk by the time Append
// returns control to the Assembler, per spec.md §3's invariant.
func (w *Writer) Append(rec *model.ScanRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal scan record: %w", err)
	}
	raw = append(raw, '\n')

	if _, err := w.f.Write(raw); err != nil {
		return fmt.Errorf("write spool line: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("fsync spool file: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (w *Writer) Close() error {
	return w.f.Close()
}

// Path reports the file this writer appends to, for operational tooling.
func (w *Writer) Path() string {
	return w.path
}

// Size returns the current length of the spool file, e.g. for comparing
// against the persisted offset to decide whether a flush iteration has
// fully drained the backlog.
func (w *Writer) Size() (int64, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// dirFsync fsyncs the parent directory of path. Some filesystems require
// this for a preceding rename to be durable across a crash, per spec.md
// §9 DESIGN NOTES.
func dirFsync(path string) error {
	dir := filepath.Dir(path)
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
