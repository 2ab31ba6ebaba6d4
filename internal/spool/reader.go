package spool

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/ClusterCockpit/scanhub-edge/internal/model"
)

// Batch is the result of one read from the spool: every well-formed
// record found between the starting offset and EOF at the moment of the
// read, the new offset to persist (advanced past every line consumed,
// including blank and unparseable ones), and how many lines were skipped
// for being blank or malformed.
type Batch struct {
	Records      []*model.ScanRecord
	NewOffset    int64
	SkippedLines int
}

// ReadBatch opens path (if it exists), seeks to offset, and reads
// complete lines up to EOF. A final line with no trailing newline is left
// unconsumed — it may be a write still in flight — so NewOffset never
// advances past it. Lines that fail to parse as JSON are skipped (the
// caller logs this) but still advance NewOffset: a poison line must never
// block the pipeline, per spec.md §4.4.
func ReadBatch(path string, offset int64) (Batch, error) {
	batch := Batch{NewOffset: offset}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return batch, nil
		}
		return batch, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return batch, err
	}

	r := bufio.NewReader(f)
	pos := offset

	for {
		line, err := r.ReadString('\n')
		if err == io.EOF {
			// Incomplete trailing line (no newline yet): do not consume it.
			return batch, nil
		}
		if err != nil {
			return batch, err
		}

		pos += int64(len(line))
		text := strings.TrimRight(line, "\n")
		text = strings.TrimRight(text, "\r")
		trimmed := strings.TrimSpace(text)

		if trimmed == "" {
			batch.NewOffset = pos
			batch.SkippedLines++
			continue
		}

		var rec model.ScanRecord
		if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
			batch.NewOffset = pos
			batch.SkippedLines++
			continue
		}

		batch.Records = append(batch.Records, &rec)
		batch.NewOffset = pos
	}
}
