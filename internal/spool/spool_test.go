package spool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ClusterCockpit/scanhub-edge/internal/model"
)

func TestWriterAppendAndReadBatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.jsonl")

	w, err := OpenWriter(path)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for i := int32(1); i <= 3; i++ {
		rec := &model.ScanRecord{DeviceID: "D1", EntryNo: i, Barcode: "abc"}
		if err := w.Append(rec); err != nil {
			t.Fatal(err)
		}
	}

	batch, err := ReadBatch(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Records) != 3 {
		t.Fatalf("got %d records, want 3", len(batch.Records))
	}
	if batch.NewOffset == 0 {
		t.Fatal("expected non-zero new offset")
	}

	size, err := w.Size()
	if err != nil {
		t.Fatal(err)
	}
	if batch.NewOffset != size {
		t.Fatalf("new offset %d should equal file size %d after full drain", batch.NewOffset, size)
	}
}

// S6 — Poison line.
func TestReadBatchSkipsPoisonLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.jsonl")

	content := "{\"DeviceID\":\"D1\",\"EntryNo\":1}\n{not json\n{\"DeviceID\":\"D1\",\"EntryNo\":3}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	batch, err := ReadBatch(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(batch.Records))
	}
	if batch.SkippedLines != 1 {
		t.Fatalf("got %d skipped lines, want 1", batch.SkippedLines)
	}
	if batch.Records[0].EntryNo != 1 || batch.Records[1].EntryNo != 3 {
		t.Fatalf("unexpected records: %+v", batch.Records)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if batch.NewOffset != info.Size() {
		t.Fatalf("offset %d should advance past the poison line to file size %d", batch.NewOffset, info.Size())
	}
}

func TestReadBatchSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.jsonl")
	content := "\n{\"DeviceID\":\"D1\",\"EntryNo\":1}\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	batch, err := ReadBatch(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Records) != 1 {
		t.Fatalf("got %d records, want 1", len(batch.Records))
	}
	if batch.SkippedLines != 2 {
		t.Fatalf("got %d skipped, want 2 (two blank lines)", batch.SkippedLines)
	}
}

func TestReadBatchLeavesIncompleteTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.jsonl")
	content := "{\"DeviceID\":\"D1\",\"EntryNo\":1}\n{\"DeviceID\":\"D1\",\"EntryNo\":2}"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	batch, err := ReadBatch(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Records) != 1 {
		t.Fatalf("got %d records, want 1 (trailing line has no newline yet)", len(batch.Records))
	}
}

func TestReadBatchMissingFileReturnsEmpty(t *testing.T) {
	batch, err := ReadBatch(filepath.Join(t.TempDir(), "does-not-exist.jsonl"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Records) != 0 || batch.NewOffset != 0 {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}

func TestOffsetStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spool.jsonl.offset")
	store := NewOffsetStore(path)

	n, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("missing offset file should read as 0, got %d", n)
	}

	if err := store.Save(123); err != nil {
		t.Fatal(err)
	}
	n, err = store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if n != 123 {
		t.Fatalf("got %d, want 123", n)
	}
}
