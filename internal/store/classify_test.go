package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/scanhub-edge/internal/model"
)

func openTestDB(t *testing.T) *Worker {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db")

	db, err := Connect("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ensureTableExists(db, "sqlite3", "scans")
	return &Worker{Driver: "sqlite3", Table: "scans", db: db}
}

func sampleRecord(deviceID string, entryNo int32) *model.ScanRecord {
	return &model.ScanRecord{
		DeviceID: deviceID,
		EntryNo:  entryNo,
		Barcode:  "abc123",
		ScanDate: "2026-07-30",
		ScanTime: "10:00:00",
	}
}

func TestEnsureTableExistsCreatesTable(t *testing.T) {
	w := openTestDB(t)

	var count int
	err := w.db.Get(&count, "SELECT count(*) FROM scans")
	require.NoError(t, err, "expected table scans to exist")
}

func TestEnsureTableExistsAddsScannerNameToLegacyTable(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "legacy.db")
	db, err := Connect("sqlite3", dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE scans (
		DeviceID TEXT NOT NULL,
		EntryNo INTEGER NOT NULL,
		Barcode TEXT,
		PRIMARY KEY (DeviceID, EntryNo)
	)`)
	require.NoError(t, err)

	ensureTableExists(db, "sqlite3", "scans")

	_, err = db.Exec(`INSERT INTO scans (DeviceID, EntryNo, Barcode, ScannerName) VALUES ('D1', 1, 'x', 'scanner0')`)
	require.NoError(t, err, "ScannerName column should have been added to the legacy table")
}

func TestInsertBatchThenDuplicateRaisesIntegrityError(t *testing.T) {
	w := openTestDB(t)

	records := []*model.ScanRecord{sampleRecord("D1", 1), sampleRecord("D1", 2)}
	require.NoError(t, w.insertBatch(records), "first insert")

	err := w.insertBatch(records)
	require.Error(t, err, "expected a PK violation on re-insert")
	assert.True(t, isIntegrityError(err), "expected an integrity error, got %v", err)
}

// S5 — duplicate absorption: a batch partially already committed must
// insert only the genuinely new rows and still commit.
func TestInsertRowByRowAbsorbsDuplicates(t *testing.T) {
	w := openTestDB(t)

	first := []*model.ScanRecord{sampleRecord("D1", 1), sampleRecord("D1", 2)}
	require.NoError(t, w.insertBatch(first))

	replay := []*model.ScanRecord{sampleRecord("D1", 1), sampleRecord("D1", 2), sampleRecord("D1", 3)}
	require.NoError(t, w.insertRowByRow(context.Background(), replay), "row-by-row recovery")

	var count int
	require.NoError(t, w.db.Get(&count, "SELECT count(*) FROM scans"))
	assert.Equal(t, 3, count, "want 2 originals + 1 new, duplicates absorbed")
}

func TestIsIntegrityErrorFalseForNil(t *testing.T) {
	assert.False(t, isIntegrityError(nil))
}
