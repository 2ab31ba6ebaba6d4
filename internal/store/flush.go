package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/time/rate"

	"github.com/ClusterCockpit/scanhub-edge/internal/ctxsleep"
	"github.com/ClusterCockpit/scanhub-edge/internal/metrics"
	"github.com/ClusterCockpit/scanhub-edge/internal/model"
	"github.com/ClusterCockpit/scanhub-edge/internal/ports"
	"github.com/ClusterCockpit/scanhub-edge/internal/spool"
	"github.com/ClusterCockpit/scanhub-edge/pkg/log"
)

// connectBackoff is the DB-retry sleep named in spec.md §4.5; the flush
// and heartbeat intervals come from the Worker's configuration.
const connectBackoff = 5 * time.Second

// rowByRowRateLimit caps the per-row Exec rate of the integrity-replay
// recovery path so a pathologically large colliding batch cannot busy-loop
// the database connection.
const rowByRowRateLimit = rate.Limit(200)

// Worker is the Flush Worker of spec.md §4.5: it owns at most one
// database connection, drains the spool from the last checkpointed
// offset, batch-inserts, commits, and advances the checkpoint.
type Worker struct {
	Driver string
	DSN    string
	Table  string

	SpoolPath string
	Offsets   *spool.OffsetStore

	FlushInterval     time.Duration
	HeartbeatInterval time.Duration

	Audio ports.AudioPort

	db             *sqlx.DB
	networkLostSet bool
	lastDBTouch    time.Time
}

// Run blocks until ctx is cancelled, implementing the loop body of spec.md
// §4.5 steps 1-8. Cancellation is observed between steps and during every
// sleep, so shutdown completes within the spec's ~5 second budget; any
// in-flight transaction from step 6/7 is always committed or rolled back
// before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	defer func() {
		if w.db != nil {
			w.db.Close()
			w.db = nil
		}
	}()

	offset, err := w.Offsets.Load()
	if err != nil {
		return fmt.Errorf("load spool offset: %w", err)
	}

	firstConnect := true
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if w.db == nil {
			if err := w.connect(); err != nil {
				log.Warnf("flush worker: connect failed: %v", err)
				w.signalNetworkLost()
				if !ctxsleep.Sleep(ctx, connectBackoff) {
					return ctx.Err()
				}
				continue
			}
			w.networkLostSet = false
			w.lastDBTouch = time.Now()
			if firstConnect {
				ensureTableExists(w.db, w.Driver, w.Table)
				firstConnect = false
			}
		}

		if !ctxsleep.Sleep(ctx, w.FlushInterval) {
			return ctx.Err()
		}

		batch, err := spool.ReadBatch(w.SpoolPath, offset)
		if err != nil {
			log.Errorf("flush worker: read spool: %v", err)
			continue
		}
		if batch.SkippedLines > 0 {
			log.Warnf("flush worker: skipped %d malformed/blank spool lines", batch.SkippedLines)
		}

		if len(batch.Records) == 0 {
			if time.Since(w.lastDBTouch) > w.HeartbeatInterval {
				if err := w.heartbeat(); err != nil {
					log.Warnf("flush worker: heartbeat failed: %v", err)
					w.closeOnError()
					w.signalNetworkLost()
					if !ctxsleep.Sleep(ctx, connectBackoff) {
						return ctx.Err()
					}
					continue
				}
				w.lastDBTouch = time.Now()
			}
			offset = batch.NewOffset
			if err := w.Offsets.Save(offset); err != nil {
				log.Errorf("flush worker: save offset: %v", err)
			}
			continue
		}

		metrics.BatchSize.Observe(float64(len(batch.Records)))

		if err := w.insertBatch(batch.Records); err != nil {
			if isIntegrityError(err) {
				log.Warnf("flush worker: integrity error on batch insert, retrying row-by-row: %v", err)
				if rerr := w.insertRowByRow(ctx, batch.Records); rerr != nil {
					log.Errorf("flush worker: row-by-row recovery failed: %v", rerr)
					w.closeOnError()
					w.signalNetworkLost()
					if !ctxsleep.Sleep(ctx, connectBackoff) {
						return ctx.Err()
					}
					continue
				}
				metrics.IntegrityRecoveriesTotal.Inc()
			} else {
				log.Errorf("flush worker: batch insert failed: %v", err)
				w.closeOnError()
				w.signalNetworkLost()
				if !ctxsleep.Sleep(ctx, connectBackoff) {
					return ctx.Err()
				}
				continue
			}
		}

		w.lastDBTouch = time.Now()
		offset = batch.NewOffset
		if err := w.Offsets.Save(offset); err != nil {
			log.Errorf("flush worker: save offset: %v", err)
		}
		metrics.SpoolOffsetBytes.Set(float64(offset))
		w.networkLostSet = false
	}
}

func (w *Worker) connect() error {
	db, err := Connect(w.Driver, w.DSN)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping: %w", err)
	}
	w.db = db
	return nil
}

func (w *Worker) closeOnError() {
	if w.db != nil {
		w.db.Close()
		w.db = nil
	}
}

func (w *Worker) signalNetworkLost() {
	if !w.networkLostSet {
		w.Audio.Enqueue("network_lost")
		w.networkLostSet = true
		metrics.DBOutagesTotal.Inc()
	}
}

func (w *Worker) heartbeat() error {
	_, err := w.db.Exec("SELECT 1")
	return err
}

// insertStmt is the named-parameter INSERT shared by insertBatch and
// insertRowByRow, built from model.Columns so both paths stay in sync
// with the struct's db tags. Table and column names are quoted the same
// way createTableSQL quotes them, so postgres sees the mixed-case names.
func insertStmt(driver, table string) string {
	cols := make([]string, len(model.Columns))
	placeholders := make([]string, len(model.Columns))
	for i, c := range model.Columns {
		cols[i] = quoteIdent(driver, c)
		placeholders[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(driver, table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
}

// insertBatch inserts every record in one transaction and commits once,
// per spec.md §4.5 step 6.
func (w *Worker) insertBatch(records []*model.ScanRecord) error {
	tx, err := w.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareNamed(insertStmt(w.Driver, w.Table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// insertRowByRow is the duplicate-absorbing recovery path of spec.md §4.5
// step 7: retry the same batch one row at a time, silently skipping any
// row whose insert raises an IntegrityError (a PK collision from a prior
// successful but un-checkpointed commit), then commit once. The limiter
// bounds how fast a batch made entirely of collisions can hammer the
// connection.
func (w *Worker) insertRowByRow(ctx context.Context, records []*model.ScanRecord) error {
	tx, err := w.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	stmt, err := tx.PrepareNamed(insertStmt(w.Driver, w.Table))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	// A failed statement aborts a whole postgres transaction, so each row
	// gets a savepoint there that a collision is rolled back to.
	savepoints := w.Driver == "postgres"
	limiter := rate.NewLimiter(rowByRowRateLimit, 1)
	for _, rec := range records {
		if err := limiter.Wait(ctx); err != nil {
			tx.Rollback()
			return err
		}
		if savepoints {
			if _, err := tx.Exec("SAVEPOINT replay_row"); err != nil {
				tx.Rollback()
				return err
			}
		}
		if _, err := stmt.Exec(rec); err != nil {
			if isIntegrityError(err) {
				if savepoints {
					if _, err := tx.Exec("ROLLBACK TO SAVEPOINT replay_row"); err != nil {
						tx.Rollback()
						return err
					}
				}
				continue
			}
			tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
