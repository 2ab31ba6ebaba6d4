// Package store implements the Flush Worker described in spec.md §4.5: it
// owns at most one database connection, maintains the destination table's
// schema, and batch-inserts ScanRecords read from the spool with
// PK-collision-based duplicate absorption.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/qustavo/sqlhooks/v2"

	_ "github.com/go-sql-driver/mysql"
)

func init() {
	sql.Register("sqlite3WithHooks", sqlhooks.Wrap(&sqlite3.SQLiteDriver{}, &Hooks{}))
}

// Connect opens a *sqlx.DB for driver/dsn, applying the per-driver pool
// tuning the teacher uses in dbConnection.go. It does not ping — callers
// treat any later query failure as "no connection" per spec.md §4.5 step 1.
func Connect(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case "sqlite3":
		db, err := sqlx.Open("sqlite3WithHooks", fmt.Sprintf("%s?_foreign_keys=on", dsn))
		if err != nil {
			return nil, fmt.Errorf("open sqlite3: %w", err)
		}
		// sqlite3 does not support concurrent writers; a single connection
		// avoids contending for the database's own lock.
		db.SetMaxOpenConns(1)
		return db, nil

	case "mysql":
		db, err := sqlx.Open("mysql", fmt.Sprintf("%s?multiStatements=true", dsn))
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
		return db, nil

	case "postgres":
		db, err := sqlx.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetConnMaxLifetime(3 * time.Minute)
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
		return db, nil

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
