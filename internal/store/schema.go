package store

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/ClusterCockpit/scanhub-edge/pkg/log"
)

// ensureTableExists implements spec.md §4.5 step 2: probe for the
// configured table in a driver-appropriate way, create it if missing, and
// add the ScannerName column to a pre-existing (legacy) table that lacks
// it. Errors are logged and swallowed — schema maintenance must never
// block ingest.
func ensureTableExists(db *sqlx.DB, driver, table string) {
	exists, columns, err := probeTable(db, driver, table)
	if err != nil {
		log.Errorf("probe table %s: %v", table, err)
		return
	}

	if !exists {
		if _, err := db.Exec(createTableSQL(driver, table)); err != nil {
			log.Errorf("create table %s: %v", table, err)
		}
		return
	}

	if !columns["ScannerName"] {
		if _, err := db.Exec(addScannerNameColumnSQL(driver, table)); err != nil {
			log.Errorf("add ScannerName column to %s: %v", table, err)
		}
	}
}

// probeTable reports whether table exists and, if so, which columns it
// currently has. sqlite3 is probed via PRAGMA table_info; mysql/postgres
// via information_schema, built with squirrel so the table name (which is
// configuration, not a compile-time constant) is parameterized safely.
func probeTable(db *sqlx.DB, driver, table string) (exists bool, columns map[string]bool, err error) {
	columns = map[string]bool{}

	if driver == "sqlite3" {
		rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(driver, table)))
		if err != nil {
			return false, nil, err
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			return false, nil, err
		}
		for rows.Next() {
			vals := make([]interface{}, len(cols))
			ptrs := make([]interface{}, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return false, nil, err
			}
			exists = true
			// column 1 is "name" in PRAGMA table_info's result shape.
			if name, ok := vals[1].(string); ok {
				columns[name] = true
			} else if b, ok := vals[1].([]byte); ok {
				columns[string(b)] = true
			}
		}
		return exists, columns, rows.Err()
	}

	query := sq.Select("column_name").
		From("information_schema.columns").
		Where(sq.Eq{"table_name": table})
	if driver == "postgres" {
		query = query.PlaceholderFormat(sq.Dollar)
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return false, nil, err
	}

	rows, err := db.Query(sqlStr, args...)
	if err != nil {
		return false, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, nil, err
		}
		exists = true
		columns[name] = true
	}
	return exists, columns, rows.Err()
}

func createTableSQL(driver, table string) string {
	ident := quoteIdent(driver, table)
	switch driver {
	case "sqlite3":
		return fmt.Sprintf(`CREATE TABLE %s (
			DeviceID TEXT NOT NULL,
			ScannerName TEXT,
			EntryNo INTEGER NOT NULL,
			Barcode TEXT,
			ScanDate TEXT,
			ScanTime TEXT,
			UserID TEXT,
			Stowage TEXT,
			FlightNo TEXT,
			OrderDate TEXT,
			DACS_CLASS TEXT,
			Leg TEXT,
			Gally TEXT,
			BlockNo TEXT,
			ContainerCode TEXT,
			DES TEXT,
			DACS_ACType TEXT,
			PRIMARY KEY (DeviceID, EntryNo)
		)`, ident)
	case "postgres":
		return fmt.Sprintf(`CREATE TABLE %s (
			"DeviceID" VARCHAR(64) NOT NULL,
			"ScannerName" VARCHAR(128),
			"EntryNo" INTEGER NOT NULL,
			"Barcode" TEXT,
			"ScanDate" VARCHAR(10),
			"ScanTime" VARCHAR(8),
			"UserID" VARCHAR(64),
			"Stowage" VARCHAR(64),
			"FlightNo" VARCHAR(64),
			"OrderDate" VARCHAR(10),
			"DACS_CLASS" VARCHAR(64),
			"Leg" VARCHAR(64),
			"Gally" VARCHAR(64),
			"BlockNo" VARCHAR(64),
			"ContainerCode" VARCHAR(64),
			"DES" VARCHAR(64),
			"DACS_ACType" VARCHAR(64),
			PRIMARY KEY ("DeviceID", "EntryNo")
		)`, ident)
	default: // mysql
		return fmt.Sprintf("CREATE TABLE %s ("+
			"DeviceID VARCHAR(64) NOT NULL, "+
			"ScannerName VARCHAR(128), "+
			"EntryNo INT NOT NULL, "+
			"Barcode TEXT, "+
			"ScanDate VARCHAR(10), "+
			"ScanTime VARCHAR(8), "+
			"UserID VARCHAR(64), "+
			"Stowage VARCHAR(64), "+
			"FlightNo VARCHAR(64), "+
			"OrderDate VARCHAR(10), "+
			"DACS_CLASS VARCHAR(64), "+
			"Leg VARCHAR(64), "+
			"Gally VARCHAR(64), "+
			"BlockNo VARCHAR(64), "+
			"ContainerCode VARCHAR(64), "+
			"DES VARCHAR(64), "+
			"DACS_ACType VARCHAR(64), "+
			"PRIMARY KEY (DeviceID, EntryNo)"+
			") ENGINE=InnoDB", ident)
	}
}

func addScannerNameColumnSQL(driver, table string) string {
	ident := quoteIdent(driver, table)
	switch driver {
	case "postgres":
		return fmt.Sprintf(`ALTER TABLE %s ADD COLUMN "ScannerName" VARCHAR(128)`, ident)
	case "mysql":
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN ScannerName VARCHAR(128)", ident)
	default: // sqlite3
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN ScannerName TEXT", ident)
	}
}

func quoteIdent(driver, table string) string {
	if driver == "postgres" {
		return `"` + table + `"`
	}
	return table
}
