package store

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// isIntegrityError reports whether err is a primary-key (or other
// constraint) violation from one of the three supported drivers. These
// are the "IntegrityError" class from spec.md §4.5 step 7: expected when
// replaying a batch whose offset was never checkpointed, and the trigger
// for the duplicate-absorbing row-by-row retry.
func isIntegrityError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		// 1062 = ER_DUP_ENTRY
		return mysqlErr.Number == 1062
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// 23505 = unique_violation in the class-23 (integrity constraint
		// violation) family.
		return pqErr.Code.Class() == "23"
	}

	return false
}
