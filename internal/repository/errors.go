// Package repository holds the MySQL implementations of the seat
// inventory, the unit of work and the read-side stores.  Conditional
// UPDATE statements carry the seat state machine: a statement that
// affects no row is the losing side of a race and is reported with the
// inventory package's outcome errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate row")

// mysqlErrDuplicateEntry is ER_DUP_ENTRY.
const mysqlErrDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrDuplicateEntry
}
