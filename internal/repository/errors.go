// Package repository defines error types that are reused across the SQL,
// MongoDB and Redis stores.  These sentinel values allow the service layer
// to tell a missing record from a uniqueness violation without knowing
// which backend produced the error.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when a lookup by id or unique key matches nothing.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique index, such as a
// second user with the same username or email.
var ErrDuplicate = errors.New("duplicate key")

// mysqlDuplicateEntry is MySQL's ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate recognises unique violations from every backend we talk to.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	// sqlite: "UNIQUE constraint failed: users.email"
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
