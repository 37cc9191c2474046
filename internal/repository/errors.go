// Package repository holds the MySQL data access layer.  Every repository
// wraps a *sqlx.DB; methods with a Tx suffix run on a caller supplied
// transaction and never commit or roll it back themselves.
//
// Failures that callers are expected to branch on are reported through the
// sentinel values below.  Anything else is a driver error passed through
// with context.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key,
// such as a second account with the same email.
var ErrDuplicate = errors.New("duplicate key")

// ErrInsufficientStock is returned by the conditional stock decrement when
// the product no longer holds the requested quantity.
var ErrInsufficientStock = errors.New("insufficient stock")

// isDuplicate reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(err.Error(), "1062")
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
