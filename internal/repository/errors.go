// Package repository defines the data access layer for the venue entities
// and the error values shared across repositories.  Driver errors are
// translated into these sentinels at the repository boundary so that
// services and handlers never inspect MySQL or SQLite error codes.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a primary key lookup or update matches no row.
var ErrNotFound = errors.New("not found")

// ErrUniquenessViolation is returned when an insert or update collides with
// a unique column (username, email, name, box id).
var ErrUniquenessViolation = errors.New("uniqueness violation")

// ErrReferenceNotFound is returned when a foreign key points at a row that
// does not exist.
var ErrReferenceNotFound = errors.New("reference not found")

// ErrAlreadyReleased is returned when releasing a storage record whose
// time_out is already set.
var ErrAlreadyReleased = errors.New("already released")

// ErrBoxOccupied is returned when the exclusive box policy is enabled and
// the box still holds an unreleased item.
var ErrBoxOccupied = errors.New("box occupied")

// ErrConflict is returned when a delete cannot proceed because other rows
// still reference the target.  Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// MySQL server error numbers.
const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

type op int

const (
	opRead op = iota
	opWrite
	opDelete
)

// classify maps driver errors onto the sentinels above.  what names the
// entity for the error message.
func classify(err error, o op, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	switch {
	case isDuplicate(err):
		return fmt.Errorf("%s: %w", what, ErrUniquenessViolation)
	case isForeignKey(err) && o == opDelete:
		return fmt.Errorf("%s is still referenced: %w", what, ErrConflict)
	case isForeignKey(err):
		return fmt.Errorf("%s: %w", what, ErrReferenceNotFound)
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDupEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKey(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlNoReferencedRow || me.Number == mysqlRowIsReferenced
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
