// Package dbpkg provides helpers to make db initialization and error handling easier.
package dbpkg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Postgres error codes that mean the statement lost a race against another transaction.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
)

// Setup sets up connection with database.
func Setup(driver, source string) (*sql.DB, error) {
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

// SQLInterface provides neccessary db methods to perform queries.
//
// Both *sql.DB and *sql.Tx satisfy it.
type SQLInterface interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// IsConcurrencyConflict reports whether err is a retryable lock or serialization failure.
func IsConcurrencyConflict(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch pqErr.Code {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}

	return false
}

// Constraint returns the violated constraint name and the class of the violation.
//
// kind is one of "unique", "foreign_key", "check" or "" when err is not a constraint violation.
func Constraint(err error) (name, kind string) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return "", ""
	}

	switch pqErr.Code {
	case codeUniqueViolation:
		return pqErr.Constraint, "unique"
	case codeForeignKeyViolation:
		return pqErr.Constraint, "foreign_key"
	case codeCheckViolation:
		return pqErr.Constraint, "check"
	}

	return "", ""
}
