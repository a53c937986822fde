// Package sqlxrepos implements the core repositories over jmoiron/sqlx.
// Queries are written with `?` placeholders and rebound for the connected driver,
// so the same code serves postgres and sqlite.
package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// trapNoRowsErr swaps sql.ErrNoRows for the repository's not found error.
func trapNoRowsErr(err error, notFound error) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23505"
	case *sqlite.Error:
		return e.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	switch e := errors.Cause(err).(type) {
	case *pq.Error:
		return e.Code == "23503"
	case *sqlite.Error:
		return e.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// affected returns notFound when res touched no row.
func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// insertReturningID runs an INSERT ... RETURNING id statement.
func insertReturningID(ctx context.Context, q sqlx.ExtContext, query string, args ...interface{}) (int, error) {
	var id int
	err := sqlx.GetContext(ctx, q, &id, q.Rebind(query), args...)
	return id, err
}
