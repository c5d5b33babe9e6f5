package core

import (
	"context"
	"database/sql"
	"fmt"
)

type (
	// DBExecutor can execute queries against a DB connection, pool or
	// transaction.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
	}

	// AtomicRunner runs fn within one transaction; the DBExecutor handed to
	// fn must be used for every query so that a state mutation and its
	// consequential writes succeed or fail together.
	AtomicRunner interface {
		Atomic(ctx context.Context, fn func(exec DBExecutor) error) error
	}

	// DBOrdering is an (ORDER BY) field-direction pair.
	DBOrdering struct {
		Field string
		Desc  bool
	}
)

func (o DBOrdering) String() string {
	dir := "ASC"
	if o.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s", o.Field, dir)
}
