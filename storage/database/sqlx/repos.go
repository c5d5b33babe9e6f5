// Package sqlxrepos implements the repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
)

// executor abstracts *sqlx.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var (
	_ executor = (*sqlx.DB)(nil)
	_ executor = (*sqlx.Tx)(nil)
)

// getExec prefers the transaction handed down by the service (via
// core.AtomicRunner) over the repository's own pool.
func getExec(def executor, svcExec []core.DBExecutor) executor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		if exe, ok := svcExec[0].(executor); ok {
			return exe
		}
	}
	return def
}

func orderBy(ordering []core.DBOrdering, prefix string) string {
	if len(ordering) == 0 {
		return ""
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, prefix+ord.String())
	}
	return " ORDER BY " + strings.Join(orderList, ", ")
}

// AtomicRunner satisfies core.AtomicRunner; fn runs within a single
// transaction that is rolled back when fn errors.
type AtomicRunner struct {
	db *sqlx.DB
}

var _ core.AtomicRunner = (*AtomicRunner)(nil)

func NewAtomicRunner(db *sqlx.DB) *AtomicRunner {
	return &AtomicRunner{db: db}
}

func (r *AtomicRunner) Atomic(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(rbErr, "rolling back transaction")
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
