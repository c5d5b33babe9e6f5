// Package dummydb provides in-memory repositories used in tests and local
// hacking; the real implementations live in the sqlx package.
package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/project"
	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex

		users         map[string]*user.User
		projects      map[string]*project.Project
		tasks         map[string]*task.Task
		notifications map[string]*notification.Notification
		stats         map[string]*stats.TaskStatistics // keyed by (user, period) key
	}
)

func Open() (*DB, error) {
	db := &DB{
		users:         make(map[string]*user.User),
		projects:      make(map[string]*project.Project),
		tasks:         make(map[string]*task.Task),
		notifications: make(map[string]*notification.Notification),
		stats:         make(map[string]*stats.TaskStatistics),
	}
	return db, nil
}

// Atomic satisfies core.AtomicRunner; there is no real transaction to run
// in, fn simply executes against the store.
func (db *DB) Atomic(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

var _ core.AtomicRunner = (*DB)(nil)
