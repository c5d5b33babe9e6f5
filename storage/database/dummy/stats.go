package dummydb

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/stats"
)

type statsRepository struct {
	db *DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *DB) *statsRepository {
	return &statsRepository{db: db}
}

// periodKey is the unique (user, period_start, period_end) key.
func periodKey(userID string, start, end time.Time) string {
	return fmt.Sprintf("%s|%d|%d", userID, start.Unix(), end.Unix())
}

func (repo *statsRepository) GetOrCreateStatistics(ctx context.Context, userID string, start, end time.Time, exec ...core.DBExecutor) (stats.TaskStatistics, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := periodKey(userID, start, end)
	if s, ok := repo.db.stats[key]; ok {
		return *s, nil
	}
	s := stats.TaskStatistics{
		ID:          uuid.New().String(),
		UserID:      userID,
		PeriodStart: start,
		PeriodEnd:   end,
	}
	repo.db.stats[key] = &s
	return s, nil
}

func (repo *statsRepository) UpdateStatistics(ctx context.Context, s stats.TaskStatistics, exec ...core.DBExecutor) (stats.TaskStatistics, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := periodKey(s.UserID, s.PeriodStart, s.PeriodEnd)
	if _, ok := repo.db.stats[key]; !ok {
		return stats.TaskStatistics{}, stats.ErrNotFound
	}
	repo.db.stats[key] = &s
	return s, nil
}

func (repo *statsRepository) QueryPeriodStatistics(ctx context.Context, start, end time.Time, role string, exec ...core.DBExecutor) ([]stats.TaskStatistics, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]stats.TaskStatistics, 0)
	for _, s := range repo.db.stats {
		if !s.PeriodStart.Equal(start) || !s.PeriodEnd.Equal(end) {
			continue
		}
		if role != "" {
			usr, ok := repo.db.users[s.UserID]
			if !ok || usr.Role != role {
				continue
			}
		}
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].UserID < res[j].UserID })
	return res, nil
}

// Count returns the number of stored snapshots; test helper.
func (repo *statsRepository) Count() int {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return len(repo.db.stats)
}
