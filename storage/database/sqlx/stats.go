package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/stats"
)

type statsRepository struct {
	db *sqlx.DB
}

var _ stats.Repository = (*statsRepository)(nil) // interface compliance check

func NewStatsRepository(db *sqlx.DB) *statsRepository {
	return &statsRepository{db: db}
}

type statsRow struct {
	ID              string    `db:"id"`
	UserID          string    `db:"user_id"`
	PeriodStart     time.Time `db:"period_start"`
	PeriodEnd       time.Time `db:"period_end"`
	TotalTasks      int       `db:"total_tasks"`
	CompletedTasks  int       `db:"completed_tasks"`
	CompletedOnTime int       `db:"completed_on_time"`
	CompletionRate  float64   `db:"completion_rate"`
	OnTimeRate      float64   `db:"on_time_rate"`
	BonusAmount     int       `db:"bonus_amount"`
}

func (repo statsRepository) pack(s stats.TaskStatistics) statsRow {
	return statsRow{
		ID:              s.ID,
		UserID:          s.UserID,
		PeriodStart:     s.PeriodStart.UTC(),
		PeriodEnd:       s.PeriodEnd.UTC(),
		TotalTasks:      s.TotalTasks,
		CompletedTasks:  s.CompletedTasks,
		CompletedOnTime: s.CompletedOnTime,
		CompletionRate:  s.CompletionRate,
		OnTimeRate:      s.OnTimeRate,
		BonusAmount:     s.BonusAmount,
	}
}

func (repo statsRepository) unpack(row statsRow) stats.TaskStatistics {
	return stats.TaskStatistics{
		ID:              row.ID,
		UserID:          row.UserID,
		PeriodStart:     row.PeriodStart,
		PeriodEnd:       row.PeriodEnd,
		TotalTasks:      row.TotalTasks,
		CompletedTasks:  row.CompletedTasks,
		CompletedOnTime: row.CompletedOnTime,
		CompletionRate:  row.CompletionRate,
		OnTimeRate:      row.OnTimeRate,
		BonusAmount:     row.BonusAmount,
	}
}

func (repo statsRepository) GetOrCreateStatistics(ctx context.Context, userID string, start, end time.Time, exec ...core.DBExecutor) (stats.TaskStatistics, error) {
	exe := getExec(repo.db, exec)

	q := `
INSERT INTO task_statistics (id, user_id, period_start, period_end)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, period_start, period_end) DO NOTHING`
	if _, err := exe.ExecContext(ctx, q, uuid.New().String(), userID, start.UTC(), end.UTC()); err != nil {
		return stats.TaskStatistics{}, errors.Wrap(err, "upserting statistics")
	}

	var row statsRow
	q = `SELECT * FROM task_statistics WHERE user_id = $1 AND period_start = $2 AND period_end = $3`
	if err := exe.GetContext(ctx, &row, q, userID, start.UTC(), end.UTC()); err != nil {
		return stats.TaskStatistics{}, errors.Wrap(err, "finding statistics")
	}
	return repo.unpack(row), nil
}

func (repo statsRepository) UpdateStatistics(ctx context.Context, s stats.TaskStatistics, exec ...core.DBExecutor) (stats.TaskStatistics, error) {
	row := repo.pack(s)

	q := `
UPDATE task_statistics
SET total_tasks       = :total_tasks,
    completed_tasks   = :completed_tasks,
    completed_on_time = :completed_on_time,
    completion_rate   = :completion_rate,
    on_time_rate      = :on_time_rate,
    bonus_amount      = :bonus_amount
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), q, row)
	if err != nil {
		return stats.TaskStatistics{}, errors.Wrap(err, "updating statistics")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return stats.TaskStatistics{}, stats.ErrNotFound
	}
	return s, nil
}

func (repo statsRepository) QueryPeriodStatistics(ctx context.Context, start, end time.Time, role string, exec ...core.DBExecutor) ([]stats.TaskStatistics, error) {
	q := `
SELECT ts.*
FROM task_statistics ts
         JOIN "user" u ON u.id = ts.user_id
WHERE ts.period_start = $1
  AND ts.period_end = $2
  AND ($3 = '' OR u.role = $3)
ORDER BY ts.user_id`
	var rows []statsRow
	if err := getExec(repo.db, exec).SelectContext(ctx, &rows, q, start.UTC(), end.UTC(), role); err != nil {
		return nil, errors.Wrap(err, "querying statistics")
	}
	res := make([]stats.TaskStatistics, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.unpack(row))
	}
	return res, nil
}
