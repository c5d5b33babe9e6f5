package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

type taskRepository struct {
	db *sqlx.DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *sqlx.DB) *taskRepository {
	return &taskRepository{db: db}
}

type taskRow struct {
	ID             string      `db:"id"`
	Title          string      `db:"title"`
	Description    null.String `db:"description"`
	ProjectID      string      `db:"project_id"`
	AssignedToID   string      `db:"assigned_to_id"`
	CreatedByID    string      `db:"created_by_id"`
	Status         string      `db:"status"`
	Priority       int         `db:"priority"`
	DueDate        time.Time   `db:"due_date"`
	CompletionDate null.Time   `db:"completion_date"`
	CreatedAt      null.Time   `db:"created_at"`
	UpdatedAt      null.Time   `db:"updated_at"`
}

func (repo taskRepository) pack(t task.Task) taskRow {
	row := taskRow{
		ID:           t.ID,
		Title:        t.Title,
		Description:  null.NewString(t.Description, t.Description != ""),
		ProjectID:    t.ProjectID,
		AssignedToID: t.AssignedToID,
		CreatedByID:  t.CreatedByID,
		Status:       t.Status,
		Priority:     t.Priority,
		DueDate:      t.DueDate.UTC(),
		CreatedAt:    null.NewTime(t.CreatedAt.UTC(), !t.CreatedAt.IsZero()),
		UpdatedAt:    null.NewTime(t.UpdatedAt.UTC(), !t.UpdatedAt.IsZero()),
	}
	if t.CompletionDate != nil {
		row.CompletionDate = null.TimeFrom(t.CompletionDate.UTC())
	}
	return row
}

func (repo taskRepository) unpack(row taskRow) task.Task {
	return task.Task{
		ID:             row.ID,
		Title:          row.Title,
		Description:    row.Description.String,
		ProjectID:      row.ProjectID,
		AssignedToID:   row.AssignedToID,
		CreatedByID:    row.CreatedByID,
		Status:         row.Status,
		Priority:       row.Priority,
		DueDate:        row.DueDate,
		CompletionDate: row.CompletionDate.Ptr(),
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

func (repo taskRepository) unpackSlice(rows []taskRow) []task.Task {
	tasks := make([]task.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, repo.unpack(row))
	}
	return tasks
}

// trapNoRowsErr maps psql "no rows" err to task.ErrNotFound
func (repo taskRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return task.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo taskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	t.ID = uuid.New().String()
	row := repo.pack(t)

	q := `
INSERT INTO task (id, title, description, project_id, assigned_to_id, created_by_id, status, priority, due_date,
                  completion_date, created_at, updated_at)
VALUES (:id, :title, :description, :project_id, :assigned_to_id, :created_by_id, :status, :priority, :due_date,
        :completion_date, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), q, row); err != nil {
		return task.Task{}, errors.Wrap(err, "inserting task")
	}
	return t, nil
}

func (repo taskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return task.Task{}, task.ErrNotFound
	}

	var row taskRow
	if err := getExec(repo.db, exec).GetContext(ctx, &row, `SELECT * FROM task WHERE id = $1`, id); err != nil {
		return task.Task{}, repo.trapNoRowsErr(err, "finding task")
	}
	return repo.unpack(row), nil
}

func (repo taskRepository) QueryTasks(ctx context.Context, filter *task.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]task.Task, error) {
	q := `SELECT t.* FROM task t JOIN project p ON p.id = t.project_id`
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		// tasks assigned to the viewer, or of projects they created
		if filter.ViewerID != "" {
			p := arg(filter.ViewerID)
			conds = append(conds, fmt.Sprintf("(t.assigned_to_id = %[1]s OR p.creator_id = %[1]s)", p))
		}
		if filter.ProjectID != "" {
			conds = append(conds, fmt.Sprintf("t.project_id = %s", arg(filter.ProjectID)))
		}
		if filter.Status != "" {
			conds = append(conds, fmt.Sprintf("t.status = %s", arg(filter.Status)))
		}
		if filter.AssignedToID != "" {
			conds = append(conds, fmt.Sprintf("t.assigned_to_id = %s", arg(filter.AssignedToID)))
		}
		if filter.Overdue {
			conds = append(conds, fmt.Sprintf("t.status = ANY (%s)", arg(pq.Array(task.OpenStatuses))))
			conds = append(conds, fmt.Sprintf("t.due_date < %s", arg(filter.OverdueAsOf.UTC())))
		}
	}
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) == 0 {
		ordering = task.DefaultOrdering()
	}
	q += orderBy(ordering, "t.")

	var rows []taskRow
	if err := getExec(repo.db, exec).SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	return repo.unpackSlice(rows), nil
}

func (repo taskRepository) UpdateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	row := repo.pack(t)

	q := `
UPDATE task
SET title           = :title,
    description     = :description,
    assigned_to_id  = :assigned_to_id,
    status          = :status,
    priority        = :priority,
    due_date        = :due_date,
    completion_date = :completion_date,
    updated_at      = :updated_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), q, row)
	if err != nil {
		return task.Task{}, errors.Wrap(err, "updating task")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

// DeleteTask deletes the task; its notifications follow via FK.
func (repo taskRepository) DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `DELETE FROM task WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting task")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (repo taskRepository) QueryOpenDueBetween(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]task.Task, error) {
	q := `
SELECT *
FROM task
WHERE status = ANY ($1)
  AND due_date BETWEEN $2 AND $3
ORDER BY due_date, priority DESC`
	var rows []taskRow
	if err := getExec(repo.db, exec).SelectContext(ctx, &rows, q, pq.Array(task.OpenStatuses), from.UTC(), to.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying open tasks")
	}
	return repo.unpackSlice(rows), nil
}

func (repo taskRepository) QueryAssignedDueInPeriod(ctx context.Context, userID string, start, end time.Time, exec ...core.DBExecutor) ([]task.Task, error) {
	q := `
SELECT *
FROM task
WHERE assigned_to_id = $1
  AND due_date BETWEEN $2 AND $3
ORDER BY due_date, priority DESC`
	var rows []taskRow
	if err := getExec(repo.db, exec).SelectContext(ctx, &rows, q, userID, start.UTC(), end.UTC()); err != nil {
		return nil, errors.Wrap(err, "querying assigned tasks")
	}
	return repo.unpackSlice(rows), nil
}
