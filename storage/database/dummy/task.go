package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/task"
)

type taskRepository struct {
	db *DB
}

var _ task.Repository = (*taskRepository)(nil) // interface compliance check

func NewTaskRepository(db *DB) *taskRepository {
	return &taskRepository{db: db}
}

func (repo *taskRepository) query() []task.Task {
	tasks := make([]task.Task, 0, len(repo.db.tasks))
	for _, t := range repo.db.tasks {
		tasks = append(tasks, *t)
	}
	return tasks
}

func (repo *taskRepository) CreateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	t.ID = uuid.New().String()
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if t, ok := repo.db.tasks[id]; ok {
		return *t, nil
	}
	return task.Task{}, task.ErrNotFound
}

func (repo *taskRepository) QueryTasks(ctx context.Context, filter *task.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	visible := func(t task.Task) bool {
		if filter.ViewerID == "" {
			return true
		}
		if t.AssignedToID == filter.ViewerID {
			return true
		}
		if prj, ok := repo.db.projects[t.ProjectID]; ok && prj.CreatorID == filter.ViewerID {
			return true
		}
		return false
	}
	matches := func(t task.Task) bool {
		if filter.ProjectID != "" && t.ProjectID != filter.ProjectID {
			return false
		}
		if filter.Status != "" && t.Status != filter.Status {
			return false
		}
		if filter.AssignedToID != "" && t.AssignedToID != filter.AssignedToID {
			return false
		}
		if filter.Overdue && !t.IsOverdue(filter.OverdueAsOf) {
			return false
		}
		return true
	}

	res := make([]task.Task, 0)
	for _, t := range repo.query() {
		if visible(t) && matches(t) {
			res = append(res, t)
		}
	}
	sortTasks(res, ordering)
	return res, nil
}

func sortTasks(tasks []task.Task, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return
	}
	less := func(a, b task.Task, ord core.DBOrdering) (lt, eq bool) {
		switch ord.Field {
		case "title":
			return a.Title < b.Title, a.Title == b.Title
		case "due_date":
			return a.DueDate.Before(b.DueDate), a.DueDate.Equal(b.DueDate)
		case "created_at":
			return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
		case "priority":
			return a.Priority < b.Priority, a.Priority == b.Priority
		}
		return false, true
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		for _, ord := range ordering {
			lt, eq := less(tasks[i], tasks[j], ord)
			if eq {
				continue
			}
			if ord.Desc {
				return !lt
			}
			return lt
		}
		return false
	})
}

func (repo *taskRepository) UpdateTask(ctx context.Context, t task.Task, exec ...core.DBExecutor) (task.Task, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.tasks[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = orig.CreatedAt
	}
	repo.db.tasks[t.ID] = &t
	return t, nil
}

func (repo *taskRepository) DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.tasks[id]; !ok {
		return task.ErrNotFound
	}
	for nid, n := range repo.db.notifications {
		if n.RelatedTaskID == id {
			delete(repo.db.notifications, nid)
		}
	}
	delete(repo.db.tasks, id)
	return nil
}

func (repo *taskRepository) QueryOpenDueBetween(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]task.Task, 0)
	for _, t := range repo.query() {
		if t.IsOpen() && !t.DueDate.Before(from) && !t.DueDate.After(to) {
			res = append(res, t)
		}
	}
	sortTasks(res, task.DefaultOrdering())
	return res, nil
}

func (repo *taskRepository) QueryAssignedDueInPeriod(ctx context.Context, userID string, start, end time.Time, exec ...core.DBExecutor) ([]task.Task, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]task.Task, 0)
	for _, t := range repo.query() {
		if t.AssignedToID == userID && !t.DueDate.Before(start) && !t.DueDate.After(end) {
			res = append(res, t)
		}
	}
	sortTasks(res, task.DefaultOrdering())
	return res, nil
}
