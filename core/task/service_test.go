package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/project"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
	dummydb "github.com/trezcool/kazi/storage/database/dummy"
)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type nopEmail struct{}

func (nopEmail) SendMessages(...*core.EmailMessage) {}

type testEnv struct {
	clock     *fixedClock
	taskRepo  task.Repository
	prjRepo   project.Repository
	usrRepo   user.Repository
	notifRepo notification.Repository
	taskSvc   task.ServiceInterface

	prof, stud, stud2, outsider user.User
	prj                         project.Project
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	clock := &fixedClock{now: time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)}
	env := &testEnv{
		clock:     clock,
		taskRepo:  dummydb.NewTaskRepository(db),
		prjRepo:   dummydb.NewProjectRepository(db),
		usrRepo:   dummydb.NewUserRepository(db),
		notifRepo: dummydb.NewNotificationRepository(db),
	}
	notifSvc := notification.NewService(env.notifRepo, env.usrRepo, nopEmail{}, clock, nopLogger{})
	env.taskSvc = task.NewService(env.taskRepo, env.prjRepo, env.usrRepo, notifSvc, db, clock, nopLogger{})

	env.prof = env.createUser(t, "Prof", "profzero", user.RoleProfessor)
	env.stud = env.createUser(t, "Stud One", "studone", user.RoleStudent)
	env.stud2 = env.createUser(t, "Stud Two", "studtwo", user.RoleStudent)
	env.outsider = env.createUser(t, "Out Sider", "outsider", user.RoleStudent)

	env.prj = env.createProject(t, env.prof, env.stud, env.stud2)
	return env
}

func (env *testEnv) createUser(t *testing.T, name, uname, role string) user.User {
	t.Helper()
	active := true
	usr, err := env.usrRepo.CreateUser(context.Background(), user.User{
		Name:      name,
		Username:  uname,
		Email:     uname + "@test.test",
		Role:      role,
		IsActive:  &active,
		CreatedAt: env.clock.Now(),
		UpdatedAt: env.clock.Now(),
	})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) createProject(t *testing.T, creator user.User, members ...user.User) project.Project {
	t.Helper()
	memberIDs := []string{creator.ID}
	for _, m := range members {
		memberIDs = append(memberIDs, m.ID)
	}
	prj, err := env.prjRepo.CreateProject(context.Background(), project.Project{
		Title:     "Algebra I",
		CreatorID: creator.ID,
		MemberIDs: memberIDs,
		CreatedAt: env.clock.Now(),
		UpdatedAt: env.clock.Now(),
	})
	require.NoError(t, err)
	return prj
}

func (env *testEnv) createTask(t *testing.T, actor, assignee user.User, title string) task.Task {
	t.Helper()
	tsk, err := env.taskSvc.Create(context.Background(), actor, task.NewTask{
		Title:        title,
		ProjectID:    env.prj.ID,
		AssignedToID: assignee.ID,
		DueDate:      env.clock.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	return tsk
}

func (env *testEnv) notifications(t *testing.T, usr user.User) []notification.Notification {
	t.Helper()
	res, err := env.notifRepo.QueryUserNotifications(context.Background(), usr.ID, nil)
	require.NoError(t, err)
	return res
}

func TestService_Create(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	t.Run("due date must be in the future", func(t *testing.T) {
		_, err := env.taskSvc.Create(ctx, env.prof, task.NewTask{
			Title:        "Late",
			ProjectID:    env.prj.ID,
			AssignedToID: env.stud.ID,
			DueDate:      env.clock.Now().Add(-time.Hour),
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "due_date", vErr.Fields[0].Field)
	})

	t.Run("outsider gets not found", func(t *testing.T) {
		_, err := env.taskSvc.Create(ctx, env.outsider, task.NewTask{
			Title:        "Sneaky",
			ProjectID:    env.prj.ID,
			AssignedToID: env.outsider.ID,
			DueDate:      env.clock.Now().Add(time.Hour),
		})
		assert.Equal(t, project.ErrNotFound, err)
	})

	t.Run("non-creator member may only self-assign", func(t *testing.T) {
		_, err := env.taskSvc.Create(ctx, env.stud, task.NewTask{
			Title:        "For someone else",
			ProjectID:    env.prj.ID,
			AssignedToID: env.stud2.ID,
			DueDate:      env.clock.Now().Add(time.Hour),
		})
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("student cannot assign a professor", func(t *testing.T) {
		// stud owns this project, so the self-assign rule does not apply
		studPrj, err := env.prjRepo.CreateProject(ctx, project.Project{
			Title:     "Study group",
			CreatorID: env.stud.ID,
			MemberIDs: []string{env.stud.ID, env.prof.ID},
			CreatedAt: env.clock.Now(),
		})
		require.NoError(t, err)

		_, err = env.taskSvc.Create(ctx, env.stud, task.NewTask{
			Title:        "Grade this",
			ProjectID:    studPrj.ID,
			AssignedToID: env.prof.ID,
			DueDate:      env.clock.Now().Add(time.Hour),
		})
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("assignee must be a member", func(t *testing.T) {
		_, err := env.taskSvc.Create(ctx, env.prof, task.NewTask{
			Title:        "Homework",
			ProjectID:    env.prj.ID,
			AssignedToID: env.outsider.ID,
			DueDate:      env.clock.Now().Add(time.Hour),
		})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "assigned_to_id", vErr.Fields[0].Field)
	})

	t.Run("ok: assignee is notified", func(t *testing.T) {
		tsk := env.createTask(t, env.prof, env.stud, "Homework 1")
		assert.Equal(t, task.StatusTodo, tsk.Status)
		assert.Nil(t, tsk.CompletionDate)
		assert.Equal(t, env.prof.ID, tsk.CreatedByID)

		notifs := env.notifications(t, env.stud)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.TypeTaskAssigned, notifs[0].Type)
		assert.Equal(t, `You have been assigned the task "Homework 1".`, notifs[0].Message)
		assert.Equal(t, tsk.ID, notifs[0].RelatedTaskID)
	})
}

func TestService_SetStatus(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	tsk := env.createTask(t, env.prof, env.stud, "Homework")

	t.Run("invalid status", func(t *testing.T) {
		_, err := env.taskSvc.SetStatus(ctx, env.stud, tsk.ID, "DONE")
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "status", vErr.Fields[0].Field)
	})

	t.Run("member without status rights", func(t *testing.T) {
		_, err := env.taskSvc.SetStatus(ctx, env.stud2, tsk.ID, task.StatusInProgress)
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("outsider gets not found", func(t *testing.T) {
		_, err := env.taskSvc.SetStatus(ctx, env.outsider, tsk.ID, task.StatusInProgress)
		assert.Equal(t, task.ErrNotFound, err)
	})

	t.Run("completing stamps the completion date", func(t *testing.T) {
		// TODO -> COMPLETED directly is allowed
		updated, err := env.taskSvc.SetStatus(ctx, env.stud, tsk.ID, task.StatusCompleted)
		require.NoError(t, err)
		require.NotNil(t, updated.CompletionDate)
		assert.True(t, updated.CompletionDate.Equal(env.clock.now))

		// the creator is notified; the assignee is not
		profNotifs := env.notifications(t, env.prof)
		require.Len(t, profNotifs, 1)
		assert.Equal(t, notification.TypeTaskCompleted, profNotifs[0].Type)
		assert.Equal(t, `The task "Homework" has been completed.`, profNotifs[0].Message)
	})

	t.Run("reopening wipes the completion date", func(t *testing.T) {
		updated, err := env.taskSvc.SetStatus(ctx, env.stud, tsk.ID, task.StatusInProgress)
		require.NoError(t, err)
		assert.Nil(t, updated.CompletionDate)
	})

	t.Run("no completion notification when creator is assignee", func(t *testing.T) {
		own := env.createTask(t, env.prof, env.prof, "Own errand")
		before := len(env.notifications(t, env.prof))

		_, err := env.taskSvc.SetStatus(ctx, env.prof, own.ID, task.StatusCompleted)
		require.NoError(t, err)
		assert.Len(t, env.notifications(t, env.prof), before)
	})
}

func TestService_Reassign(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	tsk := env.createTask(t, env.prof, env.stud, "Homework")

	t.Run("assignee may not reassign", func(t *testing.T) {
		_, err := env.taskSvc.Reassign(ctx, env.stud, tsk.ID, env.stud2.ID)
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("new assignee must be a member", func(t *testing.T) {
		_, err := env.taskSvc.Reassign(ctx, env.prof, tsk.ID, env.outsider.ID)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "assigned_to_id", vErr.Fields[0].Field)
	})

	t.Run("student task creator may not reassign to a professor", func(t *testing.T) {
		essay := env.createTask(t, env.stud, env.stud, "Essay")
		_, err := env.taskSvc.Reassign(ctx, env.stud, essay.ID, env.prof.ID)
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("ok: new assignee is notified", func(t *testing.T) {
		updated, err := env.taskSvc.Reassign(ctx, env.prof, tsk.ID, env.stud2.ID)
		require.NoError(t, err)
		assert.Equal(t, env.stud2.ID, updated.AssignedToID)

		notifs := env.notifications(t, env.stud2)
		require.Len(t, notifs, 1)
		assert.Equal(t, notification.TypeTaskAssigned, notifs[0].Type)
		assert.Equal(t, `You have been reassigned the task "Homework".`, notifs[0].Message)
	})
}

func TestService_Update(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	tsk := env.createTask(t, env.prof, env.stud, "Homework")

	t.Run("member without write rights", func(t *testing.T) {
		_, err := env.taskSvc.Update(ctx, env.stud2, tsk.ID, task.UpdateTask{Title: "Nope"})
		assert.True(t, core.IsPermissionError(err))
	})

	t.Run("due date change must be in the future", func(t *testing.T) {
		past := env.clock.Now().Add(-time.Hour)
		_, err := env.taskSvc.Update(ctx, env.stud, tsk.ID, task.UpdateTask{DueDate: &past})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Equal(t, "due_date", vErr.Fields[0].Field)
	})

	t.Run("ok: empty fields keep original values", func(t *testing.T) {
		prio := 5
		updated, err := env.taskSvc.Update(ctx, env.stud, tsk.ID, task.UpdateTask{Priority: &prio})
		require.NoError(t, err)
		assert.Equal(t, "Homework", updated.Title)
		assert.Equal(t, 5, updated.Priority)
	})
}

func TestService_Query(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	newTask := func(title string, assignee user.User, due time.Time, prio int, status string) task.Task {
		tsk, err := env.taskRepo.CreateTask(ctx, task.Task{
			Title:        title,
			ProjectID:    env.prj.ID,
			AssignedToID: assignee.ID,
			CreatedByID:  env.prof.ID,
			Status:       status,
			Priority:     prio,
			DueDate:      due,
			CreatedAt:    env.clock.Now(),
		})
		require.NoError(t, err)
		return tsk
	}

	now := env.clock.Now()
	newTask("A", env.stud, now.Add(96*time.Hour), 1, task.StatusTodo)
	newTask("B", env.stud2, now.Add(96*time.Hour), 9, task.StatusInProgress)
	newTask("C", env.stud, now.Add(24*time.Hour), 0, task.StatusTodo)
	newTask("D", env.stud, now.Add(-time.Hour), 2, task.StatusTodo)      // overdue
	newTask("E", env.stud2, now.Add(-time.Hour), 0, task.StatusCompleted) // past due but completed

	titles := func(tasks []task.Task) []string {
		res := make([]string, 0, len(tasks))
		for _, tsk := range tasks {
			res = append(res, tsk.Title)
		}
		return res
	}

	t.Run("default ordering: due date asc, priority desc", func(t *testing.T) {
		tasks, err := env.taskSvc.Query(ctx, env.prof, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"D", "E", "C", "A", "B"}, titles(tasks))
	})

	t.Run("explicit sort by title", func(t *testing.T) {
		tasks, err := env.taskSvc.Query(ctx, env.prof, nil, task.Ordering("title", false))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C", "D", "E"}, titles(tasks))
	})

	t.Run("unknown sort field falls back to default", func(t *testing.T) {
		tasks, err := env.taskSvc.Query(ctx, env.prof, nil, task.Ordering("priority; DROP TABLE task", true))
		require.NoError(t, err)
		assert.Equal(t, []string{"D", "E", "C", "A", "B"}, titles(tasks))
	})

	t.Run("assignees see only their tasks", func(t *testing.T) {
		tasks, err := env.taskSvc.Query(ctx, env.stud, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"D", "C", "A"}, titles(tasks))
	})

	t.Run("status filter", func(t *testing.T) {
		tasks, err := env.taskSvc.Query(ctx, env.prof, &task.QueryFilter{Status: "in_progress"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"B"}, titles(tasks))
	})

	t.Run("overdue filter uses full timestamps and skips completed", func(t *testing.T) {
		tasks, err := env.taskSvc.Query(ctx, env.prof, &task.QueryFilter{Overdue: true}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"D"}, titles(tasks))
	})
}

func TestService_OverdueScan(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	now := env.clock.Now()

	create := func(title string, due time.Time, status string) {
		_, err := env.taskRepo.CreateTask(ctx, task.Task{
			Title:        title,
			ProjectID:    env.prj.ID,
			AssignedToID: env.stud.ID,
			CreatedByID:  env.prof.ID,
			Status:       status,
			DueDate:      due,
			CreatedAt:    now,
		})
		require.NoError(t, err)
	}
	create("In window", now.Add(-time.Hour), task.StatusTodo)
	create("Too old", now.Add(-30*time.Hour), task.StatusTodo)
	create("Completed", now.Add(-time.Hour), task.StatusCompleted)

	emitted, err := env.taskSvc.OverdueScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, emitted) // assignee + creator

	studNotifs := env.notifications(t, env.stud)
	require.Len(t, studNotifs, 1)
	assert.Equal(t, notification.TypeTaskOverdue, studNotifs[0].Type)
	assert.Equal(t, `The task "In window" is now overdue.`, studNotifs[0].Message)

	profNotifs := env.notifications(t, env.prof)
	require.Len(t, profNotifs, 1)
	assert.Equal(t, `The task "In window" assigned to studone is now overdue.`, profNotifs[0].Message)

	// the scan is not idempotent; cadence is the scheduler's concern
	_, err = env.taskSvc.OverdueScan(ctx)
	require.NoError(t, err)
	assert.Len(t, env.notifications(t, env.stud), 2)
}

func TestService_UpcomingScan(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	now := env.clock.Now()

	create := func(title string, due time.Time) {
		_, err := env.taskRepo.CreateTask(ctx, task.Task{
			Title:        title,
			ProjectID:    env.prj.ID,
			AssignedToID: env.stud.ID,
			CreatedByID:  env.prof.ID,
			Status:       task.StatusTodo,
			DueDate:      due,
			CreatedAt:    now,
		})
		require.NoError(t, err)
	}
	create("Tomorrow", now.Add(30*time.Hour))
	create("Soon", now.Add(5*time.Hour))
	create("Far", now.Add(49*time.Hour))

	emitted, err := env.taskSvc.UpcomingScan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, emitted)

	messages := make([]string, 0, 2)
	for _, n := range env.notifications(t, env.stud) {
		messages = append(messages, n.Message)
	}
	assert.Contains(t, messages, `The task "Tomorrow" is due in 1 days.`)
	assert.Contains(t, messages, `The task "Soon" is due in 5 hours.`)
}
