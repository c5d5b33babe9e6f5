package task

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/access"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/project"
	"github.com/trezcool/kazi/core/user"
)

const (
	overdueScanWindow  = 24 * time.Hour
	upcomingScanWindow = 48 * time.Hour
)

var (
	// errors
	ErrNotFound = errors.New("task not found")

	errDueDateNotFuture       = "due date must be in the future"
	errAssigneeNotMember      = "assignee is not a member of this project"
	errInvalidStatus          = "invalid status"
	errSelfAssignOnly         = "project members may only assign new tasks to themselves"
	errStudentAssignProfessor = "students cannot assign tasks to professors"
	errNoWriteAccess          = "not allowed to modify this task"
	errNoStatusAccess         = "only the project creator or the assignee may update the status"
	errNoReassignAccess       = "only the project creator or the task creator may reassign"
)

type (
	Repository interface {
		CreateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		GetTask(ctx context.Context, id string, exec ...core.DBExecutor) (Task, error)
		// QueryTasks applies AND on available QueryFilter fields, scoped to
		// the viewer, ordered per ordering.
		QueryTasks(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Task, error)
		UpdateTask(ctx context.Context, t Task, exec ...core.DBExecutor) (Task, error)
		// DeleteTask deletes the task and its notifications.
		DeleteTask(ctx context.Context, id string, exec ...core.DBExecutor) error
		// QueryOpenDueBetween returns open tasks whose due date falls within
		// [from, to].
		QueryOpenDueBetween(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]Task, error)
		// QueryAssignedDueInPeriod returns the user's assigned tasks whose
		// due date falls within [start, end], any status.
		QueryAssignedDueInPeriod(ctx context.Context, userID string, start, end time.Time, exec ...core.DBExecutor) ([]Task, error)
	}

	// Notifier is the sink lifecycle events are pushed to.
	Notifier interface {
		Notify(ctx context.Context, nn notification.NewNotification, exec ...core.DBExecutor) (notification.Notification, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, nt NewTask) (Task, error)
		Get(ctx context.Context, actor user.User, id string) (Task, error)
		Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error)
		Update(ctx context.Context, actor user.User, id string, ut UpdateTask) (Task, error)
		SetStatus(ctx context.Context, actor user.User, id, status string) (Task, error)
		Reassign(ctx context.Context, actor user.User, id, newAssigneeID string) (Task, error)
		Delete(ctx context.Context, actor user.User, id string) error
		OverdueScan(ctx context.Context) (int, error)
		UpcomingScan(ctx context.Context) (int, error)
	}

	service struct {
		repo     Repository
		projects project.Repository
		users    user.Repository
		notifier Notifier
		atomic   core.AtomicRunner
		clock    core.Clock
		log      core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(
	repo Repository,
	projects project.Repository,
	users user.Repository,
	notifier Notifier,
	atomic core.AtomicRunner,
	clock core.Clock,
	log core.Logger,
) *service {
	return &service{
		repo:     repo,
		projects: projects,
		users:    users,
		notifier: notifier,
		atomic:   atomic,
		clock:    clock,
		log:      log,
	}
}

// save is the single writer of tasks. It persists the task and fires the
// post-save notification rule within the same transaction, so no write path
// can bypass it:
//   - a newly created task notifies its assignee (TASK_ASSIGNED);
//   - a persisted task that is COMPLETED with a completion date notifies its
//     creator (TASK_COMPLETED) when creator and assignee differ.
//
// Callers may append extra notifications (e.g. reassignment) to the same
// transaction.
func (svc *service) save(ctx context.Context, t Task, created bool, extra ...notification.NewNotification) (Task, error) {
	var saved Task
	err := svc.atomic.Atomic(ctx, func(exec core.DBExecutor) error {
		var err error
		if created {
			saved, err = svc.repo.CreateTask(ctx, t, exec)
		} else {
			saved, err = svc.repo.UpdateTask(ctx, t, exec)
		}
		if err != nil {
			return errors.Wrap(err, "persisting task")
		}

		if nn, ok := postSaveNotification(saved, created); ok {
			if _, err = svc.notifier.Notify(ctx, nn, exec); err != nil {
				return errors.Wrap(err, "emitting post-save notification")
			}
		}
		for _, nn := range extra {
			if _, err = svc.notifier.Notify(ctx, nn, exec); err != nil {
				return errors.Wrap(err, "emitting notification")
			}
		}
		return nil
	})
	if err != nil {
		return Task{}, err
	}
	return saved, nil
}

func postSaveNotification(t Task, created bool) (notification.NewNotification, bool) {
	if created {
		return notification.NewNotification{
			UserID:           t.AssignedToID,
			Type:             notification.TypeTaskAssigned,
			Title:            "New task assigned",
			Message:          fmt.Sprintf("You have been assigned the task %q.", t.Title),
			RelatedTaskID:    t.ID,
			RelatedProjectID: t.ProjectID,
		}, true
	}
	if t.Status == StatusCompleted && t.CompletionDate != nil && t.CreatedByID != t.AssignedToID {
		return notification.NewNotification{
			UserID:           t.CreatedByID,
			Type:             notification.TypeTaskCompleted,
			Title:            "Task completed",
			Message:          fmt.Sprintf("The task %q has been completed.", t.Title),
			RelatedTaskID:    t.ID,
			RelatedProjectID: t.ProjectID,
		}, true
	}
	return notification.NewNotification{}, false
}

// Create applies the task creation contract:
//   - actor must be a project member (outsiders get not-found);
//   - a non-creator member may only assign the task to themselves;
//   - the professor-assignment guard applies;
//   - the due date must be strictly in the future;
//   - the assignee must be a current project member.
func (svc *service) Create(ctx context.Context, actor user.User, nt NewTask) (Task, error) {
	if err := nt.Validate(svc.clock); err != nil {
		return Task{}, err
	}

	prj, err := svc.projects.GetProject(ctx, nt.ProjectID)
	if err != nil {
		return Task{}, err
	}
	if !access.CanReadProject(actor.ID, prj.MemberIDs) {
		return Task{}, project.ErrNotFound
	}
	if !prj.IsCreator(actor.ID) && nt.AssignedToID != actor.ID {
		return Task{}, core.NewPermissionError(errSelfAssignOnly)
	}

	assignee, err := svc.users.GetUser(ctx, user.GetFilter{ID: nt.AssignedToID})
	if err != nil {
		return Task{}, err
	}
	if !access.CanAssignTo(actor, assignee) {
		return Task{}, core.NewPermissionError(errStudentAssignProfessor)
	}
	if !prj.HasMember(assignee.ID) {
		return Task{}, core.NewValidationError(nil, core.FieldError{Field: "assigned_to_id", Error: errAssigneeNotMember})
	}

	now := svc.clock.Now()
	t := Task{
		Title:        nt.Title,
		Description:  nt.Description,
		ProjectID:    prj.ID,
		AssignedToID: assignee.ID,
		CreatedByID:  actor.ID,
		Status:       StatusTodo,
		Priority:     nt.Priority,
		DueDate:      nt.DueDate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.save(ctx, t, true)
}

// get loads a task and its project, applying the read gate: actors outside
// the project roster get ErrNotFound.
func (svc *service) get(ctx context.Context, actor user.User, id string) (Task, project.Project, error) {
	t, err := svc.repo.GetTask(ctx, id)
	if err != nil {
		return Task{}, project.Project{}, err
	}
	prj, err := svc.projects.GetProject(ctx, t.ProjectID)
	if err != nil {
		return Task{}, project.Project{}, errors.Wrap(err, "loading task project")
	}
	if !access.CanReadTask(actor.ID, prj.MemberIDs) {
		return Task{}, project.Project{}, ErrNotFound
	}
	return t, prj, nil
}

func (svc *service) Get(ctx context.Context, actor user.User, id string) (Task, error) {
	t, _, err := svc.get(ctx, actor, id)
	return t, err
}

func (svc *service) Query(ctx context.Context, actor user.User, filter *QueryFilter, ordering []core.DBOrdering) ([]Task, error) {
	if filter == nil {
		filter = &QueryFilter{}
	}
	filter.Clean()
	filter.ViewerID = actor.ID
	if filter.Overdue {
		filter.OverdueAsOf = svc.clock.Now()
	}
	if len(ordering) == 0 {
		ordering = DefaultOrdering()
	}
	return svc.repo.QueryTasks(ctx, filter, ordering)
}

func (svc *service) Update(ctx context.Context, actor user.User, id string, ut UpdateTask) (Task, error) {
	t, prj, err := svc.get(ctx, actor, id)
	if err != nil {
		return Task{}, err
	}
	if !access.CanWriteTask(actor.ID, prj.CreatorID, t.AssignedToID, t.CreatedByID) {
		return Task{}, core.NewPermissionError(errNoWriteAccess)
	}
	if err = ut.Validate(t, svc.clock); err != nil {
		return Task{}, err
	}

	t.Title = ut.Title
	t.Description = ut.Description
	if ut.Priority != nil {
		t.Priority = *ut.Priority
	}
	if ut.DueDate != nil {
		t.DueDate = *ut.DueDate
	}
	t.UpdatedAt = svc.clock.Now()
	return svc.save(ctx, t, false)
}

// SetStatus applies the lifecycle transition contract. Any status may move
// to any other; no state is terminal-locked. Moving to COMPLETED stamps the
// completion date; moving anywhere else always wipes it.
func (svc *service) SetStatus(ctx context.Context, actor user.User, id, status string) (Task, error) {
	if !ValidStatus(status) {
		return Task{}, core.NewValidationError(nil, core.FieldError{Field: "status", Error: errInvalidStatus})
	}

	t, prj, err := svc.get(ctx, actor, id)
	if err != nil {
		return Task{}, err
	}
	if !access.CanUpdateTaskStatus(actor.ID, prj.CreatorID, t.AssignedToID) {
		return Task{}, core.NewPermissionError(errNoStatusAccess)
	}

	prev := t.Status
	t.Status = status
	switch {
	case status == StatusCompleted && prev != StatusCompleted:
		now := svc.clock.Now()
		t.CompletionDate = &now
	case status != StatusCompleted:
		t.CompletionDate = nil // reopening always wipes the completion date
	}
	t.UpdatedAt = svc.clock.Now()
	return svc.save(ctx, t, false)
}

// Reassign moves the task to a new assignee; allowed for the project
// creator or the task creator. Unlike at creation time, the task creator may
// reassign to any member passing the professor guard; the asymmetry is
// intentional.
func (svc *service) Reassign(ctx context.Context, actor user.User, id, newAssigneeID string) (Task, error) {
	t, prj, err := svc.get(ctx, actor, id)
	if err != nil {
		return Task{}, err
	}
	if !access.CanReassignTask(actor.ID, prj.CreatorID, t.CreatedByID) {
		return Task{}, core.NewPermissionError(errNoReassignAccess)
	}

	assignee, err := svc.users.GetUser(ctx, user.GetFilter{ID: newAssigneeID})
	if err != nil {
		return Task{}, err
	}
	if !prj.HasMember(assignee.ID) {
		return Task{}, core.NewValidationError(nil, core.FieldError{Field: "assigned_to_id", Error: errAssigneeNotMember})
	}
	if !access.CanAssignTo(actor, assignee) {
		return Task{}, core.NewPermissionError(errStudentAssignProfessor)
	}

	t.AssignedToID = assignee.ID
	t.UpdatedAt = svc.clock.Now()
	return svc.save(ctx, t, false, notification.NewNotification{
		UserID:           assignee.ID,
		Type:             notification.TypeTaskAssigned,
		Title:            "Task reassigned",
		Message:          fmt.Sprintf("You have been reassigned the task %q.", t.Title),
		RelatedTaskID:    t.ID,
		RelatedProjectID: t.ProjectID,
	})
}

func (svc *service) Delete(ctx context.Context, actor user.User, id string) error {
	t, prj, err := svc.get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !access.CanWriteTask(actor.ID, prj.CreatorID, t.AssignedToID, t.CreatedByID) {
		return core.NewPermissionError(errNoWriteAccess)
	}
	return svc.repo.DeleteTask(ctx, t.ID)
}

// OverdueScan notifies about open tasks whose due date fell within the last
// 24 hours: the assignee always, the task creator additionally when
// different. Re-running within the same window emits duplicates; the
// external scheduler owns invocation cadence.
func (svc *service) OverdueScan(ctx context.Context) (int, error) {
	now := svc.clock.Now()
	tasks, err := svc.repo.QueryOpenDueBetween(ctx, now.Add(-overdueScanWindow), now)
	if err != nil {
		return 0, errors.Wrap(err, "querying overdue tasks")
	}

	var emitted int
	for _, t := range tasks {
		_, err = svc.notifier.Notify(ctx, notification.NewNotification{
			UserID:           t.AssignedToID,
			Type:             notification.TypeTaskOverdue,
			Title:            "Task overdue",
			Message:          fmt.Sprintf("The task %q is now overdue.", t.Title),
			RelatedTaskID:    t.ID,
			RelatedProjectID: t.ProjectID,
		})
		if err != nil {
			return emitted, errors.Wrap(err, "emitting overdue notification")
		}
		emitted++

		if t.CreatedByID != t.AssignedToID {
			assignee, err := svc.users.GetUser(ctx, user.GetFilter{ID: t.AssignedToID})
			if err != nil {
				return emitted, errors.Wrap(err, "loading assignee")
			}
			_, err = svc.notifier.Notify(ctx, notification.NewNotification{
				UserID:           t.CreatedByID,
				Type:             notification.TypeTaskOverdue,
				Title:            "Task overdue",
				Message:          fmt.Sprintf("The task %q assigned to %s is now overdue.", t.Title, assignee.Username),
				RelatedTaskID:    t.ID,
				RelatedProjectID: t.ProjectID,
			})
			if err != nil {
				return emitted, errors.Wrap(err, "emitting overdue notification")
			}
			emitted++
		}
	}
	return emitted, nil
}

// UpcomingScan notifies assignees about open tasks due within the next 2
// days, with a coarse remaining-time message: whole days when at least a
// day is left, whole hours otherwise.
func (svc *service) UpcomingScan(ctx context.Context) (int, error) {
	now := svc.clock.Now()
	tasks, err := svc.repo.QueryOpenDueBetween(ctx, now, now.Add(upcomingScanWindow))
	if err != nil {
		return 0, errors.Wrap(err, "querying upcoming tasks")
	}

	var emitted int
	for _, t := range tasks {
		_, err = svc.notifier.Notify(ctx, notification.NewNotification{
			UserID:           t.AssignedToID,
			Type:             notification.TypeTaskDueSoon,
			Title:            "Task due soon",
			Message:          fmt.Sprintf("The task %q is due in %s.", t.Title, remainingTime(t.DueDate, now)),
			RelatedTaskID:    t.ID,
			RelatedProjectID: t.ProjectID,
		})
		if err != nil {
			return emitted, errors.Wrap(err, "emitting due-soon notification")
		}
		emitted++
	}
	return emitted, nil
}

func remainingTime(due, now time.Time) string {
	rem := due.Sub(now)
	if days := int(rem.Hours()) / 24; days > 0 {
		return fmt.Sprintf("%d days", days)
	}
	return fmt.Sprintf("%d hours", int(rem.Hours()))
}
