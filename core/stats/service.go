package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/access"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("statistics not found")

	errOwnStatsOnly   = "students may only read their own statistics"
	errProfessorsOnly = "professors only"
)

type (
	Repository interface {
		// GetOrCreateStatistics returns the snapshot for the unique
		// (user, period_start, period_end) key, creating an empty one when
		// missing.
		GetOrCreateStatistics(ctx context.Context, userID string, start, end time.Time, exec ...core.DBExecutor) (TaskStatistics, error)
		// UpdateStatistics overwrites all derived fields in place.
		UpdateStatistics(ctx context.Context, s TaskStatistics, exec ...core.DBExecutor) (TaskStatistics, error)
		// QueryPeriodStatistics returns snapshots for the period, optionally
		// restricted to users of the given role.
		QueryPeriodStatistics(ctx context.Context, start, end time.Time, role string, exec ...core.DBExecutor) ([]TaskStatistics, error)
	}

	// TaskSource is the slice of the task store the aggregator reads.
	TaskSource interface {
		QueryAssignedDueInPeriod(ctx context.Context, userID string, start, end time.Time, exec ...core.DBExecutor) ([]task.Task, error)
	}

	ServiceInterface interface {
		Generate(ctx context.Context, userID string, start, end time.Time) (TaskStatistics, error)
		Get(ctx context.Context, actor user.User, userID string, start, end time.Time) (TaskStatistics, error)
		Summary(ctx context.Context, actor user.User, start, end time.Time) ([]TaskStatistics, error)
		MonthlyBatch(ctx context.Context) (int, error)
	}

	service struct {
		repo  Repository
		tasks TaskSource
		users user.Repository
		clock core.Clock
		log   core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, tasks TaskSource, users user.Repository, clock core.Clock, log core.Logger) *service {
	return &service{repo: repo, tasks: tasks, users: users, clock: clock, log: log}
}

// Generate recomputes the statistics snapshot for the (user, period) key
// from task rows. It is an idempotent upsert: repeated calls with identical
// inputs converge to one identical record.
func (svc *service) Generate(ctx context.Context, userID string, start, end time.Time) (TaskStatistics, error) {
	usr, err := svc.users.GetUser(ctx, user.GetFilter{ID: userID})
	if err != nil {
		return TaskStatistics{}, err
	}

	tasks, err := svc.tasks.QueryAssignedDueInPeriod(ctx, usr.ID, start, end)
	if err != nil {
		return TaskStatistics{}, errors.Wrap(err, "querying period tasks")
	}

	s, err := svc.repo.GetOrCreateStatistics(ctx, usr.ID, start, end)
	if err != nil {
		return TaskStatistics{}, errors.Wrap(err, "upserting statistics")
	}

	var completed, onTime int
	for _, t := range tasks {
		if t.Status == task.StatusCompleted {
			completed++
			if t.IsCompletedOnTime() {
				onTime++
			}
		}
	}

	s.TotalTasks = len(tasks)
	s.CompletedTasks = completed
	s.CompletedOnTime = onTime
	s.CompletionRate = 0
	s.OnTimeRate = 0
	if s.TotalTasks > 0 {
		s.CompletionRate = float64(completed) / float64(s.TotalTasks) * 100
		s.OnTimeRate = float64(onTime) / float64(s.TotalTasks) * 100
	}
	s.BonusAmount = bonus(usr, s.OnTimeRate)

	return svc.repo.UpdateStatistics(ctx, s)
}

// bonus is awarded to professors only; students always get 0.
func bonus(usr user.User, onTimeRate float64) int {
	if !usr.IsProfessor() {
		return 0
	}
	switch {
	case onTimeRate == 100:
		return bonusFullRate
	case onTimeRate >= highRateThreshold:
		return bonusHighRate
	default:
		return 0
	}
}

// Get regenerates and returns a user's statistics for the period. A
// Professor may read anyone's; a Student only their own.
func (svc *service) Get(ctx context.Context, actor user.User, userID string, start, end time.Time) (TaskStatistics, error) {
	if !access.CanReadStatistics(actor, userID) {
		return TaskStatistics{}, core.NewPermissionError(errOwnStatsOnly)
	}
	return svc.Generate(ctx, userID, start, end)
}

// Summary regenerates and lists all professors' statistics for the period;
// professors only.
func (svc *service) Summary(ctx context.Context, actor user.User, start, end time.Time) ([]TaskStatistics, error) {
	if !actor.IsProfessor() {
		return nil, core.NewPermissionError(errProfessorsOnly)
	}

	professors, err := svc.users.QueryUsers(ctx, &user.QueryFilter{Role: user.RoleProfessor}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying professors")
	}
	for _, prof := range professors {
		if _, err = svc.Generate(ctx, prof.ID, start, end); err != nil {
			return nil, errors.Wrapf(err, "generating statistics for %s", prof.Username)
		}
	}
	return svc.repo.QueryPeriodStatistics(ctx, start, end, user.RoleProfessor)
}

// MonthlyBatch regenerates last month's statistics for every known user.
// Invoked by the external scheduler on the first day of the month; safe to
// re-run, recomputation overwrites in place.
func (svc *service) MonthlyBatch(ctx context.Context) (int, error) {
	start, end := PreviousMonth(svc.clock.Now())

	users, err := svc.users.QueryUsers(ctx, nil, nil)
	if err != nil {
		return 0, errors.Wrap(err, "querying users")
	}
	var generated int
	for _, usr := range users {
		if _, err = svc.Generate(ctx, usr.ID, start, end); err != nil {
			return generated, errors.Wrapf(err, "generating statistics for %s", usr.Username)
		}
		generated++
	}
	return generated, nil
}
