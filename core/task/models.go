package task

import (
	"time"

	"github.com/trezcool/kazi/core"
)

// Statuses
const (
	StatusTodo       = "TODO"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

var (
	AllStatuses = []string{StatusTodo, StatusInProgress, StatusCompleted}

	// OpenStatuses are the statuses the overdue/upcoming scans consider.
	OpenStatuses = []string{StatusTodo, StatusInProgress}
)

func ValidStatus(status string) bool {
	for _, s := range AllStatuses {
		if status == s {
			return true
		}
	}
	return false
}

// Task belongs to exactly one Project and is always assigned to a project
// member. CompletionDate is non-nil iff Status is COMPLETED and is only ever
// stamped at transition time.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ProjectID      string     `json:"project_id"`
	AssignedToID   string     `json:"assigned_to_id"`
	CreatedByID    string     `json:"created_by_id"`
	Status         string     `json:"status"`
	Priority       int        `json:"priority"` // higher = more urgent
	DueDate        time.Time  `json:"due_date"`
	CompletionDate *time.Time `json:"completion_date"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

func (t *Task) IsOpen() bool {
	return t.Status == StatusTodo || t.Status == StatusInProgress
}

// IsOverdue compares full timestamps; unlike DaysUntilDue it is precise.
func (t *Task) IsOverdue(now time.Time) bool {
	return t.IsOpen() && t.DueDate.Before(now)
}

// DaysUntilDue is a coarse display value truncated to whole days; it is not
// the overdue check.
func (t *Task) DaysUntilDue(now time.Time) int {
	return int(t.DueDate.Sub(now).Hours() / 24)
}

func (t *Task) IsCompletedOnTime() bool {
	if t.Status != StatusCompleted || t.CompletionDate == nil {
		return false
	}
	return !t.CompletionDate.After(t.DueDate)
}

// NewTask contains information needed to create a new Task.
type NewTask struct {
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	ProjectID    string    `json:"project_id" validate:"required"`
	AssignedToID string    `json:"assigned_to_id" validate:"required"`
	DueDate      time.Time `json:"due_date" validate:"required"`
	Priority     int       `json:"priority"`
}

func (nt *NewTask) Validate(clock core.Clock) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Description = core.CleanString(nt.Description)

	if err := core.Validate.Struct(nt); err != nil {
		return err
	}
	if !nt.DueDate.After(clock.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: errDueDateNotFuture})
	}
	return nil
}

// UpdateTask defines the editable fields of an existing Task. Status and
// CompletionDate are owned by SetStatus; assignment by Reassign.
type UpdateTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    *int       `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (ut *UpdateTask) Validate(orig Task, clock core.Clock) error {
	title := core.CleanString(ut.Title)
	if title != "" {
		ut.Title = title
	} else {
		ut.Title = orig.Title
	}

	desc := core.CleanString(ut.Description)
	if desc != "" {
		ut.Description = desc
	} else {
		ut.Description = orig.Description
	}

	if ut.DueDate != nil && !ut.DueDate.After(clock.Now()) {
		return core.NewValidationError(nil, core.FieldError{Field: "due_date", Error: errDueDateNotFuture})
	}
	return core.Validate.Struct(ut)
}

// QueryFilter is the filter vocabulary the API boundary supports. ViewerID
// scopes results to tasks the viewer may see: tasks of projects they
// created, or tasks assigned to them. The "me" assignee shorthand is
// resolved to the actor's ID before it gets here.
type QueryFilter struct {
	ViewerID     string `query:"-"`
	ProjectID    string `query:"project"`
	Status       string `query:"status"`
	AssignedToID string `query:"assigned_to"`
	Overdue      bool   `query:"overdue"`
	// OverdueAsOf is the reference timestamp for the Overdue filter; the
	// service stamps it from its clock.
	OverdueAsOf time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.ProjectID = core.CleanString(qf.ProjectID)
	qf.Status = core.CleanString(qf.Status, true)
	if qf.Status != "" {
		qf.Status = map[string]string{
			"todo":        StatusTodo,
			"in_progress": StatusInProgress,
			"completed":   StatusCompleted,
		}[qf.Status]
	}
	qf.AssignedToID = core.CleanString(qf.AssignedToID)
}

// Sort allow-list: anything else silently falls back to the default order.
var sortFields = map[string]string{
	"title":      "title",
	"due_date":   "due_date",
	"created_at": "created_at",
	"priority":   "priority",
}

// DefaultOrdering returns due_date ascending with priority descending as
// tie-break.
func DefaultOrdering() []core.DBOrdering {
	return []core.DBOrdering{
		{Field: "due_date"},
		{Field: "priority", Desc: true},
	}
}

// Ordering maps an explicit sort_by/direction pair to a DB ordering,
// falling back to DefaultOrdering for unknown fields; never an error.
func Ordering(sortBy string, desc bool) []core.DBOrdering {
	field, ok := sortFields[core.CleanString(sortBy, true)]
	if !ok {
		return DefaultOrdering()
	}
	return []core.DBOrdering{{Field: field, Desc: desc}}
}
