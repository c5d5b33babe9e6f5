package notification

import "time"

// Types
const (
	TypeTaskAssigned      = "TASK_ASSIGNED"
	TypeTaskDueSoon       = "TASK_DUE_SOON"
	TypeTaskOverdue       = "TASK_OVERDUE"
	TypeTaskCompleted     = "TASK_COMPLETED"
	TypeProjectInvitation = "PROJECT_INVITATION"
)

var AllTypes = []string{
	TypeTaskAssigned,
	TypeTaskDueSoon,
	TypeTaskOverdue,
	TypeTaskCompleted,
	TypeProjectInvitation,
}

// Notification records a task/project lifecycle event for a recipient.
// Records are only ever created by the lifecycle engines; the recipient can
// only flip Read, and the retention sweep eventually deletes read ones.
type Notification struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Type             string    `json:"type"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	RelatedTaskID    string    `json:"related_task_id,omitempty"`
	RelatedProjectID string    `json:"related_project_id,omitempty"`
	Read             bool      `json:"read"`
	CreatedAt        time.Time `json:"created_at"` // UTC
}

// NewNotification is what the lifecycle engines hand to the sink.
type NewNotification struct {
	UserID           string
	Type             string
	Title            string
	Message          string
	RelatedTaskID    string
	RelatedProjectID string
}

type QueryFilter struct {
	UnreadOnly bool `query:"unread"`
}
