package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

type notificationRow struct {
	ID               string      `db:"id"`
	UserID           string      `db:"user_id"`
	Type             string      `db:"type"`
	Title            string      `db:"title"`
	Message          null.String `db:"message"`
	RelatedTaskID    null.String `db:"related_task_id"`
	RelatedProjectID null.String `db:"related_project_id"`
	Read             bool        `db:"read"`
	CreatedAt        null.Time   `db:"created_at"`
}

func (repo notificationRepository) pack(n notification.Notification) notificationRow {
	return notificationRow{
		ID:               n.ID,
		UserID:           n.UserID,
		Type:             n.Type,
		Title:            n.Title,
		Message:          null.NewString(n.Message, n.Message != ""),
		RelatedTaskID:    null.NewString(n.RelatedTaskID, n.RelatedTaskID != ""),
		RelatedProjectID: null.NewString(n.RelatedProjectID, n.RelatedProjectID != ""),
		Read:             n.Read,
		CreatedAt:        null.NewTime(n.CreatedAt.UTC(), !n.CreatedAt.IsZero()),
	}
}

func (repo notificationRepository) unpack(row notificationRow) notification.Notification {
	return notification.Notification{
		ID:               row.ID,
		UserID:           row.UserID,
		Type:             row.Type,
		Title:            row.Title,
		Message:          row.Message.String,
		RelatedTaskID:    row.RelatedTaskID.String,
		RelatedProjectID: row.RelatedProjectID.String,
		Read:             row.Read,
		CreatedAt:        row.CreatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to notification.ErrNotFound
func (repo notificationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return notification.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	n.ID = uuid.New().String()
	row := repo.pack(n)

	q := `
INSERT INTO notification (id, user_id, type, title, message, related_task_id, related_project_id, read, created_at)
VALUES (:id, :user_id, :type, :title, :message, :related_task_id, :related_project_id, :read, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), q, row); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	if _, err := uuid.Parse(id); err != nil {
		return notification.Notification{}, notification.ErrNotFound
	}

	var row notificationRow
	if err := getExec(repo.db, exec).GetContext(ctx, &row, `SELECT * FROM notification WHERE id = $1`, id); err != nil {
		return notification.Notification{}, repo.trapNoRowsErr(err, "finding notification")
	}
	return repo.unpack(row), nil
}

func (repo notificationRepository) QueryUserNotifications(ctx context.Context, userID string, filter *notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	q := `SELECT * FROM notification WHERE user_id = $1`
	if filter != nil && filter.UnreadOnly {
		q += ` AND NOT read`
	}
	q += ` ORDER BY created_at DESC`

	var rows []notificationRow
	if err := getExec(repo.db, exec).SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	res := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		res = append(res, repo.unpack(row))
	}
	return res, nil
}

func (repo notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	row := repo.pack(n)

	q := `UPDATE notification SET read = :read WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, getExec(repo.db, exec), q, row)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "updating notification")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return notification.Notification{}, notification.ErrNotFound
	}
	return n, nil
}

func (repo notificationRepository) MarkAllRead(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	q := `UPDATE notification SET read = TRUE WHERE user_id = $1 AND NOT read`
	if _, err := getExec(repo.db, exec).ExecContext(ctx, q, userID); err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return nil
}

func (repo notificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error) {
	q := `DELETE FROM notification WHERE read AND created_at < $1`
	res, err := getExec(repo.db, exec).ExecContext(ctx, q, cutoff.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deleting read notifications")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting read notifications")
	}
	return int(cnt), nil
}
