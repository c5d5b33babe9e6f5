package notification

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/access"
	"github.com/trezcool/kazi/core/user"
)

const retentionPeriod = 30 * 24 * time.Hour // read notifications older than this are swept

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		// QueryUserNotifications returns the user's notifications, newest first.
		QueryUserNotifications(ctx context.Context, userID string, filter *QueryFilter, exec ...core.DBExecutor) ([]Notification, error)
		UpdateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		MarkAllRead(ctx context.Context, userID string, exec ...core.DBExecutor) error
		DeleteReadOlderThan(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		Notify(ctx context.Context, nn NewNotification, exec ...core.DBExecutor) (Notification, error)
		QueryForUser(ctx context.Context, actor user.User, filter *QueryFilter) ([]Notification, error)
		MarkRead(ctx context.Context, actor user.User, id string) (Notification, error)
		MarkAllRead(ctx context.Context, actor user.User) error
		CleanOld(ctx context.Context) (int, error)
	}

	service struct {
		repo    Repository
		users   user.Repository
		mailSvc core.EmailService
		clock   core.Clock
		log     core.Logger
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, users user.Repository, mailSvc core.EmailService, clock core.Clock, log core.Logger) *service {
	return &service{repo: repo, users: users, mailSvc: mailSvc, clock: clock, log: log}
}

// Notify persists a notification record; it is the single sink every
// lifecycle engine calls. The record is also forwarded by email on a
// best-effort basis: delivery failure never fails the caller's mutation.
// Note that when exec carries an open transaction the email is handed off
// before commit, so a mutation that later rolls back may still have
// emailed.
func (svc *service) Notify(ctx context.Context, nn NewNotification, exec ...core.DBExecutor) (Notification, error) {
	n := Notification{
		UserID:           nn.UserID,
		Type:             nn.Type,
		Title:            nn.Title,
		Message:          nn.Message,
		RelatedTaskID:    nn.RelatedTaskID,
		RelatedProjectID: nn.RelatedProjectID,
		CreatedAt:        svc.clock.Now(),
	}
	n, err := svc.repo.CreateNotification(ctx, n, exec...)
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}
	svc.email(ctx, n)
	return n, nil
}

func (svc *service) email(ctx context.Context, n Notification) {
	usr, err := svc.users.GetUser(ctx, user.GetFilter{ID: n.UserID})
	if err != nil {
		svc.log.Warn("skipping notification email: recipient lookup failed", err)
		return
	}
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: n.Title,
		BodyStr: n.Message,
	})
}

func (svc *service) QueryForUser(ctx context.Context, actor user.User, filter *QueryFilter) ([]Notification, error) {
	return svc.repo.QueryUserNotifications(ctx, actor.ID, filter)
}

// MarkRead flips the read flag on the actor's own notification. A foreign
// notification id resolves to ErrNotFound; its existence is not revealed.
func (svc *service) MarkRead(ctx context.Context, actor user.User, id string) (Notification, error) {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if !access.CanReadNotification(actor.ID, n.UserID) {
		return Notification{}, ErrNotFound
	}
	if n.Read {
		return n, nil
	}
	n.Read = true
	return svc.repo.UpdateNotification(ctx, n)
}

func (svc *service) MarkAllRead(ctx context.Context, actor user.User) error {
	return svc.repo.MarkAllRead(ctx, actor.ID)
}

// CleanOld deletes read notifications older than the retention period.
// Invoked by the external scheduler; safe to re-run.
func (svc *service) CleanOld(ctx context.Context) (int, error) {
	cutoff := svc.clock.Now().Add(-retentionPeriod)
	return svc.repo.DeleteReadOlderThan(ctx, cutoff)
}
