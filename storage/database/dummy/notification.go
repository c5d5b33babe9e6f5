package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n.ID = uuid.New().String()
	repo.db.notifications[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if n, ok := repo.db.notifications[id]; ok {
		return *n, nil
	}
	return notification.Notification{}, notification.ErrNotFound
}

func (repo *notificationRepository) QueryUserNotifications(ctx context.Context, userID string, filter *notification.QueryFilter, exec ...core.DBExecutor) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	res := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if n.UserID != userID {
			continue
		}
		if filter != nil && filter.UnreadOnly && n.Read {
			continue
		}
		res = append(res, *n)
	}
	// newest first
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (repo *notificationRepository) UpdateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.notifications[n.ID]; !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	repo.db.notifications[n.ID] = &n
	return n, nil
}

func (repo *notificationRepository) MarkAllRead(ctx context.Context, userID string, exec ...core.DBExecutor) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, n := range repo.db.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (repo *notificationRepository) DeleteReadOlderThan(ctx context.Context, cutoff time.Time, exec ...core.DBExecutor) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var deleted int
	for id, n := range repo.db.notifications {
		if n.Read && n.CreatedAt.Before(cutoff) {
			delete(repo.db.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}
