package notification_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
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

// recordingEmail captures outgoing messages for assertions.
type recordingEmail struct {
	mutex sync.Mutex
	sent  []*core.EmailMessage
}

func (svc *recordingEmail) SendMessages(messages ...*core.EmailMessage) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.sent = append(svc.sent, messages...)
}

type testEnv struct {
	clock   *fixedClock
	repo    notification.Repository
	usrRepo user.Repository
	mailSvc *recordingEmail
	svc     notification.ServiceInterface

	recipient, other user.User
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	env := &testEnv{
		clock:   &fixedClock{now: time.Date(2021, time.June, 15, 12, 0, 0, 0, time.UTC)},
		repo:    dummydb.NewNotificationRepository(db),
		usrRepo: dummydb.NewUserRepository(db),
		mailSvc: &recordingEmail{},
	}
	env.svc = notification.NewService(env.repo, env.usrRepo, env.mailSvc, env.clock, nopLogger{})

	env.recipient = env.createUser(t, "recipient", "recipient@test.test")
	env.other = env.createUser(t, "otherone", "other@test.test")
	return env
}

func (env *testEnv) createUser(t *testing.T, uname, email string) user.User {
	t.Helper()
	active := true
	usr, err := env.usrRepo.CreateUser(context.Background(), user.User{
		Name:     uname,
		Username: uname,
		Email:    email,
		Role:     user.RoleStudent,
		IsActive: &active,
	})
	require.NoError(t, err)
	return usr
}

func (env *testEnv) notify(t *testing.T, usr user.User, title string) notification.Notification {
	t.Helper()
	n, err := env.svc.Notify(context.Background(), notification.NewNotification{
		UserID:  usr.ID,
		Type:    notification.TypeTaskAssigned,
		Title:   title,
		Message: "A message.",
	})
	require.NoError(t, err)
	return n
}

func TestService_Notify(t *testing.T) {
	env := setup(t)

	n := env.notify(t, env.recipient, "New task assigned")
	assert.NotEmpty(t, n.ID)
	assert.False(t, n.Read)
	assert.True(t, n.CreatedAt.Equal(env.clock.now))

	// the record is also forwarded by email
	require.Len(t, env.mailSvc.sent, 1)
	assert.Equal(t, "New task assigned", env.mailSvc.sent[0].Subject)
	assert.Equal(t, "recipient@test.test", env.mailSvc.sent[0].To[0].Address)
}

func TestService_Notify_unknownRecipient(t *testing.T) {
	env := setup(t)

	// delivery is best-effort; the record is still persisted
	n, err := env.svc.Notify(context.Background(), notification.NewNotification{
		UserID:  "ghost",
		Type:    notification.TypeTaskAssigned,
		Title:   "New task assigned",
		Message: "A message.",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Empty(t, env.mailSvc.sent)
}

func TestService_QueryForUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	first := env.notify(t, env.recipient, "First")
	env.clock.now = env.clock.now.Add(time.Minute)
	second := env.notify(t, env.recipient, "Second")
	env.notify(t, env.other, "Not yours")

	t.Run("newest first, own only", func(t *testing.T) {
		res, err := env.svc.QueryForUser(ctx, env.recipient, nil)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, second.ID, res[0].ID)
		assert.Equal(t, first.ID, res[1].ID)
	})

	t.Run("unread only", func(t *testing.T) {
		_, err := env.svc.MarkRead(ctx, env.recipient, first.ID)
		require.NoError(t, err)

		res, err := env.svc.QueryForUser(ctx, env.recipient, &notification.QueryFilter{UnreadOnly: true})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, second.ID, res[0].ID)
	})
}

func TestService_MarkRead(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	n := env.notify(t, env.recipient, "New task assigned")

	t.Run("foreign notification is masked", func(t *testing.T) {
		_, err := env.svc.MarkRead(ctx, env.other, n.ID)
		assert.Equal(t, notification.ErrNotFound, err)
	})

	t.Run("ok and idempotent", func(t *testing.T) {
		got, err := env.svc.MarkRead(ctx, env.recipient, n.ID)
		require.NoError(t, err)
		assert.True(t, got.Read)

		got, err = env.svc.MarkRead(ctx, env.recipient, n.ID)
		require.NoError(t, err)
		assert.True(t, got.Read)
	})
}

func TestService_MarkAllRead(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.notify(t, env.recipient, "First")
	env.notify(t, env.recipient, "Second")
	foreign := env.notify(t, env.other, "Not yours")

	require.NoError(t, env.svc.MarkAllRead(ctx, env.recipient))

	res, err := env.svc.QueryForUser(ctx, env.recipient, &notification.QueryFilter{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, res)

	got, err := env.repo.GetNotification(ctx, foreign.ID)
	require.NoError(t, err)
	assert.False(t, got.Read)
}

func TestService_CleanOld(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	old := env.notify(t, env.recipient, "Old and read")
	oldUnread := env.notify(t, env.recipient, "Old but unread")
	_, err := env.svc.MarkRead(ctx, env.recipient, old.ID)
	require.NoError(t, err)

	// 40 days later, a fresh read notification appears
	env.clock.now = env.clock.now.Add(40 * 24 * time.Hour)
	fresh := env.notify(t, env.recipient, "Fresh and read")
	_, err = env.svc.MarkRead(ctx, env.recipient, fresh.ID)
	require.NoError(t, err)

	deleted, err := env.svc.CleanOld(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = env.repo.GetNotification(ctx, old.ID)
	assert.Equal(t, notification.ErrNotFound, err)
	for _, id := range []string{oldUnread.ID, fresh.ID} {
		_, err = env.repo.GetNotification(ctx, id)
		assert.NoError(t, err)
	}

	// re-running finds nothing more to sweep
	deleted, err = env.svc.CleanOld(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}
