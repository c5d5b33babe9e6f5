package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/kazi/apps/api/echo"
	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/project"
	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
	dummydb "github.com/trezcool/kazi/storage/database/dummy"
)

const testPassword = "v3ryS3cretW0rd"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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
	app  http.Handler
	conf *core.Config

	usrSvc    user.ServiceInterface
	notifRepo notification.Repository
	taskRepo  task.Repository
}

func newEnv(t *testing.T) *testEnv {
	return newEnvWithClock(t, core.NewRealClock())
}

func newEnvWithClock(t *testing.T, clock core.Clock) *testEnv {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := &core.Config{
		TestMode:  true,
		AppName:   "Kazi",
		SecretKey: "n0t-s0-s3cret-test-key",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	usrRepo := dummydb.NewUserRepository(db)
	prjRepo := dummydb.NewProjectRepository(db)
	taskRepo := dummydb.NewTaskRepository(db)
	notifRepo := dummydb.NewNotificationRepository(db)
	statsRepo := dummydb.NewStatsRepository(db)

	usrSvc := user.NewService(usrRepo, clock, nopLogger{})
	notifSvc := notification.NewService(notifRepo, usrRepo, nopEmail{}, clock, nopLogger{})
	prjSvc := project.NewService(prjRepo, usrRepo, notifSvc, db, clock, nopLogger{})
	taskSvc := task.NewService(taskRepo, prjRepo, usrRepo, notifSvc, db, clock, nopLogger{})
	statsSvc := stats.NewService(statsRepo, taskRepo, usrRepo, clock, nopLogger{})

	app := echoapi.NewServer(&echoapi.Options{
		DisableReqLogs:  true,
		Conf:            conf,
		Logger:          nopLogger{},
		Clock:           clock,
		UserSvc:         usrSvc,
		ProjectSvc:      prjSvc,
		TaskSvc:         taskSvc,
		NotificationSvc: notifSvc,
		StatsSvc:        statsSvc,
		SignalShutdown:  func() {},
	})

	return &testEnv{app: app, conf: conf, usrSvc: usrSvc, notifRepo: notifRepo, taskRepo: taskRepo}
}

func (env *testEnv) createUser(t *testing.T, uname, role string) user.User {
	t.Helper()
	usr, err := env.usrSvc.Create(context.Background(), user.NewUser{
		Name:            uname,
		Username:        uname,
		Email:           uname + "@test.test",
		Role:            role,
		Password:        testPassword,
		PasswordConfirm: testPassword,
	})
	require.NoError(t, err)
	return usr
}

type httpErr struct {
	Error string `json:"error"`
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

// login obtains a token through the login endpoint.
func (env *testEnv) login(t *testing.T, usr user.User) string {
	t.Helper()
	body := marshalObj(t, echoapi.LoginRequest{Username: usr.Username, Password: testPassword})
	rec := env.do(newRequest(http.MethodPost, "/v1/users/login", body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}
