package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/project"
	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

type (
	Options struct {
		Address         string
		DisableReqLogs  bool
		Conf            *core.Config
		Logger          core.Logger
		Clock           core.Clock
		UserSvc         user.ServiceInterface
		ProjectSvc      project.ServiceInterface
		TaskSvc         task.ServiceInterface
		NotificationSvc notification.ServiceInterface
		StatsSvc        stats.ServiceInterface
		SignalShutdown  func()
	}

	Server interface {
		http.Handler
		Start()
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	auth := newAuth(conf, s.opts.UserSvc)
	jwt := auth.middleware()

	registerUserAPI(v1, jwt, auth, s.opts.UserSvc)
	registerProjectAPI(v1, jwt, auth, s.opts.ProjectSvc)
	registerTaskAPI(v1, jwt, auth, s.opts.TaskSvc)
	registerNotificationAPI(v1, jwt, auth, s.opts.NotificationSvc)
	registerStatsAPI(v1, jwt, auth, s.opts.StatsSvc, s.opts.Clock)
}

func (s *server) Start() {
	s.app.Logger.Fatal(s.app.Start(s.opts.Address))
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kazi API!")
}
