package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/kazi/apps/api/echo"
	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/project"
	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
	emailsvc "github.com/trezcool/kazi/services/email"
	logsvc "github.com/trezcool/kazi/services/logger"
	"github.com/trezcool/kazi/storage/database"
	sqlxrepos "github.com/trezcool/kazi/storage/database/sqlx"
)

const shutdownTimeout = 20 * time.Second

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		std.Fatalf("loading config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!(conf.Debug || conf.TestMode))

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}
	defer func() { _ = db.Close() }()
	xdb := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	clock := core.NewRealClock()
	atomic := sqlxrepos.NewAtomicRunner(xdb)
	usrRepo := sqlxrepos.NewUserRepository(xdb)
	prjRepo := sqlxrepos.NewProjectRepository(xdb)
	taskRepo := sqlxrepos.NewTaskRepository(xdb)
	notifRepo := sqlxrepos.NewNotificationRepository(xdb)
	statsRepo := sqlxrepos.NewStatsRepository(xdb)

	notifSvc := notification.NewService(notifRepo, usrRepo, mailSvc, clock, logger)
	usrSvc := user.NewService(usrRepo, clock, logger)
	prjSvc := project.NewService(prjRepo, usrRepo, notifSvc, atomic, clock, logger)
	taskSvc := task.NewService(taskRepo, prjRepo, usrRepo, notifSvc, atomic, clock, logger)
	statsSvc := stats.NewService(statsRepo, taskRepo, usrRepo, clock, logger)

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:         conf.Server.Address(),
		Conf:            conf,
		Logger:          logger,
		Clock:           clock,
		UserSvc:         usrSvc,
		ProjectSvc:      prjSvc,
		TaskSvc:         taskSvc,
		NotificationSvc: notifSvc,
		StatsSvc:        statsSvc,
		SignalShutdown:  func() { shutdown <- syscall.SIGTERM },
	})
	go app.Start()

	<-shutdown
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		logger.Fatal("could not stop server gracefully", err)
	}
}
