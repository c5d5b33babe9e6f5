package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
	emailsvc "github.com/trezcool/kazi/services/email"
	logsvc "github.com/trezcool/kazi/services/logger"
	"github.com/trezcool/kazi/storage/database"
	sqlxrepos "github.com/trezcool/kazi/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	appLogger := logsvc.NewRollbarLogger(logger, conf)
	appLogger.Enable(!(conf.Debug || conf.TestMode))

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())
	xdb := sqlx.NewDb(db, conf.Database.Engine)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(appLogger, conf)
	}

	clock := core.NewRealClock()
	atomic := sqlxrepos.NewAtomicRunner(xdb)
	usrRepo := sqlxrepos.NewUserRepository(xdb)
	prjRepo := sqlxrepos.NewProjectRepository(xdb)
	taskRepo := sqlxrepos.NewTaskRepository(xdb)
	notifRepo := sqlxrepos.NewNotificationRepository(xdb)
	statsRepo := sqlxrepos.NewStatsRepository(xdb)

	notifSvc := notification.NewService(notifRepo, usrRepo, mailSvc, clock, appLogger)

	// start CLI
	cli := commandLine{
		conf:     conf,
		db:       db,
		usrSvc:   user.NewService(usrRepo, clock, appLogger),
		taskSvc:  task.NewService(taskRepo, prjRepo, usrRepo, notifSvc, atomic, clock, appLogger),
		notifSvc: notifSvc,
		statsSvc: stats.NewService(statsRepo, taskRepo, usrRepo, clock, appLogger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
