package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/notification"
	"github.com/trezcool/kazi/core/stats"
	"github.com/trezcool/kazi/core/task"
	"github.com/trezcool/kazi/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf     *core.Config
	db       *sql.DB
	usrSvc   user.ServiceInterface
	taskSvc  task.ServiceInterface
	notifSvc notification.ServiceInterface
	statsSvc stats.ServiceInterface
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate [COMMAND] - run database migrations (up by default)")
	fmt.Println("  adduser -name NAME -username USERNAME -email EMAIL -role ROLE - create a user; the password is prompted")
	fmt.Println("  overduescan - notify about tasks that became overdue in the last 24 hours")
	fmt.Println("  upcomingscan - notify assignees about tasks due within 2 days")
	fmt.Println("  cleannotifications - delete read notifications older than 30 days")
	fmt.Println("  monthlystats - regenerate last month's statistics for all users")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", user.RoleStudent, "The user's role: STUDENT or PROFESSOR.")

	switch args[1] {
	case "migrate":
		return cli.migrate(args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || (*addUserUname == "" && *addUserEmail == "") {
			addUserCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserName, *addUserUname, *addUserEmail, *addUserRole, string(pwd))
	case "overduescan":
		return cli.overdueScan()
	case "upcomingscan":
		return cli.upcomingScan()
	case "cleannotifications":
		return cli.cleanNotifications()
	case "monthlystats":
		return cli.monthlyStats()
	default:
		cli.printUsage()
		return errHelp
	}
}
