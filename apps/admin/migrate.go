package main

import (
	"path/filepath"

	"github.com/pressly/goose"
)

var gooseRunFunc = goose.Run // mockable

func (cli *commandLine) migrate(args []string) error {
	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	dir := filepath.Join(cli.conf.WorkDir, "storage", "database", "migrations")
	return gooseRunFunc(command, cli.db, dir, args...)
}
