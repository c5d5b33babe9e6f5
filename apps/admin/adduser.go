package main

import (
	"context"
	"strings"

	"github.com/trezcool/kazi/core/user"
)

// addUser creates a new user.User with the full password policy applied.
func (cli *commandLine) addUser(name, uname, email, role, pwd string) error {
	nu := user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           email,
		Role:            strings.ToUpper(strings.TrimSpace(role)),
		Password:        pwd,
		PasswordConfirm: pwd,
	}
	if err := nu.Validate(cli.usrSvc); err != nil {
		return err
	}

	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	logger.Printf("user %q created", usr.Username)
	return nil
}
