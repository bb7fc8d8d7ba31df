package main

import (
	"context"
	"fmt"

	"github.com/confhub/backend/core/user"
)

// addUser creates an active user.User holding role.
func (cli *commandLine) addUser(ctx context.Context, name, email, role string) error {
	nu := user.NewUser{Name: name, Email: email, Role: user.Role(role)}
	if err := nu.Validate(cli.validate); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %s user %s <%s> (%s)\n", usr.Role, usr.Name, usr.Email, usr.ID)
	return nil
}
