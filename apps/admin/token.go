package main

import (
	"context"
	"fmt"

	echoapi "github.com/confhub/backend/apps/api/echo"
	"github.com/confhub/backend/core/user"
)

// token prints a signed API token for the active user registered with email.
func (cli *commandLine) token(ctx context.Context, email string) error {
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return user.ErrNotFound
	}
	tok, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, tok)
	return nil
}

func (cli *commandLine) reconcile(ctx context.Context) error {
	fixed, err := cli.reviewSvc.Reconcile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "reconciled %d abstract(s)\n", fixed)
	return nil
}
