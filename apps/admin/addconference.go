package main

import (
	"context"
	"fmt"

	"github.com/confhub/backend/core/conference"
)

// addConference creates a conference on behalf of the organizer registered with email.
func (cli *commandLine) addConference(ctx context.Context, email string, nc conference.NewConference) error {
	organizer, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = nc.Validate(cli.validate); err != nil {
		return err
	}
	conf, err := cli.confSvc.Create(ctx, organizer, nc)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created conference %q (%s), deadline %s\n", conf.Title, conf.ID, conf.Deadline.Format("2006-01-02 15:04 MST"))
	return nil
}
