package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/user"
	"github.com/confhub/backend/storage/database"
)

var (
	gooseRunFunc = database.Migrate // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf      *core.Config
	db        *sql.DB
	validate  *validator.Validate
	usrSvc    *user.Service
	confSvc   *conference.Service
	reviewSvc *review.Service
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -name NAME -email EMAIL -role ROLE - create a user")
	fmt.Fprintln(cli.out, "  addconference -organizer EMAIL -title TITLE -deadline RFC3339 [-description TEXT] - create a conference")
	fmt.Fprintln(cli.out, "  token -email EMAIL - print an API token for a user")
	fmt.Fprintln(cli.out, "  reconcile - re-aggregate abstracts whose status disagrees with their reviews")
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	addUserCmd := cli.flagSet("adduser")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserRole := addUserCmd.String("role", "", "One of ADMIN, ORGANIZER, REVIEWER, AUTHOR.")

	addConfCmd := cli.flagSet("addconference")
	addConfOrganizer := addConfCmd.String("organizer", "", "The organizer's email.")
	addConfTitle := addConfCmd.String("title", "", "The conference title.")
	addConfDescription := addConfCmd.String("description", "", "The conference description.")
	addConfDeadline := addConfCmd.String("deadline", "", "The submission deadline, e.g. 2030-03-01T00:00:00Z.")

	tokenCmd := cli.flagSet("token")
	tokenEmail := tokenCmd.String("email", "", "The user's email.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserRole == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(ctx, *addUserName, *addUserEmail, *addUserRole)
	case "addconference":
		if err := addConfCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addConfOrganizer == "" || *addConfTitle == "" || *addConfDeadline == "" {
			addConfCmd.Usage()
			return errHelp
		}
		deadline, err := time.Parse(time.RFC3339, *addConfDeadline)
		if err != nil {
			return errors.Wrapf(err, "invalid deadline %q", *addConfDeadline)
		}
		return cli.addConference(ctx, *addConfOrganizer, conference.NewConference{
			Title:       *addConfTitle,
			Description: *addConfDescription,
			Deadline:    deadline,
		})
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenEmail == "" {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(ctx, *tokenEmail)
	case "reconcile":
		return cli.reconcile(ctx)
	default:
		cli.printUsage()
		return errHelp
	}
}
