package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/confhub/backend/apps/api/echo"
	"github.com/confhub/backend/core"
	"github.com/confhub/backend/core/abstract"
	"github.com/confhub/backend/core/conference"
	"github.com/confhub/backend/core/review"
	"github.com/confhub/backend/core/reviewer"
	"github.com/confhub/backend/core/user"
	"github.com/confhub/backend/storage/database/dummy"
	"github.com/confhub/backend/testutil"
)

type testEnv struct {
	cli      *commandLine
	out      *bytes.Buffer
	usrRepo  user.Repository
	confRepo conference.Repository
	absRepo  abstract.Repository
	rvwRepo  reviewer.Repository
	rvRepo   review.Repository
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := testutil.NewConfig()
	env := &testEnv{
		out:      new(bytes.Buffer),
		usrRepo:  dummydb.NewUserRepository(db),
		confRepo: dummydb.NewConferenceRepository(db),
		absRepo:  dummydb.NewAbstractRepository(db),
		rvwRepo:  dummydb.NewReviewerRepository(db),
		rvRepo:   dummydb.NewReviewRepository(db),
	}

	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	env.cli = &commandLine{
		conf:     conf,
		validate: validate,
		usrSvc:   user.NewService(env.usrRepo),
		confSvc:  conference.NewService(db, env.confRepo),
		reviewSvc: review.NewService(
			testutil.NewLogger(conf), db, env.rvRepo, env.absRepo, env.confRepo, env.rvwRepo, env.usrRepo,
			review.Options{RequireAssignment: true},
		),
		out: env.out,
	}
	return env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantOut    string // substring of the output
}

func (env *testEnv) runCLITests(t *testing.T, tests []cliTest) {
	t.Helper()

	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			env.out.Reset()
			err := env.cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Contains(t, err.Error(), tt.wantErrStr)
				}
			default:
				assert.NoError(t, err)
			}
			if tt.wantOut != "" {
				assert.Contains(t, env.out.String(), tt.wantOut)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	env := setup(t)

	env.runCLITests(t, []cliTest{
		{name: "no command", wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOut: "Usage:"},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	var gotCommand string
	defer func(run func(context.Context, *sql.DB, string, ...string) error) { gooseRunFunc = run }(gooseRunFunc)
	gooseRunFunc = func(_ context.Context, db *sql.DB, command string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	env.runCLITests(t, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "invitations", "sql"}},
	})
	assert.Equal(t, "create", gotCommand)
}

func Test_commandLine_addUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	env.runCLITests(t, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no role", args: []string{"adduser", "-email", "olga@confhub.test"}, wantErr: errHelp},
		{
			name:       "invalid role",
			args:       []string{"adduser", "-name", "Olga", "-email", "olga@confhub.test", "-role", "chair"},
			wantErrStr: "'role' failed on the 'role' tag",
		},
		{
			name:       "invalid email",
			args:       []string{"adduser", "-name", "Olga", "-email", "olga", "-role", "organizer"},
			wantErrStr: "'email' failed on the 'email' tag",
		},
		{
			name:    "created",
			args:    []string{"adduser", "-name", " Olga ", "-email", "Olga@Confhub.test", "-role", "organizer"},
			wantOut: "created ORGANIZER user Olga <olga@confhub.test>",
		},
		{
			name:       "duplicate email",
			args:       []string{"adduser", "-name", "Olga", "-email", "olga@confhub.test", "-role", "author"},
			wantErrStr: "a user with this email already exists",
		},
	})

	usr, err := env.usrRepo.GetUser(ctx, user.GetFilter{Email: "olga@confhub.test"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleOrganizer, usr.Role)
	assert.True(t, usr.IsActive)
}

func Test_commandLine_addConference(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	organizer := testutil.CreateUser(t, env.usrRepo, "Olga", "olga@confhub.test", user.RoleOrganizer)
	testutil.CreateUser(t, env.usrRepo, "Aimé", "aime@confhub.test", user.RoleAuthor)

	env.runCLITests(t, []cliTest{
		{name: "no args", args: []string{"addconference"}, wantErr: errHelp},
		{name: "no deadline", args: []string{"addconference", "-organizer", "olga@confhub.test", "-title", "GopherCon"}, wantErr: errHelp},
		{
			name:       "invalid deadline",
			args:       []string{"addconference", "-organizer", "olga@confhub.test", "-title", "GopherCon", "-deadline", "tomorrow"},
			wantErrStr: "invalid deadline \"tomorrow\"",
		},
		{
			name:    "unknown organizer",
			args:    []string{"addconference", "-organizer", "otto@confhub.test", "-title", "GopherCon", "-deadline", "2030-03-01T00:00:00Z"},
			wantErr: user.ErrNotFound,
		},
		{
			name:    "not an organizer",
			args:    []string{"addconference", "-organizer", "aime@confhub.test", "-title", "GopherCon", "-deadline", "2030-03-01T00:00:00Z"},
			wantErr: core.ErrPermissionDenied,
		},
		{
			name: "created",
			args: []string{
				"addconference", "-organizer", "OLGA@confhub.test", "-title", " GopherCon ",
				"-description", "Go all day", "-deadline", "2030-03-01T09:00:00+01:00",
			},
			wantOut: "created conference \"GopherCon\"",
		},
	})

	err := env.cli.run([]string{"admin", "addconference", "-organizer", "olga@confhub.test", "-title", "GopherCon", "-deadline", "tomorrow"})
	var perr *time.ParseError
	assert.True(t, errors.As(err, &perr), "the parse error stays the cause")
	assert.IsType(t, &time.ParseError{}, errors.Cause(err))

	confs, err := env.confRepo.QueryConferences(ctx, conference.QueryFilter{OrganizerID: organizer.ID})
	require.NoError(t, err)
	require.Len(t, confs, 1)
	assert.Equal(t, "Go all day", confs[0].Description)
	assert.Equal(t, time.Date(2030, 3, 1, 8, 0, 0, 0, time.UTC), confs[0].Deadline)
}

func Test_commandLine_token(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	rita := testutil.CreateUser(t, env.usrRepo, "Rita", "rita@confhub.test", user.RoleReviewer)
	_, err := env.usrRepo.CreateUser(ctx, user.User{
		Name:      "Ghost",
		Email:     "ghost@confhub.test",
		Role:      user.RoleReviewer,
		CreatedAt: core.Now(),
		UpdatedAt: core.Now(),
	})
	require.NoError(t, err)

	env.runCLITests(t, []cliTest{
		{name: "no args", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"token", "-email", "otto@confhub.test"}, wantErr: user.ErrNotFound},
		{name: "inactive user", args: []string{"token", "-email", "ghost@confhub.test"}, wantErr: user.ErrNotFound},
	})

	env.out.Reset()
	require.NoError(t, env.cli.run([]string{"admin", "token", "-email", "rita@confhub.test"}))

	claims := new(echoapi.Claims)
	tok, err := jwt.ParseWithClaims(strings.TrimSpace(env.out.String()), claims, func(*jwt.Token) (interface{}, error) {
		return []byte(env.cli.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.True(t, tok.Valid)
	assert.Equal(t, rita.ID, claims.Subject)
	assert.Equal(t, user.RoleReviewer, claims.Role)
}

func Test_commandLine_reconcile(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	organizer := testutil.CreateUser(t, env.usrRepo, "Olga", "olga@confhub.test", user.RoleOrganizer)
	author := testutil.CreateUser(t, env.usrRepo, "Aimé", "aime@confhub.test", user.RoleAuthor)
	rvw1 := testutil.CreateUser(t, env.usrRepo, "Rita", "rita@confhub.test", user.RoleReviewer)
	rvw2 := testutil.CreateUser(t, env.usrRepo, "Remy", "remy@confhub.test", user.RoleReviewer)
	conf := testutil.CreateConference(t, env.confRepo, organizer, "GopherCon", time.Now().Add(24*time.Hour))

	drifted := testutil.CreateAbstract(t, env.absRepo, conf, author, "Generics in practice")
	testutil.Assign(t, env.rvwRepo, drifted, rvw1)
	testutil.Assign(t, env.rvwRepo, drifted, rvw2)
	testutil.CreateReview(t, env.rvRepo, drifted, rvw1, review.DecisionAccepted)
	testutil.CreateReview(t, env.rvRepo, drifted, rvw2, review.DecisionRejected)

	pending := testutil.CreateAbstract(t, env.absRepo, conf, author, "Fuzzing")
	testutil.Assign(t, env.rvwRepo, pending, rvw1)
	testutil.CreateReview(t, env.rvRepo, pending, rvw1, review.DecisionAccepted)

	env.runCLITests(t, []cliTest{
		{name: "fixes drifted abstracts", args: []string{"reconcile"}, wantOut: "reconciled 1 abstract(s)"},
		{name: "idempotent", args: []string{"reconcile"}, wantOut: "reconciled 0 abstract(s)"},
	})

	abs, err := env.absRepo.GetAbstract(ctx, drifted.ID)
	require.NoError(t, err)
	assert.Equal(t, abstract.StatusAccepted, abs.Status)
	assert.Equal(t, abstract.PresentationEPoster, abs.PresentationType)

	abs, err = env.absRepo.GetAbstract(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, abstract.StatusPending, abs.Status)
}
